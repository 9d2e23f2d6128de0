package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koscakluka/ema-ivr/internal/config"
	"github.com/koscakluka/ema-ivr/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:           "ema-ivr",
	Short:         "Voice and IVR console for the support assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.SetDefaults(v)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./ema-ivr.yaml)")
	flags.String("backend-url", "", "Backend base URL")
	flags.String("agent-id", "", "Backend agent ID")
	flags.String("log-file", "", "Log file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	_ = v.BindPFlag("backend.url", flags.Lookup("backend-url"))
	_ = v.BindPFlag("backend.agent_id", flags.Lookup("agent-id"))
	_ = v.BindPFlag("log.file", flags.Lookup("log-file"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(consoleCmd, menusCmd, adminCmd)
}

// loadConfig reads the config named by --config and opens the log file.
func loadConfig(cmd *cobra.Command) (config.Config, func() error, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, file)
	if err != nil {
		return config.Config{}, nil, err
	}

	closeLog, err := logging.Setup(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, closeLog, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
