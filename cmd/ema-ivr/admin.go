package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Backend administration",
}

var adminStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show backend usage statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, closeLog, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		client, err := newBackend(cmd.Context(), cfg.Backend)
		if err != nil {
			return err
		}
		stats, err := client.Stats(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "conversations  %d\n", stats.TotalConversations)
		fmt.Fprintf(out, "messages       %d\n", stats.TotalMessages)
		fmt.Fprintf(out, "agents         %d (%d active)\n", stats.TotalAgents, stats.ActiveAgents)
		fmt.Fprintf(out, "documents      %d\n", stats.TotalDocuments)
		return nil
	},
}

var adminAgentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, closeLog, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		client, err := newBackend(cmd.Context(), cfg.Backend)
		if err != nil {
			return err
		}
		agents, err := client.Agents(cmd.Context())
		if err != nil {
			return err
		}

		for _, agent := range agents {
			status := "inactive"
			if agent.IsActive {
				status = "active"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", agent.ID, agent.Name, status)
		}
		return nil
	},
}

var adminUploadCmd = &cobra.Command{
	Use:   "upload AGENT_ID FILE",
	Short: "Add a knowledge document to an agent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		file, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("failed to open document: %w", err)
		}
		defer file.Close()

		client, err := newBackend(cmd.Context(), cfg.Backend)
		if err != nil {
			return err
		}
		document, err := client.UploadDocument(cmd.Context(), args[0], filepath.Base(args[1]), file)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s as %s (%s)\n", document.Filename, document.ID, document.Status)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminStatsCmd, adminAgentsCmd, adminUploadCmd)
}
