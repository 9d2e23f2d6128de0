package main

import (
	"context"
	"fmt"

	voice "github.com/koscakluka/ema-ivr/core"
	"github.com/koscakluka/ema-ivr/core/backend"
	"github.com/koscakluka/ema-ivr/core/ivr"
	"github.com/koscakluka/ema-ivr/core/telephony/twilio"
	"github.com/koscakluka/ema-ivr/internal/config"
	"github.com/koscakluka/ema-ivr/internal/console"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Chat with the assistant by text or voice and try the IVR menus",
	RunE:  runConsole,
}

func init() {
	flags := consoleCmd.Flags()
	flags.String("locale", "", "Recognition locale, e.g. bn-BD")
	flags.String("menus", "", "IVR menu file (YAML)")
	flags.String("audio-device", "", "Capture device: miniaudio or portaudio")
	flags.Bool("speech", true, "Speak replies and prompts")

	_ = v.BindPFlag("ivr.locale", flags.Lookup("locale"))
	_ = v.BindPFlag("ivr.menus_file", flags.Lookup("menus"))
	_ = v.BindPFlag("audio.device", flags.Lookup("audio-device"))
	_ = v.BindPFlag("speech.enabled", flags.Lookup("speech"))
}

func runConsole(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, closeLog, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newBackend(ctx, cfg.Backend)
	if err != nil {
		return err
	}

	sessionOpts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}

	engines := newEngines(cfg)
	defer engines.Close()

	return console.Run(ctx, func(opts ...console.HostOption) (*console.Host, error) {
		opts = append([]console.HostOption{
			console.WithAgentID(cfg.Backend.AgentID),
			console.WithLocale(cfg.IVR.Locale),
			console.WithSessionOptions(sessionOpts...),
			console.WithPlaybackOptions(
				voice.WithPlaybackEnabled(cfg.Speech.Enabled),
				voice.WithProsody(cfg.Speech.Rate, cfg.Speech.Pitch, cfg.Speech.Volume),
			),
		}, opts...)
		return console.NewHost(engines.recognizer, engines.synthesizer, client, opts...)
	})
}

// newBackend creates the backend client, logging in when a username is set
// and no token was given.
func newBackend(ctx context.Context, cfg config.BackendConfig) (*backend.Client, error) {
	client, err := backend.NewClient(cfg.URL, backend.WithToken(cfg.Token))
	if err != nil {
		return nil, err
	}
	if cfg.Token == "" && cfg.Username != "" {
		if _, err := client.Token(ctx, cfg.Username, cfg.Password); err != nil {
			return nil, fmt.Errorf("failed to log in to backend: %w", err)
		}
	}
	return client, nil
}

func sessionOptions(cfg config.Config) ([]ivr.SessionOption, error) {
	opts := []ivr.SessionOption{
		ivr.WithMaxRetries(cfg.IVR.MaxRetries),
		ivr.WithListenTimeout(cfg.IVR.ListenTimeout),
	}

	if cfg.IVR.MenusFile != "" {
		menus, err := ivr.LoadMenus(cfg.IVR.MenusFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ivr.WithMenus(menus))
	}

	if cfg.Twilio.Enabled() {
		var dialerOpts []twilio.DialerOption
		if cfg.Twilio.CallbackURL != "" {
			dialerOpts = append(dialerOpts, twilio.WithCallbackURL(cfg.Twilio.CallbackURL))
		}
		dialer, err := twilio.NewDialer(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From, cfg.Twilio.To, dialerOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ivr.WithDialer(dialer))
	}
	return opts, nil
}
