package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func load(t *testing.T, file string) (Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return Load(v, file)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.URL != "http://localhost:8000" || cfg.IVR.Locale != "bn-BD" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.IVR.MaxRetries != 3 || cfg.IVR.ListenTimeout != 10*time.Second {
		t.Fatalf("unexpected IVR defaults %+v", cfg.IVR)
	}
	if !cfg.Speech.Enabled || cfg.Audio.Device != "miniaudio" {
		t.Fatalf("unexpected speech or audio defaults %+v %+v", cfg.Speech, cfg.Audio)
	}
	if cfg.Twilio.Enabled() {
		t.Fatalf("expected twilio to be disabled without credentials")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("EMA_BACKEND_URL", "https://support.example.com")
	t.Setenv("EMA_IVR_MAX_RETRIES", "5")
	t.Setenv("EMA_BACKEND_USERNAME", "ana")
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")

	cfg, err := load(t, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.URL != "https://support.example.com" || cfg.IVR.MaxRetries != 5 {
		t.Fatalf("expected env overrides, got %+v", cfg)
	}
	if cfg.Backend.Username != "ana" {
		t.Fatalf("expected username from env, got %q", cfg.Backend.Username)
	}
	if cfg.Deepgram.APIKey != "dg-key" {
		t.Fatalf("expected deepgram key from env, got %q", cfg.Deepgram.APIKey)
	}
}

func TestConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ema-ivr.yaml")
	content := `
backend:
  agent_id: shop
ivr:
  listen_timeout: 4s
speech:
  enabled: false
twilio:
  account_sid: AC1
  auth_token: tok
  from: "+1555"
  to: "+8801700"
`
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := load(t, file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.AgentID != "shop" || cfg.IVR.ListenTimeout != 4*time.Second || cfg.Speech.Enabled {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if !cfg.Twilio.Enabled() || cfg.Twilio.To != "+8801700" {
		t.Fatalf("expected twilio from file, got %+v", cfg.Twilio)
	}
}

func TestMissingExplicitFileFails(t *testing.T) {
	if _, err := load(t, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Backend: BackendConfig{URL: "http://localhost:8000", AgentID: "a"},
			Audio:   AudioConfig{Device: "portaudio", BufferSize: 512},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"relative url", func(c *Config) { c.Backend.URL = "localhost" }, "backend.url"},
		{"no agent", func(c *Config) { c.Backend.AgentID = "" }, "backend.agent_id"},
		{"unknown device", func(c *Config) { c.Audio.Device = "alsa" }, "audio.device"},
		{"zero buffer", func(c *Config) { c.Audio.BufferSize = 0 }, "audio.buffer_size"},
		{"negative retries", func(c *Config) { c.IVR.MaxRetries = -1 }, "ivr.max_retries"},
		{"negative timeout", func(c *Config) { c.IVR.ListenTimeout = -time.Second }, "ivr.listen_timeout"},
		{"twilio without numbers", func(c *Config) { c.Twilio = TwilioConfig{AccountSID: "AC", AuthToken: "t"} }, "twilio.from"},
	}

	for _, tt := range tests {
		cfg := valid()
		tt.modify(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tt.field) {
			t.Fatalf("%s: expected error mentioning %s, got %v", tt.name, tt.field, err)
		}
	}
}
