// Package config loads the host's settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "EMA"

type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Deepgram DeepgramConfig `mapstructure:"deepgram"`
	Audio    AudioConfig    `mapstructure:"audio"`
	IVR      IVRConfig      `mapstructure:"ivr"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	Log      LogConfig      `mapstructure:"log"`
	Speech   SpeechConfig   `mapstructure:"speech"`
}

type BackendConfig struct {
	URL      string `mapstructure:"url"`
	AgentID  string `mapstructure:"agent_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`
}

type DeepgramConfig struct {
	APIKey   string `mapstructure:"api_key"`
	STTModel string `mapstructure:"stt_model"`
}

type AudioConfig struct {
	// Device is "miniaudio" or "portaudio". Playback always uses miniaudio.
	Device     string `mapstructure:"device"`
	BufferSize int    `mapstructure:"buffer_size"`
}

type IVRConfig struct {
	MenusFile     string        `mapstructure:"menus_file"`
	Locale        string        `mapstructure:"locale"`
	MaxRetries    int           `mapstructure:"max_retries"`
	ListenTimeout time.Duration `mapstructure:"listen_timeout"`
}

type TwilioConfig struct {
	AccountSID  string `mapstructure:"account_sid"`
	AuthToken   string `mapstructure:"auth_token"`
	From        string `mapstructure:"from"`
	To          string `mapstructure:"to"`
	CallbackURL string `mapstructure:"callback_url"`
}

// Enabled reports whether calls should be placed over the phone network.
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type SpeechConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`
	Pitch   float64 `mapstructure:"pitch"`
	Volume  float64 `mapstructure:"volume"`
}

// SetDefaults registers default values and environment bindings on v. Every
// key gets a default so AutomaticEnv can override it during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "http://localhost:8000")
	v.SetDefault("backend.agent_id", "default")
	v.SetDefault("backend.username", "")
	v.SetDefault("backend.password", "")
	v.SetDefault("backend.token", "")
	v.SetDefault("deepgram.stt_model", "nova-2")
	v.SetDefault("audio.device", "miniaudio")
	v.SetDefault("audio.buffer_size", 1024)
	v.SetDefault("ivr.menus_file", "")
	v.SetDefault("ivr.locale", "bn-BD")
	v.SetDefault("ivr.max_retries", 3)
	v.SetDefault("ivr.listen_timeout", 10*time.Second)
	v.SetDefault("twilio.from", "")
	v.SetDefault("twilio.to", "")
	v.SetDefault("twilio.callback_url", "")
	v.SetDefault("log.file", "ema-ivr.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("speech.enabled", true)
	v.SetDefault("speech.rate", 1.0)
	v.SetDefault("speech.pitch", 1.0)
	v.SetDefault("speech.volume", 1.0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("deepgram.api_key", EnvPrefix+"_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY")
	_ = v.BindEnv("twilio.account_sid", EnvPrefix+"_TWILIO_ACCOUNT_SID", "TWILIO_ACCOUNT_SID")
	_ = v.BindEnv("twilio.auth_token", EnvPrefix+"_TWILIO_AUTH_TOKEN", "TWILIO_AUTH_TOKEN")
}

// Load reads the config file, if any, and decodes v into a validated Config.
// An explicitly named file must exist; the default search path may be empty.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("ema-ivr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.url %q is not an absolute url", c.Backend.URL))
	}
	if c.Backend.AgentID == "" {
		errs = append(errs, errors.New("backend.agent_id is required"))
	}
	switch c.Audio.Device {
	case "miniaudio", "portaudio":
	default:
		errs = append(errs, fmt.Errorf("audio.device %q must be miniaudio or portaudio", c.Audio.Device))
	}
	if c.Audio.BufferSize <= 0 {
		errs = append(errs, errors.New("audio.buffer_size must be positive"))
	}
	if c.IVR.MaxRetries < 0 {
		errs = append(errs, errors.New("ivr.max_retries cannot be negative"))
	}
	if c.IVR.ListenTimeout < 0 {
		errs = append(errs, errors.New("ivr.listen_timeout cannot be negative"))
	}
	if c.Twilio.Enabled() && (c.Twilio.From == "" || c.Twilio.To == "") {
		errs = append(errs, errors.New("twilio.from and twilio.to are required when twilio is configured"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
