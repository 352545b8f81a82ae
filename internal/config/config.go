package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "RELIEF"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultRateLimitRPS      = 20
	defaultAPIBaseURL        = "http://localhost:5000/api"
	defaultRealtimeURL       = "http://localhost:5000/"
	defaultRealtimeMode      = RealtimeModeLive
	defaultBufferSize        = 20
	defaultConnectTimeout    = 20 * time.Second
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = time.Second
	defaultReconnectDelayMax = 5 * time.Second
	defaultSyntheticInterval = 3 * time.Second
	defaultNotificationTTL   = 6 * time.Second
	defaultLogLevel          = "info"
)

// Realtime channel modes.
const (
	RealtimeModeLive      = "live"
	RealtimeModeSynthetic = "synthetic"
)

// AppConfig captures runtime configuration for the dashboard service.
type AppConfig struct {
	HTTPAddress  string
	RateLimitRPS int
	APIBaseURL   string
	LogLevel     string
	Realtime     RealtimeConfig
	// NotificationTTL is how long a notification stays visible.
	NotificationTTL time.Duration
}

// RealtimeConfig configures the live update channel.
type RealtimeConfig struct {
	URL               string
	Mode              string
	BufferSize        int
	ConnectTimeout    time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	SyntheticInterval time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.rate_limit_rps", defaultRateLimitRPS)
	configViper.SetDefault("api.base_url", defaultAPIBaseURL)
	configViper.SetDefault("realtime.url", defaultRealtimeURL)
	configViper.SetDefault("realtime.mode", defaultRealtimeMode)
	configViper.SetDefault("realtime.buffer_size", defaultBufferSize)
	configViper.SetDefault("realtime.connect_timeout", defaultConnectTimeout)
	configViper.SetDefault("realtime.reconnect_attempts", defaultReconnectAttempts)
	configViper.SetDefault("realtime.reconnect_delay", defaultReconnectDelay)
	configViper.SetDefault("realtime.reconnect_delay_max", defaultReconnectDelayMax)
	configViper.SetDefault("realtime.synthetic_interval", defaultSyntheticInterval)
	configViper.SetDefault("notification.ttl", defaultNotificationTTL)
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:  configViper.GetString("http.address"),
		RateLimitRPS: configViper.GetInt("http.rate_limit_rps"),
		APIBaseURL:   strings.TrimRight(configViper.GetString("api.base_url"), "/"),
		LogLevel:     configViper.GetString("log.level"),
		Realtime: RealtimeConfig{
			URL:               configViper.GetString("realtime.url"),
			Mode:              strings.ToLower(strings.TrimSpace(configViper.GetString("realtime.mode"))),
			BufferSize:        configViper.GetInt("realtime.buffer_size"),
			ConnectTimeout:    configViper.GetDuration("realtime.connect_timeout"),
			ReconnectAttempts: configViper.GetInt("realtime.reconnect_attempts"),
			ReconnectDelay:    configViper.GetDuration("realtime.reconnect_delay"),
			ReconnectDelayMax: configViper.GetDuration("realtime.reconnect_delay_max"),
			SyntheticInterval: configViper.GetDuration("realtime.synthetic_interval"),
		},
		NotificationTTL: configViper.GetDuration("notification.ttl"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.RateLimitRPS < 1 {
		return fmt.Errorf("http.rate_limit_rps must be positive, got %d", c.RateLimitRPS)
	}
	if err := validateURL("api.base_url", c.APIBaseURL); err != nil {
		return err
	}
	if err := validateURL("realtime.url", c.Realtime.URL); err != nil {
		return err
	}
	switch c.Realtime.Mode {
	case RealtimeModeLive, RealtimeModeSynthetic:
	default:
		return fmt.Errorf("realtime.mode must be %q or %q, got %q", RealtimeModeLive, RealtimeModeSynthetic, c.Realtime.Mode)
	}
	if c.Realtime.BufferSize < 1 {
		return fmt.Errorf("realtime.buffer_size must be positive, got %d", c.Realtime.BufferSize)
	}
	if c.Realtime.ConnectTimeout <= 0 {
		return fmt.Errorf("realtime.connect_timeout must be positive")
	}
	if c.Realtime.ReconnectAttempts < 0 {
		return fmt.Errorf("realtime.reconnect_attempts must not be negative")
	}
	if c.Realtime.ReconnectDelay <= 0 || c.Realtime.ReconnectDelayMax < c.Realtime.ReconnectDelay {
		return fmt.Errorf("realtime.reconnect_delay must be positive and not exceed realtime.reconnect_delay_max")
	}
	if c.Realtime.SyntheticInterval <= 0 {
		return fmt.Errorf("realtime.synthetic_interval must be positive")
	}
	if c.NotificationTTL <= 0 {
		return fmt.Errorf("notification.ttl must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

func validateURL(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", key)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}
