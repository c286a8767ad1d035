// Package config provides runtime configuration values for the service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Log     LogConfig
	Notify  NotifyConfig
	Mailbox MailboxConfig
}

// AppConfig holds application-specific settings.
type AppConfig struct {
	Name string
	Env  string
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// NotifyConfig holds confirmation dispatcher settings.
type NotifyConfig struct {
	Buffer        int
	HighWatermark int
}

// MailboxConfig holds the IMAP settings shared by all store mailboxes plus
// the per-store credential table.
type MailboxConfig struct {
	Host         string
	Port         int
	TLS          bool
	InsecureTLS  bool
	PollInterval time.Duration
	Stores       []StoreMailbox
}

// StoreMailbox binds one store id to its inbox credentials.
type StoreMailbox struct {
	StoreID  int64  `mapstructure:"store_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Load loads configuration from config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with SHOPMESH_ prefix (e.g. SHOPMESH_MAILBOX_HOST)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply.
	}

	v.SetEnvPrefix("SHOPMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Notify: NotifyConfig{
			Buffer:        v.GetInt("notify.buffer"),
			HighWatermark: v.GetInt("notify.high_watermark"),
		},
		Mailbox: MailboxConfig{
			Host:         v.GetString("mailbox.host"),
			Port:         v.GetInt("mailbox.port"),
			TLS:          v.GetBool("mailbox.tls"),
			InsecureTLS:  v.GetBool("mailbox.insecure_tls"),
			PollInterval: v.GetDuration("mailbox.poll_interval"),
		},
	}

	if err := v.UnmarshalKey("mailbox.stores", &cfg.Mailbox.Stores); err != nil {
		return nil, fmt.Errorf("error parsing mailbox store table: %w", err)
	}

	applyEnvPasswords(cfg.Mailbox.Stores)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "shopmesh")
	v.SetDefault("app.env", "development")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("notify.buffer", 64)
	v.SetDefault("notify.high_watermark", 5000)
	v.SetDefault("mailbox.host", "imap.gmail.com")
	v.SetDefault("mailbox.port", 993)
	v.SetDefault("mailbox.tls", true)
	v.SetDefault("mailbox.insecure_tls", false)
	v.SetDefault("mailbox.poll_interval", 60*time.Second)
}

// applyEnvPasswords fills in passwords injected through the environment
// rather than written into config.toml: SHOPMESH_STORE<ID>_PASSWORD.
func applyEnvPasswords(stores []StoreMailbox) {
	for i := range stores {
		if stores[i].Password == "" {
			stores[i].Password = os.Getenv(fmt.Sprintf("SHOPMESH_STORE%d_PASSWORD", stores[i].StoreID))
		}
	}
}

// Validate checks the configuration at startup so a bad mailbox table fails
// fast instead of surfacing as a dead watcher later.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must not be empty")
	}
	seen := make(map[int64]bool, len(c.Mailbox.Stores))
	for _, s := range c.Mailbox.Stores {
		if s.StoreID <= 0 {
			return fmt.Errorf("mailbox store_id must be positive, got %d", s.StoreID)
		}
		if seen[s.StoreID] {
			return fmt.Errorf("duplicate mailbox entry for store %d", s.StoreID)
		}
		seen[s.StoreID] = true
		if s.Username == "" {
			return fmt.Errorf("mailbox username missing for store %d", s.StoreID)
		}
	}
	if len(c.Mailbox.Stores) > 0 && c.Mailbox.Host == "" {
		return fmt.Errorf("mailbox.host must be set when store mailboxes are configured")
	}
	return nil
}
