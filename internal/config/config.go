// Package config loads the daemon configuration from file and
// environment with viper.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// AdapterConfig describes one JSON-RPC coin backend.
type AdapterConfig struct {
	Symbol         string        `mapstructure:"symbol"`
	Name           string        `mapstructure:"name"`
	URL            string        `mapstructure:"url"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	DecimalPlaces  int32         `mapstructure:"decimal_places"`
	ListBatch      int           `mapstructure:"list_batch"`
	// ConfirmTarget is the on-chain confirmation count at which
	// deposits and withdrawals finalize.
	ConfirmTarget int `mapstructure:"confirm_target"`
	// WithdrawFee is the flat fee charged per withdrawal, as a decimal
	// string.
	WithdrawFee string `mapstructure:"withdraw_fee"`
}

// EventsConfig wires the outbound notification fan-out.
type EventsConfig struct {
	Topic         string   `mapstructure:"topic"`
	KafkaBrokers  []string `mapstructure:"kafka_brokers"`
	RedisEnabled  bool     `mapstructure:"redis_enabled"`
	WebhookURL    string   `mapstructure:"webhook_url"`
	WebhookSecret string   `mapstructure:"webhook_secret"`
}

// Config is the full daemon configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	HTTPAddr string `mapstructure:"http_addr"`

	// Scope partitions the ledger, typically one scope per deployment.
	Scope string `mapstructure:"scope"`

	DatabaseDSN string `mapstructure:"database_dsn"`
	RedisAddr   string `mapstructure:"redis_addr"`

	// Interval is a preset name: 5m, 10m, 20m, 30m, 1h or 4h.
	Interval             string        `mapstructure:"interval"`
	ReconcileTimeout     time.Duration `mapstructure:"reconcile_timeout"`
	ReconcileConcurrency int           `mapstructure:"reconcile_concurrency"`

	ConfirmWithdrawAdmin bool `mapstructure:"confirm_withdraw_admin"`
	ConfirmWithdrawUser  bool `mapstructure:"confirm_withdraw_user"`
	ConfirmMoveAdmin     bool `mapstructure:"confirm_move_admin"`
	ConfirmMoveUser      bool `mapstructure:"confirm_move_user"`

	MaxRetries int    `mapstructure:"max_retries"`
	MoveFee    string `mapstructure:"move_fee"`

	Adapters []AdapterConfig `mapstructure:"adapters"`
	Events   EventsConfig    `mapstructure:"events"`
}

// MoveFeeDecimal parses the configured move fee, defaulting to zero.
func (c *Config) MoveFeeDecimal() (decimal.Decimal, error) {
	if c.MoveFee == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(c.MoveFee)
}

// Load reads walletcore.yaml from path (or the working directory and
// /etc/walletcore when path is empty), then applies WALLETCORE_*
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("scope", "default")
	v.SetDefault("interval", "10m")
	v.SetDefault("reconcile_timeout", 2*time.Minute)
	v.SetDefault("reconcile_concurrency", 4)
	v.SetDefault("confirm_withdraw_admin", true)
	v.SetDefault("max_retries", 3)
	v.SetDefault("events.topic", "wallet.events")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("walletcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/walletcore")
	}
	v.SetEnvPrefix("WALLETCORE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("database_dsn is required")
	}
	return &cfg, nil
}
