package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"bid-activity-alerts/internal/logging"
	"bid-activity-alerts/internal/monitor"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the audit
// store. An empty DSN disables persistence.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MonitorConfig governs engine thresholds and cadence.
type MonitorConfig struct {
	HighActivityThreshold  int            `mapstructure:"high_activity_threshold"`
	PriceIncreaseThreshold float64        `mapstructure:"price_increase_threshold_pct"`
	MinHighPriceThreshold  float64        `mapstructure:"min_high_price_threshold"`
	EndingSoonThreshold    time.Duration  `mapstructure:"ending_soon_threshold"`
	NoActivityThreshold    time.Duration  `mapstructure:"no_activity_threshold"`
	BidHistorySize         int            `mapstructure:"bid_history_size"`
	UpdateInterval         time.Duration  `mapstructure:"update_interval"`
	Cooldowns              CooldownConfig `mapstructure:"cooldowns"`
}

// CooldownConfig sets the per-kind alert cooldowns.
type CooldownConfig struct {
	HighActivity      time.Duration `mapstructure:"high_activity"`
	FastPriceIncrease time.Duration `mapstructure:"fast_price_increase"`
	NewHighPrice      time.Duration `mapstructure:"new_high_price"`
	EndingSoon        time.Duration `mapstructure:"ending_soon"`
	NoActivity        time.Duration `mapstructure:"no_activity"`
	Default           time.Duration `mapstructure:"default"`
}

// AlertingConfig defines alert delivery routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BIDWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bidwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("monitor.high_activity_threshold", 5)
	v.SetDefault("monitor.price_increase_threshold_pct", 10.0)
	v.SetDefault("monitor.min_high_price_threshold", 100000.0)
	v.SetDefault("monitor.ending_soon_threshold", "60s")
	v.SetDefault("monitor.no_activity_threshold", "5m")
	v.SetDefault("monitor.bid_history_size", 20)
	v.SetDefault("monitor.update_interval", "10s")
	v.SetDefault("monitor.cooldowns.high_activity", "3m")
	v.SetDefault("monitor.cooldowns.fast_price_increase", "1m")
	v.SetDefault("monitor.cooldowns.new_high_price", "1m")
	v.SetDefault("monitor.cooldowns.ending_soon", "30s")
	v.SetDefault("monitor.cooldowns.no_activity", "10m")
	v.SetDefault("monitor.cooldowns.default", "5m")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Monitor.BidHistorySize <= 0 {
		return fmt.Errorf("monitor.bid_history_size must be greater than zero")
	}
	if c.Monitor.UpdateInterval <= 0 {
		return fmt.Errorf("monitor.update_interval must be greater than zero")
	}
	if c.Monitor.HighActivityThreshold <= 0 {
		return fmt.Errorf("monitor.high_activity_threshold must be greater than zero")
	}
	if c.Monitor.PriceIncreaseThreshold < 0 {
		return fmt.Errorf("monitor.price_increase_threshold_pct cannot be negative")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// MonitorSettings converts the configured thresholds into engine
// settings.
func (c *Config) MonitorSettings() monitor.Settings {
	return monitor.Settings{
		HighActivityThreshold:  c.Monitor.HighActivityThreshold,
		PriceIncreaseThreshold: c.Monitor.PriceIncreaseThreshold,
		MinHighPriceThreshold:  decimal.NewFromFloat(c.Monitor.MinHighPriceThreshold),
		EndingSoonThreshold:    c.Monitor.EndingSoonThreshold,
		NoActivityThreshold:    c.Monitor.NoActivityThreshold,
		BidHistorySize:         c.Monitor.BidHistorySize,
		UpdateInterval:         c.Monitor.UpdateInterval,
		Cooldowns: monitor.CooldownSettings{
			HighActivity:      c.Monitor.Cooldowns.HighActivity,
			FastPriceIncrease: c.Monitor.Cooldowns.FastPriceIncrease,
			NewHighPrice:      c.Monitor.Cooldowns.NewHighPrice,
			EndingSoon:        c.Monitor.Cooldowns.EndingSoon,
			NoActivity:        c.Monitor.Cooldowns.NoActivity,
			Default:           c.Monitor.Cooldowns.Default,
		},
	}
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
