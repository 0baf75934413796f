package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"solscreener/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Screener   ScreenerConfig   `mapstructure:"screener"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Weights    WeightsConfig    `mapstructure:"weights"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ScreenerConfig governs a single screening run.
type ScreenerConfig struct {
	Chain           string        `mapstructure:"chain"`
	Workers         int           `mapstructure:"workers"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	HistoryLookback time.Duration `mapstructure:"history_lookback"`
}

// ThresholdsConfig holds the pass/fail floors and ceilings applied to each
// candidate. MinVolumeUSD and MinAge are optional extras; zero disables them.
type ThresholdsConfig struct {
	MinLiquidityUSD      float64       `mapstructure:"min_liquidity_usd"`
	MinTxCount           int64         `mapstructure:"min_tx_count"`
	MaxHolderShare       float64       `mapstructure:"max_holder_share"`
	RequireLiquidityLock bool          `mapstructure:"require_liquidity_lock"`
	MinVolumeUSD         float64       `mapstructure:"min_volume_usd"`
	MinAge               time.Duration `mapstructure:"min_age"`
}

// WeightsConfig parameterises the weighted score. Weights need not sum to 1.
type WeightsConfig struct {
	TxCount    float64 `mapstructure:"tx_count"`
	Volume     float64 `mapstructure:"volume"`
	Liquidity  float64 `mapstructure:"liquidity"`
	TrendBonus float64 `mapstructure:"trend_bonus"`
	MinScore   float64 `mapstructure:"min_score"`
}

// UpstreamConfig captures token-metadata API connectivity. AuditBaseURL
// points at the holder/lock data provider; when empty the audit lookup is
// skipped and records carry zero concentration and unlocked status.
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AuditBaseURL   string        `mapstructure:"audit_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestsPerMin int           `mapstructure:"requests_per_min"`
	MaxRetries     int           `mapstructure:"max_retries"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the optional
// snapshot store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WatchConfig governs the watch-mode cadence.
type WatchConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines alert routing for watch mode.
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
	v.SetEnvPrefix("SOLSCREENER")
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
	v.SetDefault("app.name", "solscreener")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("screener.chain", "solana")
	v.SetDefault("screener.workers", 4)
	v.SetDefault("screener.fetch_timeout", "10s")
	v.SetDefault("screener.history_lookback", "168h")

	v.SetDefault("thresholds.min_liquidity_usd", 10000.0)
	v.SetDefault("thresholds.min_tx_count", int64(300))
	v.SetDefault("thresholds.max_holder_share", 0.30)
	v.SetDefault("thresholds.require_liquidity_lock", true)
	v.SetDefault("thresholds.min_volume_usd", 0.0)
	v.SetDefault("thresholds.min_age", "0s")

	v.SetDefault("weights.tx_count", 0.2)
	v.SetDefault("weights.volume", 0.3)
	v.SetDefault("weights.liquidity", 0.4)
	v.SetDefault("weights.trend_bonus", 0.1)
	v.SetDefault("weights.min_score", 0.0)

	v.SetDefault("upstream.base_url", "https://api.dexscreener.com")
	v.SetDefault("upstream.request_timeout", "10s")
	v.SetDefault("upstream.user_agent", "solscreener/1.0")
	v.SetDefault("upstream.requests_per_min", 60)
	v.SetDefault("upstream.max_retries", 3)
	v.SetDefault("upstream.cache_ttl", "60s")

	v.SetDefault("watch.interval", "5m")
	v.SetDefault("watch.align_to_bucket", true)
	v.SetDefault("watch.startup_delay", "0s")

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
	if c.Screener.Chain == "" {
		return fmt.Errorf("screener.chain must be set")
	}
	if c.Screener.Workers < 1 {
		return fmt.Errorf("screener.workers must be at least 1")
	}
	if c.Thresholds.MinLiquidityUSD < 0 {
		return fmt.Errorf("thresholds.min_liquidity_usd cannot be negative")
	}
	if c.Thresholds.MinTxCount < 0 {
		return fmt.Errorf("thresholds.min_tx_count cannot be negative")
	}
	if c.Thresholds.MaxHolderShare < 0 || c.Thresholds.MaxHolderShare > 1 {
		return fmt.Errorf("thresholds.max_holder_share must be within [0,1]")
	}
	if c.Weights.TxCount < 0 || c.Weights.Volume < 0 || c.Weights.Liquidity < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url must be set")
	}
	if c.Upstream.RequestsPerMin <= 0 {
		return fmt.Errorf("upstream.requests_per_min must be greater than zero")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
