// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Provider kinds.
const (
	ProviderSnapshot = "snapshot"
	ProviderHTTP     = "http"
)

// Config holds all application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Provider    ProviderConfig    `mapstructure:"provider"`
	Rebalancing RebalancingConfig `mapstructure:"rebalancing"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Server      ServerConfig      `mapstructure:"server"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ProviderConfig selects and tunes the market data source.
type ProviderConfig struct {
	Kind              string        `mapstructure:"kind"` // snapshot | http
	SnapshotPath      string        `mapstructure:"snapshot_path"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	FetchConcurrency  int           `mapstructure:"fetch_concurrency"`
	MarketLimit       int           `mapstructure:"market_limit"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries   int           `mapstructure:"cache_max_entries"`
}

// RebalancingConfig holds the optimizer input. Numeric fields are read as
// floats and exposed as decimals through the helper methods.
type RebalancingConfig struct {
	CollateralAsset           string  `mapstructure:"collateral_asset"`
	BorrowAsset               string  `mapstructure:"borrow_asset"`
	CollateralAmount          float64 `mapstructure:"collateral_amount"`
	InitialLTV                float64 `mapstructure:"initial_ltv"`
	TargetLeverage            float64 `mapstructure:"target_leverage"`
	TotalDebt                 float64 `mapstructure:"total_debt"`
	Protocol                  string  `mapstructure:"protocol"`
	Mode                      string  `mapstructure:"mode"`
	RateThresholdBps          float64 `mapstructure:"rate_threshold_bps"`
	MinAllocationPct          float64 `mapstructure:"min_allocation_pct"`
	MaxAllocationPct          float64 `mapstructure:"max_allocation_pct"`
	UtilizationAlertThreshold float64 `mapstructure:"utilization_alert_threshold"`
	MinSavingsToRebalance     float64 `mapstructure:"min_savings_to_rebalance"`
	LookbackPeriods           int     `mapstructure:"lookback_periods"`
	MinHealthFactor           float64 `mapstructure:"min_health_factor"`
	MarginCallThreshold       float64 `mapstructure:"margin_call_threshold"`
	GasCostUSD                float64 `mapstructure:"gas_cost_usd"`
	SlippageBps               float64 `mapstructure:"slippage_bps"`
	SimulationDays            int     `mapstructure:"simulation_days"`
	SimulationInterval        string  `mapstructure:"simulation_interval"`
	AbortOnLiquidation        bool    `mapstructure:"abort_on_liquidation"`
}

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// CollateralAmountDecimal returns the collateral amount as decimal.Decimal.
func (c *RebalancingConfig) CollateralAmountDecimal() decimal.Decimal { return dec(c.CollateralAmount) }

// InitialLTVDecimal returns the initial LTV as decimal.Decimal.
func (c *RebalancingConfig) InitialLTVDecimal() decimal.Decimal { return dec(c.InitialLTV) }

// TargetLeverageDecimal returns the target leverage as decimal.Decimal.
func (c *RebalancingConfig) TargetLeverageDecimal() decimal.Decimal { return dec(c.TargetLeverage) }

// TotalDebtDecimal returns the explicit total debt as decimal.Decimal.
func (c *RebalancingConfig) TotalDebtDecimal() decimal.Decimal { return dec(c.TotalDebt) }

// RateThresholdBpsDecimal returns the rate threshold as decimal.Decimal.
func (c *RebalancingConfig) RateThresholdBpsDecimal() decimal.Decimal { return dec(c.RateThresholdBps) }

// MinAllocationPctDecimal returns the minimum allocation as decimal.Decimal.
func (c *RebalancingConfig) MinAllocationPctDecimal() decimal.Decimal { return dec(c.MinAllocationPct) }

// MaxAllocationPctDecimal returns the maximum allocation as decimal.Decimal.
func (c *RebalancingConfig) MaxAllocationPctDecimal() decimal.Decimal { return dec(c.MaxAllocationPct) }

// UtilizationAlertThresholdDecimal returns the utilization alert level as decimal.Decimal.
func (c *RebalancingConfig) UtilizationAlertThresholdDecimal() decimal.Decimal {
	return dec(c.UtilizationAlertThreshold)
}

// MinSavingsToRebalanceDecimal returns the minimum annual savings as decimal.Decimal.
func (c *RebalancingConfig) MinSavingsToRebalanceDecimal() decimal.Decimal {
	return dec(c.MinSavingsToRebalance)
}

// MinHealthFactorDecimal returns the minimum health factor as decimal.Decimal.
func (c *RebalancingConfig) MinHealthFactorDecimal() decimal.Decimal { return dec(c.MinHealthFactor) }

// MarginCallThresholdDecimal returns the margin call threshold as decimal.Decimal.
func (c *RebalancingConfig) MarginCallThresholdDecimal() decimal.Decimal {
	return dec(c.MarginCallThreshold)
}

// GasCostUSDDecimal returns the per-rebalance gas cost as decimal.Decimal.
func (c *RebalancingConfig) GasCostUSDDecimal() decimal.Decimal { return dec(c.GasCostUSD) }

// SlippageBpsDecimal returns the slippage as decimal.Decimal.
func (c *RebalancingConfig) SlippageBpsDecimal() decimal.Decimal { return dec(c.SlippageBps) }

// StorageConfig holds result persistence settings.
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ServerConfig holds settings for serve mode.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Schedule string `mapstructure:"schedule"` // cron expression
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ServiceName    string  `mapstructure:"service_name"`
	TraceProvider  string  `mapstructure:"trace_provider"` // console | zipkin | otlp-http | otlp-grpc | empty
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	Insecure       bool    `mapstructure:"insecure"`
	SampleRate     float64 `mapstructure:"sample_rate"`
	PrometheusPort int     `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("REBAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "REBAL_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "REBAL_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "REBAL_LOG_LEVEL", "LOG_LEVEL")

	// Provider
	v.BindEnv("provider.kind", "REBAL_PROVIDER")
	v.BindEnv("provider.snapshot_path", "REBAL_SNAPSHOT_PATH")
	v.BindEnv("provider.base_url", "REBAL_PROVIDER_URL")
	v.BindEnv("provider.api_key", "REBAL_PROVIDER_API_KEY")

	// Rebalancing
	v.BindEnv("rebalancing.collateral_asset", "REBAL_COLLATERAL")
	v.BindEnv("rebalancing.borrow_asset", "REBAL_BORROW")
	v.BindEnv("rebalancing.collateral_amount", "REBAL_COLLATERAL_AMOUNT")
	v.BindEnv("rebalancing.target_leverage", "REBAL_TARGET_LEVERAGE")
	v.BindEnv("rebalancing.mode", "REBAL_MODE")

	// Storage and server
	v.BindEnv("storage.path", "REBAL_DB_PATH")
	v.BindEnv("server.port", "REBAL_PORT", "PORT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "REBAL_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "REBAL_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "REBAL_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "debt-rebalancer")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Provider
	v.SetDefault("provider.kind", ProviderSnapshot)
	v.SetDefault("provider.snapshot_path", "./data/snapshot.json")
	v.SetDefault("provider.timeout", "15s")
	v.SetDefault("provider.requests_per_minute", 0)
	v.SetDefault("provider.fetch_concurrency", 4)
	v.SetDefault("provider.market_limit", 100)
	v.SetDefault("provider.cache_ttl", "300s")
	v.SetDefault("provider.cache_max_entries", 512)

	// Rebalancing
	v.SetDefault("rebalancing.collateral_asset", "wstETH")
	v.SetDefault("rebalancing.borrow_asset", "WETH")
	v.SetDefault("rebalancing.collateral_amount", 10)
	v.SetDefault("rebalancing.initial_ltv", 0)
	v.SetDefault("rebalancing.target_leverage", 3)
	v.SetDefault("rebalancing.total_debt", 0)
	v.SetDefault("rebalancing.protocol", "morpho")
	v.SetDefault("rebalancing.mode", "dynamic_rate")
	v.SetDefault("rebalancing.rate_threshold_bps", 10)
	v.SetDefault("rebalancing.min_allocation_pct", 0.05)
	v.SetDefault("rebalancing.max_allocation_pct", 0.80)
	v.SetDefault("rebalancing.utilization_alert_threshold", 0.90)
	v.SetDefault("rebalancing.min_savings_to_rebalance", 10)
	v.SetDefault("rebalancing.lookback_periods", 24)
	v.SetDefault("rebalancing.min_health_factor", 1.2)
	v.SetDefault("rebalancing.margin_call_threshold", 1.15)
	v.SetDefault("rebalancing.gas_cost_usd", 5)
	v.SetDefault("rebalancing.slippage_bps", 5)
	v.SetDefault("rebalancing.simulation_days", 30)
	v.SetDefault("rebalancing.simulation_interval", "HOUR")
	v.SetDefault("rebalancing.abort_on_liquidation", false)

	// Storage
	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.path", "./data/results.db")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.schedule", "@every 1h")

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "debt-rebalancer")
	v.SetDefault("telemetry.trace_provider", "console")
	v.SetDefault("telemetry.sample_rate", 1.0)
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate checks settings the application needs before any module starts.
// Optimizer inputs are validated by the rebalancing domain.
func (c *Config) Validate() error {
	switch c.Provider.Kind {
	case ProviderSnapshot:
		if c.Provider.SnapshotPath == "" {
			return fmt.Errorf("provider.snapshot_path is required for the snapshot provider")
		}
	case ProviderHTTP:
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("provider.base_url is required for the http provider")
		}
	default:
		return fmt.Errorf("unknown provider.kind: %q", c.Provider.Kind)
	}
	if c.Provider.FetchConcurrency <= 0 {
		return fmt.Errorf("provider.fetch_concurrency must be positive")
	}
	for _, a := range []string{c.Rebalancing.CollateralAsset, c.Rebalancing.BorrowAsset} {
		if strings.HasPrefix(a, "0x") && !common.IsHexAddress(a) {
			return fmt.Errorf("invalid asset address: %s", a)
		}
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required when storage is enabled")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	return nil
}
