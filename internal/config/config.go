package config

import (
	"context"
	"fmt"
	"os"

	"github.com/gregtusar/gerchik/pkg/binance"
	"github.com/gregtusar/gerchik/pkg/secrets"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Binance BinanceConfig `mapstructure:"binance"`
	Order   OrderConfig   `mapstructure:"order"`
	ATR     ATRConfig     `mapstructure:"atr"`
	Plan    PlanConfig    `mapstructure:"plan"`
	Logging LoggingConfig `mapstructure:"logging"`
	GCP     GCPConfig     `mapstructure:"gcp"`
}

type BinanceConfig struct {
	// Credentials come from the environment or the secret store, never
	// from the config file.
	APIKey    string `mapstructure:"-"`
	APISecret string `mapstructure:"-"`

	BaseURL               string   `mapstructure:"base_url"`
	KlineEndpoints        []string `mapstructure:"kline_endpoints"`
	PremiumIndexEndpoints []string `mapstructure:"premium_index_endpoints"`
}

type OrderConfig struct {
	Symbol       string  `mapstructure:"symbol"`
	Side         string  `mapstructure:"side"`          // BUY or SELL
	Quantity     string  `mapstructure:"quantity"`      // "12.345", "10usdt" or "10%"
	StopPrice    float64 `mapstructure:"stop_price"`    // trigger price
	PositionSide string  `mapstructure:"position_side"` // BOTH, LONG or SHORT
	WorkingType  string  `mapstructure:"working_type"`  // MARK_PRICE or CONTRACT_PRICE, optional
	PriceProtect bool    `mapstructure:"price_protect"`
	ReduceOnly   bool    `mapstructure:"reduce_only"`
}

type ATRConfig struct {
	Symbol string `mapstructure:"symbol"`
	Limit  int    `mapstructure:"limit"` // candles requested; only the last 5 closed are used
}

type PlanConfig struct {
	Symbol          string    `mapstructure:"symbol"`
	Direction       string    `mapstructure:"direction"` // long or short
	LevelPrice      float64   `mapstructure:"level_price"`
	EntryMultiplier float64   `mapstructure:"entry_multiplier"`
	StopMultiplier  float64   `mapstructure:"stop_multiplier"`
	RiskMultiples   []float64 `mapstructure:"risk_multiples"`
	Limit           int       `mapstructure:"limit"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GCPConfig struct {
	ProjectID   string              `mapstructure:"project_id"`
	UseSecrets  bool                `mapstructure:"use_secrets"`
	SecretNames secrets.SecretNames `mapstructure:"secret_names"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/gerchik")
	}

	v.SetEnvPrefix("GERCHIK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&config)

	if config.GCP.UseSecrets && config.GCP.ProjectID != "" {
		ctx := context.Background()
		logger := logrus.New()
		if err := loadSecretsFromGCP(ctx, &config, logger); err != nil {
			return nil, fmt.Errorf("error loading secrets from GCP: %w", err)
		}
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Exchange defaults
	v.SetDefault("binance.base_url", binance.DefaultBaseURL)
	v.SetDefault("binance.kline_endpoints", binance.DefaultKlineEndpoints)
	v.SetDefault("binance.premium_index_endpoints", binance.DefaultPremiumIndexEndpoints)

	// Order defaults
	v.SetDefault("order.side", "SELL")
	v.SetDefault("order.position_side", "BOTH")

	// ATR defaults
	v.SetDefault("atr.limit", 12)

	// Plan defaults
	v.SetDefault("plan.direction", "long")
	v.SetDefault("plan.entry_multiplier", 0.05)
	v.SetDefault("plan.stop_multiplier", 0.25)
	v.SetDefault("plan.risk_multiples", []float64{1, 2, 3})
	v.SetDefault("plan.limit", 12)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// GCP defaults
	v.SetDefault("gcp.use_secrets", false)
	v.SetDefault("gcp.project_id", "")

	secretNames := secrets.DefaultSecretNames()
	v.SetDefault("gcp.secret_names.api_key", secretNames.APIKey)
	v.SetDefault("gcp.secret_names.api_secret", secretNames.APISecret)
}

func overrideFromEnv(config *Config) {
	// Binance credentials from environment
	if apiKey := os.Getenv("BINANCE_API_KEY"); apiKey != "" {
		config.Binance.APIKey = apiKey
	}
	if apiSecret := os.Getenv("BINANCE_API_SECRET"); apiSecret != "" {
		config.Binance.APISecret = apiSecret
	}

	// GCP configuration from environment
	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		config.GCP.ProjectID = projectID
	}
	if useSecrets := os.Getenv("GCP_USE_SECRETS"); useSecrets == "true" {
		config.GCP.UseSecrets = true
	}
}

func loadSecretsFromGCP(ctx context.Context, config *Config, logger *logrus.Logger) error {
	secretManager, err := secrets.NewGCPSecretManager(ctx, config.GCP.ProjectID, logger)
	if err != nil {
		return fmt.Errorf("failed to create secret manager: %w", err)
	}
	defer secretManager.Close()

	// Only load secrets that the environment did not already provide
	if config.Binance.APIKey == "" {
		config.Binance.APIKey = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.APIKey, "")
	}
	if config.Binance.APISecret == "" {
		config.Binance.APISecret = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.APISecret, "")
	}

	logger.Info("Successfully loaded secrets from GCP Secret Manager")
	return nil
}

// ValidateCredentials fails fast when a signed endpoint would be called
// without credentials.
func (c *Config) ValidateCredentials() error {
	if c.Binance.APIKey == "" || c.Binance.APISecret == "" {
		return fmt.Errorf("missing Binance credentials: set BINANCE_API_KEY and BINANCE_API_SECRET or enable GCP secrets")
	}
	return nil
}

// ValidateOrder checks the order section before anything touches the
// network.
func (c *Config) ValidateOrder() error {
	if c.Order.Symbol == "" {
		return fmt.Errorf("order.symbol is required")
	}
	if c.Order.Side != "BUY" && c.Order.Side != "SELL" {
		return fmt.Errorf("order.side must be BUY or SELL, got %q", c.Order.Side)
	}
	if c.Order.PositionSide != "BOTH" && c.Order.PositionSide != "LONG" && c.Order.PositionSide != "SHORT" {
		return fmt.Errorf("order.position_side must be BOTH, LONG or SHORT, got %q", c.Order.PositionSide)
	}
	if c.Order.StopPrice <= 0 {
		return fmt.Errorf("order.stop_price must be positive, got %v", c.Order.StopPrice)
	}
	if c.Order.Quantity == "" {
		return fmt.Errorf("order.quantity is required")
	}
	if c.Order.WorkingType != "" && c.Order.WorkingType != "MARK_PRICE" && c.Order.WorkingType != "CONTRACT_PRICE" {
		return fmt.Errorf("order.working_type must be MARK_PRICE or CONTRACT_PRICE, got %q", c.Order.WorkingType)
	}
	return nil
}
