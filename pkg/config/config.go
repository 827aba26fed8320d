package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the API server configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Hub      HubConfig      `mapstructure:"hub"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// AuthConfig contains identity provider and session settings
type AuthConfig struct {
	GoogleClientID string        `mapstructure:"google_client_id"`
	GoogleJWKSURL  string        `mapstructure:"google_jwks_url"`
	GoogleIssuer   string        `mapstructure:"google_issuer"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	CookieName     string        `mapstructure:"cookie_name"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
}

// StripeConfig contains payment provider settings
type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	CreditPriceID  string `mapstructure:"credit_price_id"`
	EndpointSecret string `mapstructure:"endpoint_secret"`
	SuccessURL     string `mapstructure:"success_url"`
	CancelURL      string `mapstructure:"cancel_url"`
}

// HubConfig contains inference backend settings
type HubConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	SecretToken    string        `mapstructure:"secret_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BillingConfig contains credit accounting policy settings
type BillingConfig struct {
	// DefaultCredits is the starting balance granted to a new user.
	DefaultCredits int64 `mapstructure:"default_credits"`
	// RefundOnFailure refunds a charge when the hub confirms a dispatch
	// failure. Timeouts and unknown outcomes never refund.
	RefundOnFailure bool `mapstructure:"refund_on_failure"`
	// CreditsPerUSDCent converts purchase amounts to credits.
	CreditsPerUSDCent int64 `mapstructure:"credits_per_usd_cent"`
	// MinPurchaseCredits is the smallest checkout amount accepted.
	MinPurchaseCredits int64 `mapstructure:"min_purchase_credits"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "hub_api")

	// Auth defaults
	viper.SetDefault("auth.google_jwks_url", "https://www.googleapis.com/oauth2/v3/certs")
	viper.SetDefault("auth.google_issuer", "https://accounts.google.com")
	viper.SetDefault("auth.session_ttl", "720h")
	viper.SetDefault("auth.sweep_interval", "1h")
	viper.SetDefault("auth.cookie_name", "hub_session")
	viper.SetDefault("auth.cookie_secure", true)

	// Hub defaults
	viper.SetDefault("hub.request_timeout", "120s")

	// Billing defaults
	viper.SetDefault("billing.default_credits", 1000)
	viper.SetDefault("billing.refund_on_failure", true)
	viper.SetDefault("billing.credits_per_usd_cent", 10000)
	viper.SetDefault("billing.min_purchase_credits", 100000)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.Hub.Endpoint == "" {
		return fmt.Errorf("hub.endpoint is required")
	}
	if config.Stripe.SecretKey != "" && config.Stripe.EndpointSecret == "" {
		return fmt.Errorf("stripe.endpoint_secret is required when stripe.secret_key is set")
	}
	if config.Billing.CreditsPerUSDCent <= 0 {
		return fmt.Errorf("billing.credits_per_usd_cent must be positive")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
