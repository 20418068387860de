package config

import (
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field maps 1:1 to a documented env var.
type Config struct {
	// Server
	Port int    `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production

	// Local store
	StorePath string `mapstructure:"STORE_PATH"`

	// Remote POS API
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	APIToken   string `mapstructure:"API_TOKEN"`

	// Terminal identity
	TenantID string `mapstructure:"TENANT_ID"`
	StoreID  string `mapstructure:"STORE_ID"`

	// Sync
	SyncIntervalSeconds    int  `mapstructure:"SYNC_INTERVAL_SECONDS"`
	MonitorIntervalSeconds int  `mapstructure:"MONITOR_INTERVAL_SECONDS"`
	SyncRetryFailed        bool `mapstructure:"SYNC_RETRY_FAILED"`
	SyncMaxAttempts        int  `mapstructure:"SYNC_MAX_ATTEMPTS"`

	// Discount policy
	MaxDiscountPercent  float64 `mapstructure:"MAX_DISCOUNT_PERCENT"`
	MaxDiscountFraction float64 `mapstructure:"MAX_DISCOUNT_FRACTION"`

	// Workers
	WorkerPoolSize int `mapstructure:"WORKER_POOL_SIZE"`

	// SMTP (receipt email)
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	// Receipts
	PDFStoragePath string `mapstructure:"PDF_STORAGE_PATH"`
	BusinessName   string `mapstructure:"BUSINESS_NAME"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Sensible defaults for development
	viper.SetDefault("PORT", 8100)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("STORE_PATH", "cursorpos.db")
	viper.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	viper.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	viper.SetDefault("MONITOR_INTERVAL_SECONDS", 10)
	viper.SetDefault("SYNC_RETRY_FAILED", true)
	viper.SetDefault("SYNC_MAX_ATTEMPTS", 5)
	viper.SetDefault("MAX_DISCOUNT_PERCENT", 20)
	viper.SetDefault("MAX_DISCOUNT_FRACTION", 0.2)
	viper.SetDefault("WORKER_POOL_SIZE", 2)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("PDF_STORAGE_PATH", "/tmp/cursorpos/receipts")
	viper.SetDefault("BUSINESS_NAME", "CursorPOS")

	// Optional .env file for local development; missing file is fine
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
