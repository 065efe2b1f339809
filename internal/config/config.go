// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the order service
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Mongo     MongoConfig
	JWT       JWTConfig
	Security  SecurityConfig
	Store     StoreConfig
	Checkout  CheckoutConfig
	Payment   PaymentConfig
	Email     EmailConfig
	Company   CompanyConfig
	Telemetry TelemetryConfig
	Logging   LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// DatabaseConfig contains database connection configuration.
// Driver "memory" runs the service without postgres (local development only).
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	AutoMigrate  bool
	SeedData     bool
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// MongoConfig points at the payment event audit store. Empty URI disables it.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// JWTConfig contains JWT token configuration
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
}

// StoreConfig carries pricing rules. Amounts are in minor units.
type StoreConfig struct {
	Currency              string
	TaxRatePercent        string
	StandardShipping      int64
	ExpressShipping       int64
	FreeShippingThreshold int64
}

// CheckoutConfig controls the cart double-submit guard
type CheckoutConfig struct {
	LockTTL      time.Duration
	CompletedTTL time.Duration
}

// PaymentConfig contains webhook verification settings per provider
type PaymentConfig struct {
	StripeWebhookSecret     string
	StripeTolerance         time.Duration
	RazorpayWebhookSecret   string
	PaypalWebhookSecret     string
	SSLCommerzWebhookSecret string
	EventDedupTTL           time.Duration
}

// CompanyConfig is printed on invoices
type CompanyConfig struct {
	Name    string
	Address string
	Email   string
	Phone   string
	TaxID   string
}

// TelemetryConfig contains OpenTelemetry exporter settings
type TelemetryConfig struct {
	OTLPEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

// EmailConfig controls customer notifications. Provider "queue" hands rendered
// emails to the redis outbox, "smtp" sends them directly and "log" only logs them.
type EmailConfig struct {
	Provider     string
	FromEmail    string
	FromName     string
	BaseURL      string
	TemplateDir  string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SendTimeout  time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "storefront-orders"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 15*time.Second),
			MaxBodyBytes:   getEnvAsInt64("SERVER_MAX_BODY_BYTES", 1<<20),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "storefront_orders"),
			User:         getEnv("DB_USER", "storefront"),
			Password:     getEnv("DB_PASSWORD", "storefront"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", true),
			SeedData:     getEnvAsBool("DB_SEED_DATA", false),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", true),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Mongo: MongoConfig{
			URI:        getEnv("MONGO_URI", ""),
			Database:   getEnv("MONGO_DATABASE", "storefront_audit"),
			Collection: getEnv("MONGO_PAYMENT_EVENTS_COLLECTION", "payment_events"),
			Timeout:    getEnvAsDuration("MONGO_TIMEOUT", 10*time.Second),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-in-production"),
			Issuer:            getEnv("JWT_ISSUER", "storefront"),
			AccessTokenExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRE", 24*time.Hour),
		},
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
		},
		Store: StoreConfig{
			Currency:              getEnv("STORE_CURRENCY", "USD"),
			TaxRatePercent:        getEnv("STORE_TAX_RATE_PERCENT", "0"),
			StandardShipping:      getEnvAsInt64("STORE_STANDARD_SHIPPING", 599),
			ExpressShipping:       getEnvAsInt64("STORE_EXPRESS_SHIPPING", 1499),
			FreeShippingThreshold: getEnvAsInt64("STORE_FREE_SHIPPING_THRESHOLD", 5000),
		},
		Checkout: CheckoutConfig{
			LockTTL:      getEnvAsDuration("CHECKOUT_LOCK_TTL", 2*time.Minute),
			CompletedTTL: getEnvAsDuration("CHECKOUT_COMPLETED_TTL", 30*24*time.Hour),
		},
		Payment: PaymentConfig{
			StripeWebhookSecret:     getEnv("STRIPE_WEBHOOK_SECRET", ""),
			StripeTolerance:         getEnvAsDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute),
			RazorpayWebhookSecret:   getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
			PaypalWebhookSecret:     getEnv("PAYPAL_WEBHOOK_SECRET", ""),
			SSLCommerzWebhookSecret: getEnv("SSLCOMMERZ_WEBHOOK_SECRET", ""),
			EventDedupTTL:           getEnvAsDuration("PAYMENT_EVENT_DEDUP_TTL", 7*24*time.Hour),
		},
		Email: EmailConfig{
			Provider:     getEnv("EMAIL_PROVIDER", "log"),
			FromEmail:    getEnv("EMAIL_FROM", "orders@example.com"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Storefront"),
			BaseURL:      getEnv("EMAIL_BASE_URL", "http://localhost:3000"),
			TemplateDir:  getEnv("EMAIL_TEMPLATE_DIR", ""),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SendTimeout:  getEnvAsDuration("EMAIL_SEND_TIMEOUT", 10*time.Second),
		},
		Company: CompanyConfig{
			Name:    getEnv("COMPANY_NAME", "Storefront"),
			Address: getEnv("COMPANY_ADDRESS", ""),
			Email:   getEnv("COMPANY_EMAIL", "support@example.com"),
			Phone:   getEnv("COMPANY_PHONE", ""),
			TaxID:   getEnv("COMPANY_TAX_ID", ""),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			EnableTracing: getEnvAsBool("OTEL_TRACING_ENABLED", false),
			EnableMetrics: getEnvAsBool("OTEL_METRICS_ENABLED", false),
			SampleRate:    getEnvAsFloat("OTEL_SAMPLE_RATE", 1.0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("DB_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	rate, err := decimal.NewFromString(c.Store.TaxRatePercent)
	if err != nil {
		return fmt.Errorf("STORE_TAX_RATE_PERCENT: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("STORE_TAX_RATE_PERCENT must be between 0 and 100")
	}

	if c.Store.StandardShipping < 0 || c.Store.ExpressShipping < 0 || c.Store.FreeShippingThreshold < 0 {
		return fmt.Errorf("shipping rates must not be negative")
	}

	if c.IsProduction() && c.Payment.StripeWebhookSecret == "" && c.Payment.RazorpayWebhookSecret == "" &&
		c.Payment.PaypalWebhookSecret == "" && c.Payment.SSLCommerzWebhookSecret == "" {
		return fmt.Errorf("at least one payment webhook secret is required in production")
	}

	switch c.Email.Provider {
	case "log":
	case "queue":
		if !c.Redis.Enabled {
			return fmt.Errorf("EMAIL_PROVIDER=queue requires REDIS_ENABLED")
		}
	case "smtp":
		if c.Email.SMTPHost == "" || c.Email.SMTPUsername == "" {
			return fmt.Errorf("SMTP_HOST and SMTP_USERNAME are required for EMAIL_PROVIDER=smtp")
		}
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.Email.Provider)
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
	}

	return nil
}

// TaxRate returns the parsed store tax rate in percent
func (c *Config) TaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.Store.TaxRatePercent)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
