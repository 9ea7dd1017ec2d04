package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/pwerioflow/link/pkg/config"
	"github.com/pwerioflow/link/pkg/database"
)

// Config holds all configuration for the linkbio server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"APP_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort     int      `env:"HTTP_PORT" envDefault:"8080"`
	CORSOrigins  []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitRPS float64  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateBurst    int      `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Public URL of the storefront, used for checkout return URLs and QR codes.
	SiteURL string `env:"SITE_URL" envDefault:"http://localhost:8080"`
	// CheckoutURL is where the storefront cart posts checkout requests.
	// Empty means this server's own /api/v1/checkout.
	CheckoutURL string `env:"CHECKOUT_URL"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"linkbio"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"linkbio_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"linkbio"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers         []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" envDefault:"true"`
	WebhookConsumerGroup string   `env:"WEBHOOK_CONSUMER_GROUP" envDefault:"linkbio-webhooks"`

	// Admin auth
	JWTSecret  string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTExpiry  time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	TrialDays  int           `env:"TRIAL_DAYS" envDefault:"7"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	// Storefront read-through cache
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"30s"`

	// Payments
	PaymentProvider     string `env:"PAYMENT_PROVIDER" envDefault:"mock"`
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	StripeMonthlyPrice  int64  `env:"STRIPE_MONTHLY_PRICE_CENTS" envDefault:"2990"`

	// Circuit breaker around the payment provider's HTTP client
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Media. StorageInMemory keeps uploads in process memory.
	StorageDir  string `env:"STORAGE_DIR" envDefault:"./data/media"`
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB" envDefault:"10"`

	// Carts
	CartTTL time.Duration `env:"CART_TTL" envDefault:"2h"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// StorageInMemory is the STORAGE_DIR value that selects in-memory media
// storage.
const StorageInMemory = "memory"

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load linkbio config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if !c.IsDevelopment() && (c.JWTSecret == "" || c.JWTSecret == "dev-secret-change-me") {
		return fmt.Errorf("JWT_SECRET must be set outside development")
	}
	if _, err := url.ParseRequestURI(c.SiteURL); err != nil {
		return fmt.Errorf("invalid SITE_URL %q: %w", c.SiteURL, err)
	}
	if c.CheckoutURL != "" {
		if _, err := url.ParseRequestURI(c.CheckoutURL); err != nil {
			return fmt.Errorf("invalid CHECKOUT_URL %q: %w", c.CheckoutURL, err)
		}
	}
	switch c.PaymentProvider {
	case "mock":
	case "stripe":
		if c.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_PROVIDER=stripe")
		}
		if c.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when PAYMENT_PROVIDER=stripe")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.RateLimitRPS <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL must be positive")
	}
	return nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// CheckoutEndpoint is the URL the cart initiator posts to.
func (c *Config) CheckoutEndpoint() string {
	if c.CheckoutURL != "" {
		return c.CheckoutURL
	}
	return fmt.Sprintf("http://127.0.0.1:%d/api/v1/checkout", c.HTTPPort)
}

// PublicSiteURL is SiteURL without a trailing slash.
func (c *Config) PublicSiteURL() string {
	return strings.TrimRight(c.SiteURL, "/")
}
