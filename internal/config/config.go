// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/javajoker/paper-ledger/internal/utils"
)

// DefaultRegistryPrincipal is the identity the ledger facade records
// citations as when none is configured. No key exists for it.
const DefaultRegistryPrincipal = "0x0000000000000000000000000000000000000001"

type Config struct {
	Environment    string
	Server         ServerConfig
	Database       DatabaseConfig
	JWT            JWTConfig
	Ledger         LedgerConfig
	Origin         OriginConfig
	Payment        PaymentConfig
	AWS            AWSConfig
	Reconciliation ReconciliationConfig
	Log            LogConfig
	I18n           I18nConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	CORSOrigins  []string
}

type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

// LedgerConfig holds the principals and fee defaults the ledger is seeded with.
type LedgerConfig struct {
	OwnerAdmin        string
	RegistryPrincipal string
	Treasury          string
	FeeBasisPoints    int64
	Currency          string
}

type OriginConfig struct {
	Mode              string // mock or http
	BaseURL           string
	APIKey            string
	Timeout           int // in seconds
	RequestsPerSecond float64
	Burst             int
}

type PaymentConfig struct {
	Mode              string // memory or stripe
	StripeSecretKey   string
	Currency          string
	ConnectedAccounts map[string]string // principal -> Stripe connected account
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ExportBucket    string
	ExportPrefix    string
}

type ReconciliationConfig struct {
	Enabled  bool
	Schedule string
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

type I18nConfig struct {
	DefaultLocale string
	LocalesPath   string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			CORSOrigins:  getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "paper_ledger"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:   getEnv("DB_SQLITE_PATH", "paper_ledger.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24),
		},
		Ledger: LedgerConfig{
			OwnerAdmin:        getEnv("LEDGER_OWNER_ADMIN", ""),
			RegistryPrincipal: getEnv("LEDGER_REGISTRY_PRINCIPAL", DefaultRegistryPrincipal),
			Treasury:          getEnv("LEDGER_TREASURY", ""),
			FeeBasisPoints:    int64(getEnvAsInt("LEDGER_FEE_BASIS_POINTS", 500)),
			Currency:          getEnv("LEDGER_CURRENCY", "usd"),
		},
		Origin: OriginConfig{
			Mode:              getEnv("ORIGIN_MODE", "mock"),
			BaseURL:           getEnv("ORIGIN_BASE_URL", ""),
			APIKey:            getEnv("ORIGIN_API_KEY", ""),
			Timeout:           getEnvAsInt("ORIGIN_TIMEOUT", 10),
			RequestsPerSecond: getEnvAsFloat("ORIGIN_REQUESTS_PER_SECOND", 20),
			Burst:             getEnvAsInt("ORIGIN_BURST", 5),
		},
		Payment: PaymentConfig{
			Mode:              getEnv("PAYMENT_MODE", "memory"),
			StripeSecretKey:   getEnv("STRIPE_SECRET_KEY", ""),
			Currency:          getEnv("LEDGER_CURRENCY", "usd"),
			ConnectedAccounts: getEnvAsMap("STRIPE_CONNECTED_ACCOUNTS"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ExportBucket:    getEnv("AWS_EXPORT_BUCKET", "paper-ledger-exports"),
			ExportPrefix:    getEnv("AWS_EXPORT_PREFIX", "snapshots"),
		},
		Reconciliation: ReconciliationConfig{
			Enabled:  getEnvAsBool("RECONCILE_ENABLED", true),
			Schedule: getEnv("RECONCILE_SCHEDULE", "@every 1h"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
			LocalesPath:   getEnv("LOCALES_PATH", "./internal/i18n/locales"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Ledger.FeeBasisPoints < 0 || c.Ledger.FeeBasisPoints > utils.MaxFeeBasisPoints {
		return fmt.Errorf("fee basis points must be between 0 and %d", utils.MaxFeeBasisPoints)
	}

	for name, principal := range map[string]string{
		"LEDGER_OWNER_ADMIN":        c.Ledger.OwnerAdmin,
		"LEDGER_REGISTRY_PRINCIPAL": c.Ledger.RegistryPrincipal,
		"LEDGER_TREASURY":           c.Ledger.Treasury,
	} {
		if principal == "" {
			if c.Environment == "production" {
				return fmt.Errorf("%s is required in production", name)
			}
			continue
		}
		if _, err := utils.NormalizeAddress(principal); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.Origin.Mode == "http" && c.Origin.BaseURL == "" {
		return fmt.Errorf("ORIGIN_BASE_URL is required when ORIGIN_MODE=http")
	}

	if c.Payment.Mode == "stripe" && c.Payment.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_MODE=stripe")
	}

	return nil
}

// Helper functions
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
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAsMap parses "k1=v1,k2=v2".
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range getEnvAsSlice(key, nil) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
