package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	NewRelic    NewRelicConfig
	Logger      LoggerConfig
	Reservation ReservationConfig
	Pricing     PricingConfig
	AMQP        AMQPConfig
	Auth        AuthConfig
	Storage     StorageConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis configuration. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level       string
	Development bool
}

// ReservationConfig holds the booking admission and payment window settings.
type ReservationConfig struct {
	MaxRangeDays      int
	PaymentSessionTTL time.Duration // PAYMENT_PENDING bookings are cancelled after this
	SweepInterval     time.Duration // How often overdue payment sessions are swept
	LockWait          time.Duration // Max wait for the per-car admission lock
	LockTTL           time.Duration // Expiry of the distributed per-car lock
}

// PricingConfig holds fee and tax settings.
type PricingConfig struct {
	TaxRateBps      int64
	ServiceFeeCents int64
	Currency        string
}

// AMQPConfig holds RabbitMQ configuration. An empty URL disables publishing.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// AuthConfig holds the admin token settings.
type AuthConfig struct {
	JWTSecret string
}

// StorageConfig selects the persistence backend and document storage location.
type StorageConfig struct {
	Driver            string // "postgres" or "memory"
	DocumentDir       string
	MigrationsEnabled bool
}

// Load loads configuration from environment variables, reading a .env file first when present.
func Load() *Config {
	_ = godotenv.Load(".env")

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "car_rental"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "car-rental-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getBoolEnv("LOG_DEVELOPMENT", false),
		},
		Reservation: ReservationConfig{
			MaxRangeDays:      getIntEnv("RESERVATION_MAX_RANGE_DAYS", 30),
			PaymentSessionTTL: getDurationEnv("RESERVATION_PAYMENT_TTL", 30*time.Minute),
			SweepInterval:     getDurationEnv("RESERVATION_SWEEP_INTERVAL", time.Minute),
			LockWait:          getDurationEnv("RESERVATION_LOCK_WAIT", 2*time.Second),
			LockTTL:           getDurationEnv("RESERVATION_LOCK_TTL", 10*time.Second),
		},
		Pricing: PricingConfig{
			TaxRateBps:      getInt64Env("PRICING_TAX_RATE_BPS", 800),
			ServiceFeeCents: getInt64Env("PRICING_SERVICE_FEE_CENTS", 0),
			Currency:        getEnv("PRICING_CURRENCY", "usd"),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "rental.bookings"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Storage: StorageConfig{
			Driver:            getEnv("STORAGE_DRIVER", "postgres"),
			DocumentDir:       getEnv("DOCUMENT_DIR", "./data/documents"),
			MigrationsEnabled: getBoolEnv("MIGRATIONS_ENABLED", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := cast.ToIntE(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := cast.ToInt64E(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := cast.ToBoolE(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := cast.ToDurationE(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
