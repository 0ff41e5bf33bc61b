package config

import (
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig
	Mongo       MongoConfig
	Providers   ProvidersConfig
	Breaker     BreakerConfig
	TTL         TTLConfig
	Auth        AuthConfig
	Logging     LoggingConfig
	Environment string
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// MongoConfig represents MongoDB configuration. An empty URI disables
// persistence and the service runs with in-memory stores only.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// ProvidersConfig represents upstream feed configuration
type ProvidersConfig struct {
	HaremFree  HaremFreeConfig
	RapidHarem RapidHaremConfig
	TCMB       TCMBConfig
}

// HaremFreeConfig represents the free upstream feed
type HaremFreeConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RapidHaremConfig represents the paid RapidAPI upstream feed
type RapidHaremConfig struct {
	BaseURL   string
	Host      string
	APIKey    string
	RateLimit int
	Timeout   time.Duration
}

// TCMBConfig represents the central bank exchange rate feed
type TCMBConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BreakerConfig represents circuit breaker tuning for the free upstream
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// TTLConfig represents cache freshness configuration. Mode is either
// "market_hours" or "fixed".
type TTLConfig struct {
	Mode           string
	Primary        time.Duration
	Secondary      time.Duration
	OffHours       time.Duration
	Timezone       string
	WeekdayWindow  string
	SaturdayWindow string
}

// AuthConfig represents JWT authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string
	Format     string
	Output     string
	Filename   string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DATABASE", "goldprice"),
			Timeout:  getEnvAsDuration("MONGO_TIMEOUT", "10s"),
		},
		Providers: ProvidersConfig{
			HaremFree: HaremFreeConfig{
				BaseURL: getEnv("HAREM_FREE_BASE_URL", "https://canlipiyasalar.haremaltin.com/tmp/altin.json"),
				Timeout: getEnvAsDuration("HAREM_FREE_TIMEOUT", "5s"),
			},
			RapidHarem: RapidHaremConfig{
				BaseURL:   getEnv("RAPID_HAREM_BASE_URL", "https://harem-altin-live-gold-price-data.p.rapidapi.com/harem_altin/prices"),
				Host:      getEnv("RAPID_HAREM_HOST", "harem-altin-live-gold-price-data.p.rapidapi.com"),
				APIKey:    getEnv("RAPID_API_KEY", ""),
				RateLimit: getEnvAsInt("RAPID_HAREM_RATE_LIMIT", 30),
				Timeout:   getEnvAsDuration("RAPID_HAREM_TIMEOUT", "5s"),
			},
			TCMB: TCMBConfig{
				BaseURL: getEnv("TCMB_BASE_URL", "https://www.tcmb.gov.tr/kurlar/today.xml"),
				Timeout: getEnvAsDuration("TCMB_TIMEOUT", "5s"),
			},
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 3),
			Cooldown:         getEnvAsDuration("BREAKER_COOLDOWN", "60s"),
		},
		TTL: TTLConfig{
			Mode:           getEnv("TTL_MODE", "market_hours"),
			Primary:        getEnvAsDuration("TTL_PRIMARY", "15s"),
			Secondary:      getEnvAsDuration("TTL_SECONDARY", "30s"),
			OffHours:       getEnvAsDuration("TTL_OFF_HOURS", "2h"),
			Timezone:       getEnv("MARKET_TIMEZONE", "Europe/Istanbul"),
			WeekdayWindow:  getEnv("MARKET_WEEKDAY_WINDOW", "09:00-18:00"),
			SaturdayWindow: getEnv("MARKET_SATURDAY_WINDOW", "09:00-13:00"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			Filename:   getEnv("LOG_FILENAME", "logs/goldprice-api.log"),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
		},
	}
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Second * 30 // Fallback
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
