package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage backends selectable through STORAGE_BACKEND.
const (
	StorageBackendFile  = "file"
	StorageBackendMongo = "mongo"
)

const defaultJWTSecret = "a-very-secret-key-should-be-longer-and-random"

// Config holds application configuration.
type Config struct {
	Port         string
	IsProduction bool
	JWTSecret    string
	JWTIssuer    string

	// Storage
	StorageBackend  string
	DataDir         string
	MongoURI        string
	MongoDatabase   string
	StorageTimeout  time.Duration
	LockWaitTimeout time.Duration

	// Penalties
	LateFeeDailyRate decimal.Decimal
	PenaltyCurrency  string

	// Sweeps and notifications
	SweepInterval         time.Duration
	DueSoonWindow         time.Duration
	NotificationQueueSize int

	// HTTP surface
	RateLimit          string
	CORSAllowedOrigins []string
	EnableMetrics      bool
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "checkout-ledger-app")
	v.SetDefault("STORAGE_BACKEND", StorageBackendFile)
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "checkout_ledger")
	v.SetDefault("STORAGE_TIMEOUT", "5s")
	v.SetDefault("LOCK_WAIT_TIMEOUT", "10s")
	v.SetDefault("LATE_FEE_DAILY_RATE", "5")
	v.SetDefault("PENALTY_CURRENCY", "USD")
	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("DUE_SOON_WINDOW", "24h")
	v.SetDefault("NOTIFICATION_QUEUE_SIZE", 256)
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("ENABLE_METRICS", true)
	v.AutomaticEnv()

	cfg := &Config{
		Port:                  v.GetString("PORT"),
		IsProduction:          v.GetBool("IS_PRODUCTION"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		JWTIssuer:             v.GetString("JWT_ISSUER"),
		StorageBackend:        strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
		DataDir:               v.GetString("DATA_DIR"),
		MongoURI:              v.GetString("MONGO_URI"),
		MongoDatabase:         v.GetString("MONGO_DATABASE"),
		PenaltyCurrency:       strings.ToUpper(v.GetString("PENALTY_CURRENCY")),
		NotificationQueueSize: v.GetInt("NOTIFICATION_QUEUE_SIZE"),
		RateLimit:             v.GetString("RATE_LIMIT"),
		CORSAllowedOrigins:    splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		EnableMetrics:         v.GetBool("ENABLE_METRICS"),
	}

	var err error
	if cfg.StorageTimeout, err = parseDuration(v, "STORAGE_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.LockWaitTimeout, err = parseDuration(v, "LOCK_WAIT_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDuration(v, "SWEEP_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.DueSoonWindow, err = parseDuration(v, "DUE_SOON_WINDOW"); err != nil {
		return nil, err
	}

	cfg.LateFeeDailyRate, err = decimal.NewFromString(v.GetString("LATE_FEE_DAILY_RATE"))
	if err != nil {
		return nil, fmt.Errorf("invalid LATE_FEE_DAILY_RATE %q: %w", v.GetString("LATE_FEE_DAILY_RATE"), err)
	}

	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	return cfg, nil
}

// LoadAndValidate loads the configuration and validates it.
func LoadAndValidate() (*Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case StorageBackendFile:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR is required for the file storage backend"))
		}
	case StorageBackendMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_URI and MONGO_DATABASE are required for the mongo storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q (want %q or %q)", c.StorageBackend, StorageBackendFile, StorageBackendMongo))
	}

	if c.StorageTimeout <= 0 {
		errs = append(errs, errors.New("STORAGE_TIMEOUT must be positive"))
	}
	if c.LockWaitTimeout <= 0 {
		errs = append(errs, errors.New("LOCK_WAIT_TIMEOUT must be positive"))
	}
	if c.SweepInterval < time.Minute {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be at least 1m"))
	}
	if c.DueSoonWindow <= 0 {
		errs = append(errs, errors.New("DUE_SOON_WINDOW must be positive"))
	}
	if c.LateFeeDailyRate.IsNegative() {
		errs = append(errs, errors.New("LATE_FEE_DAILY_RATE must not be negative"))
	}
	if len(c.PenaltyCurrency) != 3 {
		errs = append(errs, fmt.Errorf("PENALTY_CURRENCY %q must be a 3-letter code", c.PenaltyCurrency))
	}
	if c.NotificationQueueSize <= 0 {
		errs = append(errs, errors.New("NOTIFICATION_QUEUE_SIZE must be positive"))
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.IsProduction && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be changed in production"))
	}

	return errors.Join(errs...)
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
