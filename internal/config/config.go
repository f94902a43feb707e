package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type Config struct {
	Port           string
	StoreDriver    string
	MongoURI       string
	DatabaseURL    string
	JWTSecret      string
	TokenTTL       time.Duration
	CORSOrigin     string
	AuthRateLimit  int
	AuthRateWindow time.Duration
	// TrustProxy keys rate limiting on X-Forwarded-For. Enable it only when
	// a proxy in front of the API overwrites that header.
	TrustProxy bool
}

// Load reads the given env files (".env" when none are named) and then the
// process environment. Variables already set in the environment win over the
// files. A missing env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading env file: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		StoreDriver: getEnv("STORE_DRIVER", DriverMongo),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/taskdb"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET_KEY"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "https://aahanvyom.github.io"),
	}

	expires, err := getEnvInt("JWT_EXPIRES_SECONDS", 3600)
	if err != nil {
		return nil, err
	}
	cfg.TokenTTL = time.Duration(expires) * time.Second

	if cfg.AuthRateLimit, err = getEnvInt("AUTH_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	window := getEnv("AUTH_RATE_WINDOW", "15m")
	if cfg.AuthRateWindow, err = time.ParseDuration(window); err != nil {
		return nil, fmt.Errorf("AUTH_RATE_WINDOW %q: %w", window, err)
	}

	trustProxy := getEnv("TRUST_PROXY", "false")
	if cfg.TrustProxy, err = strconv.ParseBool(trustProxy); err != nil {
		return nil, fmt.Errorf("TRUST_PROXY %q: %w", trustProxy, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET_KEY must be at least 32 characters")
	}
	if c.TokenTTL <= 0 {
		return errors.New("JWT_EXPIRES_SECONDS must be positive")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateWindow <= 0 {
		return errors.New("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive")
	}
	if c.Port == "" {
		return errors.New("PORT must be set")
	}

	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI must be set for the mongo store")
		}
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the %s store", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// DSN returns the connection string for the configured store driver.
func (c *Config) DSN() string {
	if c.StoreDriver == DriverMongo {
		return c.MongoURI
	}
	return c.DatabaseURL
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return n, nil
}
