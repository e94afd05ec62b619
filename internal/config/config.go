package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Session tokens
	SessionSecret string
	TokenIssuer   string
	TokenAudience string
	TokenTTL      time.Duration

	// Persistence reflector
	ReflectInterval time.Duration

	// Server
	Port        string
	CORSOrigins []string
	Env         string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		TokenIssuer:     getEnv("TOKEN_ISSUER", "https://billetera.local/"),
		TokenAudience:   getEnv("TOKEN_AUDIENCE", "billetera-api"),
		TokenTTL:        getEnvDuration("TOKEN_TTL_MINUTES", 12*time.Hour),
		ReflectInterval: getEnvDuration("REFLECT_INTERVAL_SECONDS", 2*time.Second),
		Port:            getEnv("PORT", "8080"),
		CORSOrigins:     strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:             getEnv("ENV", "development"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	switch {
	case strings.HasSuffix(key, "_MINUTES"):
		return time.Duration(n) * time.Minute
	case strings.HasSuffix(key, "_SECONDS"):
		return time.Duration(n) * time.Second
	default:
		return time.Duration(n) * time.Second
	}
}
