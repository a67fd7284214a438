package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything the service reads from the environment
type Config struct {
	Port           int
	DatabaseDriver string
	DatabaseURL    string
	UserSerializer string
	SessionTTL     time.Duration
	LogLevel       logrus.Level
	LogFormat      string
	AllowedOrigins []string
}

// Load reads .env files (when present) and then the environment
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Load",
		}).Debug("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           8080,
		DatabaseDriver: getenv("DATABASE_DRIVER", "sqlite3"),
		DatabaseURL:    getenv("DATABASE_URL", "friendgraph.db"),
		UserSerializer: getenv("USER_SERIALIZER", "id"),
		SessionTTL:     7 * 24 * time.Hour,
		LogLevel:       logrus.InfoLevel,
		LogFormat:      strings.ToLower(getenv("LOG_FORMAT", "text")),
		AllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "*")),
	}

	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}

	if v, ok := os.LookupEnv("SESSION_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid SESSION_TTL %q", v)
		}
		cfg.SessionTTL = ttl
	}

	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
		cfg.LogLevel = level
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}

	return cfg, nil
}

// Addr is the listen address
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// ConfigureLogging applies the log level and format to the standard logger
func (c *Config) ConfigureLogging() {
	logrus.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
