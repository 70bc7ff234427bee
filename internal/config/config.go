package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cuestionarios/internal/engine"
)

// Config holds the server configuration read from the environment
type Config struct {
	Port      string
	MongoURI  string
	MongoDB   string
	RedisAddr string

	// BackendURL is the questionnaire API sessions talk to; empty means this server
	BackendURL   string
	BackendToken string

	JWTSecret     string
	StaffUsername string
	StaffPassword string

	QuietPeriod      time.Duration
	ShortQuietPeriod time.Duration
	UnlockMode       engine.UnlockMode
	CatalogCacheTTL  time.Duration
	SessionTTL       time.Duration

	LogLevel    string
	LogDev      bool
	CORSOrigins []string
}

// Load reads an optional .env file and then the environment
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "cuestionarios"),
		RedisAddr:     strings.TrimPrefix(getEnv("REDIS_URI", "localhost:6379"), "redis://"),
		BackendURL:    strings.TrimSuffix(os.Getenv("BACKEND_URL"), "/"),
		BackendToken:  os.Getenv("BACKEND_TOKEN"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		StaffUsername: os.Getenv("STAFF_USERNAME"),
		StaffPassword: os.Getenv("STAFF_PASSWORD"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		UnlockMode:    engine.ParseUnlockMode(os.Getenv("UNLOCK_MODE")),
		CORSOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	var err error
	if cfg.QuietPeriod, err = getDuration("SYNC_QUIET_PERIOD", 1500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.ShortQuietPeriod, err = getDuration("SYNC_SHORT_QUIET_PERIOD", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = getDuration("CATALOG_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LogDev, err = strconv.ParseBool(getEnv("LOG_DEV", "false")); err != nil {
		return nil, fmt.Errorf("LOG_DEV: %w", err)
	}
	return cfg, nil
}

// SelfURL is the base URL of this server as seen from inside the process
func (c *Config) SelfURL() string {
	return "http://127.0.0.1:" + c.Port
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
