package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port           string
	Env            string
	APIBaseURL     string
	APITimeout     time.Duration // zero means no timeout
	PollInterval   time.Duration
	SessionSecret  string
	SessionDBPath  string
	SessionIdleTTL time.Duration
	PostgresUrl    string
	MongoURI       string
	MongoDatabase  string
	LogLevel       string
	MetricsEnabled bool
}

// Load reads the configuration from the environment, after loading .env if
// one exists.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:           getEnv("PORT", "3000"),
		Env:            getEnv("ENV", "development"),
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8080/api"),
		APITimeout:     getDuration("API_TIMEOUT", 0),
		PollInterval:   getDuration("POLL_INTERVAL", 10*time.Second),
		SessionSecret:  getEnv("SESSION_SECRET", "development-secret"),
		SessionDBPath:  getEnv("SESSION_DB_PATH", defaultSessionDBPath()),
		SessionIdleTTL: getDuration("SESSION_IDLE_TTL", 30*time.Minute),
		PostgresUrl:    getEnv("POSTGRES_URL", ""),
		MongoURI:       getEnv("MONGO_URI", ""),
		MongoDatabase:  getEnv("MONGO_DATABASE", "skillshare"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MetricsEnabled: getBool("METRICS_ENABLED", true),
	}
}

// IsDevelopment reports whether ENV is "development".
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

func defaultSessionDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "skillshare.db"
	}
	return filepath.Join(home, ".skillshare", "session.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid duration %q, using %s", value, defaultValue)
		return defaultValue
	}
	return d
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid boolean %q, using %t", value, defaultValue)
		return defaultValue
	}
	return b
}
