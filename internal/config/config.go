package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port          string
	DBConn        string
	LogLevel      string
	KafkaBrokers  []string
	EventsEnabled bool
	EventsTopic   string
}

// NewConfig loads configuration from the environment, reading a local .env
// file first if one exists. An empty DB_CONN selects the in-memory store.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	eventsEnabled, err := strconv.ParseBool(getEnv("EVENTS_ENABLED", "false"))
	if err != nil {
		eventsEnabled = false
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBConn:        getEnv("DB_CONN", ""),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		KafkaBrokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		EventsEnabled: eventsEnabled,
		EventsTopic:   getEnv("EVENTS_TOPIC", "credit_events"),
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
