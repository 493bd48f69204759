package config

import (
	"os"
	"strconv"

	"pq-sarfi/pkg/config"
)

// Config holds the full pq-sarfi service configuration
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig
	Upstream config.UpstreamConfig

	HTTP struct {
		ListenAddr string
	}

	Sync struct {
		// Meter registry sync mode: "polling" or "disabled"
		Mode string

		Polling struct {
			Interval int // seconds
		}
	}

	Feed struct {
		Enabled bool
		// MQTT topic carrying summarized dip events
		Topic string
	}

	Cache struct {
		Enabled bool
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables with defaults
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "pqsarfi")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "pq-sarfi-1")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")

	cfg.Upstream.BaseURL = getEnv("REGISTRY_BASE_URL", "")
	cfg.Upstream.APIKey = getEnv("REGISTRY_API_KEY", "")
	cfg.Upstream.SyncInterval = getEnvInt("REGISTRY_SYNC_INTERVAL", 300)

	cfg.HTTP.ListenAddr = getEnv("HTTP_LISTEN_ADDR", ":8080")

	cfg.Sync.Mode = getEnv("SYNC_MODE", "polling")
	cfg.Sync.Polling.Interval = getEnvInt("SYNC_POLLING_INTERVAL", 300)

	cfg.Feed.Enabled = getEnv("FEED_ENABLED", "false") == "true"
	cfg.Feed.Topic = getEnv("FEED_TOPIC", "pq/events/dips")

	cfg.Cache.Enabled = getEnv("CACHE_ENABLED", "true") == "true"

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
