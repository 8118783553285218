// Package config provides configuration management for the vesselsync standalone agent.
// It loads settings from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/coregx/vesselsync"
)

// Config holds all configuration for the vesselsync agent.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Broker   BrokerConfig
	Sync     SyncConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string // Table prefix (default: "vesselsync_")
}

// BrokerConfig holds MQTT broker connection configuration.
type BrokerConfig struct {
	URL               string // tcp://host:1883 or mqtts://host:8883
	ClientIDPrefix    string
	ReconnectInterval int  // Max auto-reconnect interval in seconds
	ConnectTimeout    int  // Initial connect wait in seconds
	DefaultQoS        int  // QoS for entity classes without an override (0-2)
	TLS               bool // Explicit flag; defaults to the URL scheme derivation
}

// SyncConfig holds sync-specific configuration.
type SyncConfig struct {
	QueueMax            int  // Offline queue capacity
	OutboxBatchSize     int  // Outbox sweep batch size
	OutboxInterval      int  // Outbox sweep interval in seconds
	DeadLetterThreshold int  // Attempts before an outbox event is flagged failed
	EnableNotifications bool // Enable notification service
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	brokerURL := getEnv("MQTT_BROKER_URL", "")

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "mysql"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "vesselsync"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "vesselsync"),
			Prefix:   getEnv("DB_PREFIX", "vesselsync_"),
		},
		Broker: BrokerConfig{
			URL:               brokerURL,
			ClientIDPrefix:    getEnv("MQTT_CLIENT_ID_PREFIX", "vesselsync"),
			ReconnectInterval: getEnvInt("MQTT_RECONNECT_INTERVAL", 60),
			ConnectTimeout:    getEnvInt("MQTT_CONNECT_TIMEOUT", 10),
			DefaultQoS:        getEnvInt("MQTT_DEFAULT_QOS", 1),
			// Explicit MQTT_TLS wins; otherwise derive from the URL scheme.
			TLS: getEnvBool("MQTT_TLS", vesselsync.URLUsesTLS(brokerURL)),
		},
		Sync: SyncConfig{
			QueueMax:            getEnvInt("SYNC_QUEUE_MAX", 10000),
			OutboxBatchSize:     getEnvInt("SYNC_OUTBOX_BATCH_SIZE", 100),
			OutboxInterval:      getEnvInt("SYNC_OUTBOX_INTERVAL", 30),
			DeadLetterThreshold: getEnvInt("SYNC_DEAD_LETTER_THRESHOLD", 5),
			EnableNotifications: getEnvBool("SYNC_ENABLE_NOTIFICATIONS", true),
		},
	}

	// Validate required fields
	if cfg.Broker.URL == "" {
		return nil, fmt.Errorf("MQTT_BROKER_URL environment variable is required")
	}
	if cfg.Broker.DefaultQoS < 0 || cfg.Broker.DefaultQoS > 2 {
		return nil, fmt.Errorf("MQTT_DEFAULT_QOS must be 0, 1, or 2, got %d", cfg.Broker.DefaultQoS)
	}
	if cfg.Database.Driver != "sqlite3" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is required")
	}

	return cfg, nil
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves environment variable as boolean or returns default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
