package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/patient-feedback-server/internal/domain"
)

// Manager loads and validates service configuration using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/patient-feedback-server/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("FEEDBACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5002)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "15s")
	viper.SetDefault("server.max_body_bytes", 16<<20)

	// Record store defaults
	viper.SetDefault("mongo.uri", "")
	viper.SetDefault("mongo.host", "localhost:27017")
	viper.SetDefault("mongo.username", "")
	viper.SetDefault("mongo.password", "")
	viper.SetDefault("mongo.database", "Naseeb")
	viper.SetDefault("mongo.collection", "Feedback")
	viper.SetDefault("mongo.connect_timeout", "10s")

	// Cache defaults
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	// Session defaults
	viper.SetDefault("session.cookie_name", "feedback_session")
	viper.SetDefault("session.ttl", "24h")
	viper.SetDefault("session.secure", false)

	// Chart artifact defaults
	viper.SetDefault("charts.output_dir", "static")
	viper.SetDefault("charts.snapshot_ttl", "30s")

	// Submission rate limit defaults
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.rps", 5)
	viper.SetDefault("rate_limit.burst", 10)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetMongoConfig returns record store configuration
func (m *Manager) GetMongoConfig() *domain.MongoConfig {
	return &m.config.Mongo
}

// GetRedisConfig returns cache configuration
func (m *Manager) GetRedisConfig() *domain.RedisConfig {
	return &m.config.Redis
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Mongo.URI == "" && config.Mongo.Host == "" {
		return fmt.Errorf("mongo uri or host is required")
	}
	if config.Mongo.Database == "" {
		return fmt.Errorf("mongo database is required")
	}
	if config.Mongo.Collection == "" {
		return fmt.Errorf("mongo collection is required")
	}

	if config.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}

	if config.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}
	if config.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	if config.Charts.OutputDir == "" {
		return fmt.Errorf("charts output dir is required")
	}

	return nil
}
