// Package config provides configuration loading for homeids.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/homeids/internal/models"
)

// Config holds all configuration for homeids
type Config struct {
	Server   ServerConfig        `mapstructure:"server"`
	Database DatabaseConfig      `mapstructure:"database"`
	NATS     NATSConfig          `mapstructure:"nats"`
	Redis    RedisConfig         `mapstructure:"redis"`
	Logging  LoggingConfig       `mapstructure:"logging"`
	Auth     AuthConfig          `mapstructure:"auth"`
	CORS     CORSConfig          `mapstructure:"cors"`
	Access   map[string][]string `mapstructure:"access"`
	Devices  []DeviceConfig      `mapstructure:"devices"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects and configures the log store
type DatabaseConfig struct {
	// Type is "memory" or "postgres".
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`

	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	ClearTimeout time.Duration `mapstructure:"clear_timeout"`
}

// ConnectionString renders a postgres:// URL.
func (p PostgresConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

// NATSConfig holds NATS message broker configuration
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	Embedded      bool          `mapstructure:"embedded"`
	EmbeddedHost  string        `mapstructure:"embedded_host"`
	EmbeddedPort  int           `mapstructure:"embedded_port"`
	Name          string        `mapstructure:"name"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
	QueueSize     int           `mapstructure:"queue_size"`
}

// RedisConfig holds Redis configuration for session storage
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds login and session settings
type AuthConfig struct {
	DemoPassword string        `mapstructure:"demo_password"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

// CORSConfig holds CORS settings for the API
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// DeviceConfig describes one catalogue entry
type DeviceConfig struct {
	Name  string `mapstructure:"name"`
	Type  string `mapstructure:"type"`
	State string `mapstructure:"state"`
}

// DeviceList converts the configured catalogue to models.
func (c *Config) DeviceList() []models.Device {
	out := make([]models.Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		out = append(out, models.Device{Name: d.Name, Type: d.Type, State: d.State})
	}
	return out
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unsupported database type %q (want memory or postgres)", c.Database.Type)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	for _, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("device entry without a name")
		}
	}
	return nil
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.type", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "homeids")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "homeids")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_conns", 10)
	v.SetDefault("database.postgres.min_conns", 1)
	v.SetDefault("database.postgres.query_timeout", "5s")
	v.SetDefault("database.postgres.write_timeout", "10s")
	v.SetDefault("database.postgres.clear_timeout", "30s")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("nats.embedded", false)
	v.SetDefault("nats.embedded_host", "127.0.0.1")
	v.SetDefault("nats.embedded_port", 4222)
	v.SetDefault("nats.name", "homeids")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.timeout", "5s")
	v.SetDefault("nats.queue_size", 256)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("auth.demo_password", "demo")
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.cookie_name", "homeids_session")
	v.SetDefault("auth.secure_cookie", false)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "X-Request-ID"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("devices", []map[string]string{
		{"name": "light1", "type": "light", "state": "off"},
		{"name": "light2", "type": "light", "state": "off"},
		{"name": "thermostat", "type": "thermostat", "state": "20°C"},
		{"name": "lock", "type": "lock", "state": "locked"},
	})

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/homeids")
	}

	// Environment variables override (HOMEIDS_SERVER_PORT, etc.)
	v.SetEnvPrefix("HOMEIDS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Only fail if a specific config path was given
		if configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// viper merges nested map defaults key by key, so the access list default
	// is applied only when no list was configured at all.
	if len(cfg.Access) == 0 {
		cfg.Access = map[string][]string{
			"user1": {"light1", "light2", "thermostat", "lock"},
			"user2": {"light1"},
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
