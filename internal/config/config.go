package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML keys to Go struct fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port         int      `mapstructure:"port"`          // HTTP server port (default: 8080)
		BaseURL      string   `mapstructure:"base_url"`      // Base URL for generating short links
		FallbackURL  string   `mapstructure:"fallback_url"`  // Where visits that cannot proceed are sent
		PasswordPath string   `mapstructure:"password_path"` // Password-entry route prefix, followed by the short code
		CORSOrigins  []string `mapstructure:"cors_origins"`  // Allowed origins for the JSON API; empty disables CORS
	} `mapstructure:"server"`

	// Database configuration section
	Database struct {
		Driver       string `mapstructure:"driver"`         // "sqlite" or "postgres"
		Name         string `mapstructure:"name"`           // SQLite database file name
		DSN          string `mapstructure:"dsn"`            // Postgres connection string
		MaxOpenConns int    `mapstructure:"max_open_conns"` // Pool size; SQLite is forced to 1 writer
	} `mapstructure:"database"`

	// Short code generation settings
	ShortCode struct {
		Length     int `mapstructure:"length"`      // Generated code length (default: 6)
		MaxRetries int `mapstructure:"max_retries"` // Insert attempts before giving up on collisions
	} `mapstructure:"shortcode"`

	// Security settings for password-protected links
	Security struct {
		GrantSecret   string        `mapstructure:"grant_secret"`   // HMAC key for access grants; random per process when empty
		GrantTTL      time.Duration `mapstructure:"grant_ttl"`      // Validity of an access grant (default: 1h)
		BcryptCost    int           `mapstructure:"bcrypt_cost"`    // bcrypt work factor for link passwords
		SecureCookies bool          `mapstructure:"secure_cookies"` // Set the Secure flag on grant cookies
	} `mapstructure:"security"`

	// Geo lookup settings
	Geo struct {
		DatabasePath string `mapstructure:"database_path"` // MaxMind City .mmdb file; empty disables geo lookup
	} `mapstructure:"geo"`

	// Analytics configuration for click reporting
	Analytics struct {
		TimelineDays int `mapstructure:"timeline_days"` // Days covered by the clicks-over-time series
	} `mapstructure:"analytics"`

	// Monitor configuration for URL health checking
	Monitor struct {
		Enabled         bool `mapstructure:"enabled"`
		IntervalMinutes int  `mapstructure:"interval_minutes"` // Interval in minutes between URL health checks
		WorkerCount     int  `mapstructure:"worker_count"`     // Concurrent HEAD requests per sweep
	} `mapstructure:"monitor"`

	// Maintenance scheduler configuration
	Maintenance struct {
		Schedule           string        `mapstructure:"schedule"`            // Cron expression, 5 fields
		AnonymousRetention time.Duration `mapstructure:"anonymous_retention"` // Purge anonymous links expired longer than this; 0 disables
	} `mapstructure:"maintenance"`

	// Click event publication
	Events struct {
		KafkaBrokers []string `mapstructure:"kafka_brokers"` // Empty disables publication
		KafkaTopic   string   `mapstructure:"kafka_topic"`
	} `mapstructure:"events"`

	Log struct {
		Development bool `mapstructure:"development"`
	} `mapstructure:"log"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.fallback_url", "/")
	v.SetDefault("server.password_path", "/protected/")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.name", "url_shortener.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("shortcode.length", 6)
	v.SetDefault("shortcode.max_retries", 5)
	v.SetDefault("security.grant_secret", "")
	v.SetDefault("security.grant_ttl", time.Hour)
	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.secure_cookies", false)
	v.SetDefault("geo.database_path", "")
	v.SetDefault("analytics.timeline_days", 30)
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval_minutes", 5)
	v.SetDefault("monitor.worker_count", 5)
	v.SetDefault("maintenance.schedule", "0 3 * * *")
	v.SetDefault("maintenance.anonymous_retention", time.Duration(0))
	v.SetDefault("events.kafka_brokers", []string{})
	v.SetDefault("events.kafka_topic", "link-clicks")
	v.SetDefault("log.development", false)
}

// LoadConfig loads the application configuration using the global Viper instance.
// It supports environment variable overrides and YAML configuration files.
// Returns a populated Config struct or an error if configuration loading fails.
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper(), "./configs")
}

// Load reads configuration into a Config using v. configDir is searched for
// config.yaml; a missing file is not an error.
func Load(v *viper.Viper, configDir string) (*Config, error) {
	// e.g., "server.port" can be overridden with SERVER_PORT
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file means defaults; anything else (permissions, malformed YAML) is fatal
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the postgres driver")
	}
	if c.ShortCode.Length < 4 {
		return fmt.Errorf("shortcode.length must be at least 4, got %d", c.ShortCode.Length)
	}
	if c.ShortCode.MaxRetries < 1 {
		return fmt.Errorf("shortcode.max_retries must be positive, got %d", c.ShortCode.MaxRetries)
	}
	if c.Security.GrantTTL <= 0 {
		return fmt.Errorf("security.grant_ttl must be positive")
	}
	return nil
}

// PasswordRoute returns the password-entry location for a short code.
func (c *Config) PasswordRoute(shortCode string) string {
	return strings.TrimRight(c.Server.PasswordPath, "/") + "/" + shortCode
}

// ReservedCodes returns the root path segments served by fixed routes, which
// therefore cannot be used as short codes.
func (c *Config) ReservedCodes() []string {
	reserved := []string{"health", "api"}
	if path := strings.Trim(c.Server.PasswordPath, "/"); path != "" {
		reserved = append(reserved, strings.SplitN(path, "/", 2)[0])
	}
	return reserved
}

// ShortURL returns the public URL of a short code.
func (c *Config) ShortURL(shortCode string) string {
	return strings.TrimRight(c.Server.BaseURL, "/") + "/" + shortCode
}
