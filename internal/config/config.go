// Package config provides configuration loading for the studentauth CLI and server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/student-auth/studentauth/internal/errors"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	// Endpoint is the server URL used by the CLI
	Endpoint string `mapstructure:"endpoint"`

	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"readTimeout"`
	WriteTimeout string `mapstructure:"writeTimeout"`

	// AdminToken guards the student listing and audit endpoints.
	AdminToken string `mapstructure:"adminToken"`
}

// DatabaseConfig holds the student store configuration.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`

	// URL is a full DSN. When empty for postgres, one is built from the fields below.
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// SessionConfig holds login session configuration.
type SessionConfig struct {
	Secret string `mapstructure:"secret"`
	TTL    string `mapstructure:"ttl"`

	// RedisAddr enables the redis revocation list when set.
	RedisAddr     string `mapstructure:"redisAddr"`
	RedisPassword string `mapstructure:"redisPassword"`
	RedisDB       int    `mapstructure:"redisDB"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://localhost:8080",
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  "30s",
			WriteTimeout: "30s",
		},
		Database: DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "studentauth",
			Password: "studentauth_dev",
			Name:     "studentauth",
			SSLMode:  "disable",
		},
		Session: SessionConfig{
			TTL: "24h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a .env file, the config file and the environment.
// Environment variables use the STUDENTAUTH_ prefix, e.g. STUDENTAUTH_DATABASE_URL.
func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".studentauth"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("STUDENTAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.readTimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writeTimeout", d.Server.WriteTimeout)
	v.SetDefault("server.adminToken", "")
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.redisAddr", "")
	v.SetDefault("session.redisPassword", "")
	v.SetDefault("session.redisDB", 0)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate checks the configuration for the server. In dev mode an empty
// session secret is tolerated.
func (c *Config) Validate(devMode bool) error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return errors.NewInvalidConfig("database.driver", fmt.Sprintf("unsupported driver %q (use postgres or sqlite)", c.Database.Driver))
	}
	if c.Database.Driver == DriverSQLite && c.Database.URL == "" {
		return errors.NewInvalidConfig("database.url", "sqlite requires a file path or ':memory:'")
	}
	if c.Session.Secret == "" && !devMode {
		return errors.NewInvalidConfig("session.secret", "must be set outside dev mode")
	}
	ttl, err := c.SessionTTL()
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.NewInvalidConfig("session.ttl", "must be positive")
	}
	for field, value := range map[string]string{
		"server.readTimeout":  c.Server.ReadTimeout,
		"server.writeTimeout": c.Server.WriteTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return errors.NewInvalidConfig(field, err.Error())
		}
	}
	return nil
}

// SessionTTL parses the session lifetime.
func (c *Config) SessionTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Session.TTL)
	if err != nil {
		return 0, errors.NewInvalidConfig("session.ttl", err.Error())
	}
	return ttl, nil
}

// Timeouts parses the server read and write timeouts.
func (c *Config) Timeouts() (read, write time.Duration, err error) {
	if read, err = time.ParseDuration(c.Server.ReadTimeout); err != nil {
		return 0, 0, errors.NewInvalidConfig("server.readTimeout", err.Error())
	}
	if write, err = time.ParseDuration(c.Server.WriteTimeout); err != nil {
		return 0, 0, errors.NewInvalidConfig("server.writeTimeout", err.Error())
	}
	return read, write, nil
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" || d.Driver != DriverPostgres {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
