package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Retention RetentionConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Host string
	Port int
	Mode string // debug, release, test
}

type DatabaseConfig struct {
	SQLitePath string
}

type JWTConfig struct {
	Secret string
	Expire time.Duration
}

// AdminConfig is the single admin identity allowed to log in. It is
// provisioned out-of-band and never written back by the server.
type AdminConfig struct {
	Username     string
	PasswordHash string // bcrypt
}

type RetentionConfig struct {
	Enabled       bool
	Interval      time.Duration
	MaxAge        time.Duration
	MinEventCount int
}

type LoggingConfig struct {
	Level  string
	Format string // json, console
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

var (
	ErrMissingAdminUsername = errors.New("admin.username is required")
	ErrMissingAdminHash     = errors.New("admin.password_hash is required")
)

// Load reads config.yaml (from path when given, otherwise from . and
// ./config), then overlays environment variables such as ADMIN_USERNAME.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.sqlite_path", "./tracker.db")

	v.SetDefault("jwt.secret", "change-this-secret-in-production")
	v.SetDefault("jwt.expire_minutes", 60)

	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password_hash", "")

	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.interval", "24h")
	v.SetDefault("retention.max_age", "2160h")
	v.SetDefault("retention.min_event_count", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
			Mode: v.GetString("server.mode"),
		},
		Database: DatabaseConfig{
			SQLitePath: v.GetString("database.sqlite_path"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Expire: time.Duration(v.GetInt("jwt.expire_minutes")) * time.Minute,
		},
		Admin: AdminConfig{
			Username:     v.GetString("admin.username"),
			PasswordHash: v.GetString("admin.password_hash"),
		},
		Retention: RetentionConfig{
			Enabled:       v.GetBool("retention.enabled"),
			Interval:      v.GetDuration("retention.interval"),
			MaxAge:        v.GetDuration("retention.max_age"),
			MinEventCount: v.GetInt("retention.min_event_count"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Admin.Username == "" {
		return ErrMissingAdminUsername
	}
	if c.Admin.PasswordHash == "" {
		return ErrMissingAdminHash
	}
	if c.Retention.MinEventCount < 0 {
		return errors.New("retention.min_event_count must not be negative")
	}
	if c.Retention.Enabled && c.Retention.Interval <= 0 {
		return errors.New("retention.interval must be positive")
	}
	return nil
}
