/*
Package config loads server settings and builds the process logger.

PURPOSE:
  One Config value drives cmd/server: listen port, CORS origins, which store
  backs the services, logging and the ledger's upcoming-due window.

SOURCES (later wins):
  1. Built-in defaults (see setDefaults)
  2. Optional YAML file passed to Load
  3. Environment variables prefixed OPSIRON_, dots replaced by underscores:
       OPSIRON_SERVER_PORT=9000
       OPSIRON_DATABASE_PATH=:memory:
       OPSIRON_MONITOR_INTERVAL=5m

SEE ALSO:
  - logger.go: NewLogger
  - cmd/server/main.go: startup sequence
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "OPSIRON"

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | memory
	Path   string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
}

type LedgerConfig struct {
	UpcomingWindowDays int `mapstructure:"upcoming_window_days"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type MonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

// Load reads configuration from path (may be empty) and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "opsiron.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ledger.upcoming_window_days", 10)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval", "15m")
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	if c.Ledger.UpcomingWindowDays <= 0 {
		return fmt.Errorf("ledger.upcoming_window_days must be positive")
	}
	if c.Monitor.Enabled && c.Monitor.Interval < time.Second {
		return fmt.Errorf("monitor.interval %s is too short", c.Monitor.Interval)
	}
	return nil
}
