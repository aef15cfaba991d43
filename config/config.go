package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // clock.timezone must resolve on hosts without a zoneinfo database

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// EnvPrefix prefixes environment overrides, e.g. RUNSHEET_HTTP_PORT.
const EnvPrefix = "RUNSHEET"

// Config is the root of the service configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	OSC       OSCConfig       `mapstructure:"osc" yaml:"osc"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
	Clock     ClockConfig     `mapstructure:"clock" yaml:"clock"`
	Runsheet  RunsheetConfig  `mapstructure:"runsheet" yaml:"runsheet"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
}

// LogConfig controls the charmbracelet logger.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"` // text, json, logfmt
	Timestamps bool   `mapstructure:"timestamps" yaml:"timestamps"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
}

type HTTPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OSCConfig configures the OSC control surface and its client.
type OSCConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	ReplyPort  int    `mapstructure:"reply_port" yaml:"reply_port"`
	Timeout    string `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// GetTimeout parses Timeout, defaulting to 5 seconds.
func (c OSCConfig) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

type WatchConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
}

type ClockConfig struct {
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// Location resolves Timezone, falling back to the local zone when empty.
func (c ClockConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("clock.timezone: %w", err)
	}
	return loc, nil
}

type RunsheetConfig struct {
	ExclusiveLive bool `mapstructure:"exclusive_live" yaml:"exclusive_live"`
}

type TemplatesConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Load reads configuration from defaults, the optional file at path and
// RUNSHEET_* environment variables, in increasing precedence. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		expandedPath, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expandedPath)
		if err := v.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", expandedPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with nothing but defaults applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate rejects values the service cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if err := checkPort("http.port", c.HTTP.Port); err != nil {
		return err
	}
	if c.OSC.Enabled {
		if err := checkPort("osc.port", c.OSC.Port); err != nil {
			return err
		}
		if err := checkPort("osc.reply_port", c.OSC.ReplyPort); err != nil {
			return err
		}
		if c.OSC.Port == c.OSC.ReplyPort {
			return fmt.Errorf("osc.port and osc.reply_port must differ")
		}
	}
	if c.OSC.MaxRetries < 0 {
		return fmt.Errorf("osc.max_retries must not be negative")
	}
	if _, err := c.Clock.Location(); err != nil {
		return err
	}
	return nil
}

func checkPort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s: %d is not a valid port", key, port)
	}
	return nil
}

// SaveTo writes cfg as YAML, creating the parent directory.
func SaveTo(cfg *Config, path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(expanded, data, 0o644)
}
