// Package config provides YAML-based configuration for the RPC server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/strogo/armeria/format"
)

// Config is the root server configuration.
type Config struct {
	// Listen is the host:port the HTTP server binds.
	Listen string `mapstructure:"listen"`

	// Path is where the RPC handler is mounted.
	Path string `mapstructure:"path"`

	// AdvertiseAddr is the host:port announced to the registry. Empty
	// falls back to Listen, which only works when Listen is reachable
	// from the clients.
	AdvertiseAddr string `mapstructure:"advertise_addr"`

	// DefaultFormat names the fallback wire format: binary, compact,
	// json or text.
	DefaultFormat string `mapstructure:"default_format"`

	// AllowedFormats restricts what the endpoint serves. Empty allows
	// all four formats.
	AllowedFormats []string `mapstructure:"allowed_formats"`

	// MaxBodyBytes caps request bodies. Zero keeps the server default.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`

	// Log holds logging configuration.
	Log LogConfig `mapstructure:"log"`

	// Etcd controls registry announcements.
	Etcd EtcdConfig `mapstructure:"etcd"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation. It applies to every file
// output; each one rotates in place under its own name.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// EtcdConfig controls service announcements. Empty endpoints disable them.
type EtcdConfig struct {
	Endpoints  []string `mapstructure:"endpoints"`
	TTLSeconds int64    `mapstructure:"ttl_seconds"`
	Weight     int      `mapstructure:"weight"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:        ":8080",
		Path:          "/rpc",
		DefaultFormat: "binary",
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: true,
			Rotation: RotationConfig{
				Enable:     false,
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Etcd: EtcdConfig{
			TTLSeconds: 10,
			Weight:     1,
		},
	}
}

// Load reads configuration from the provided path (if non-empty), otherwise
// it searches common locations and supports environment overrides with the
// prefix ARMERIA, where `.`/`-` become `_`. Example: ARMERIA_LOG_LEVEL=debug.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ARMERIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Seed defaults so env-only configs work.
	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("path", cfg.Path)
	v.SetDefault("advertise_addr", cfg.AdvertiseAddr)
	v.SetDefault("default_format", cfg.DefaultFormat)
	v.SetDefault("allowed_formats", cfg.AllowedFormats)
	v.SetDefault("max_body_bytes", cfg.MaxBodyBytes)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("etcd.endpoints", cfg.Etcd.Endpoints)
	v.SetDefault("etcd.ttl_seconds", cfg.Etcd.TTLSeconds)
	v.SetDefault("etcd.weight", cfg.Etcd.Weight)

	if path == "" {
		if envPath := os.Getenv("ARMERIA_CONFIG"); envPath != "" {
			path = envPath
		}
	}
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName("armeria")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".armeria"))
		}
	}

	// A missing config file is fine; defaults and env carry the day.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen must not be empty")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /: %q", c.Path)
	}
	if _, _, err := c.Formats(); err != nil {
		return err
	}
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}
	if c.Etcd.TTLSeconds <= 0 {
		c.Etcd.TTLSeconds = 10
	}
	return nil
}

// Formats resolves the configured format names to their enum values.
func (c *Config) Formats() (def format.Format, allowed []format.Format, err error) {
	def, ok := format.Parse(c.DefaultFormat)
	if !ok {
		return 0, nil, fmt.Errorf("unknown default_format: %q", c.DefaultFormat)
	}
	for _, name := range c.AllowedFormats {
		f, ok := format.Parse(name)
		if !ok {
			return 0, nil, fmt.Errorf("unknown allowed_formats entry: %q", name)
		}
		allowed = append(allowed, f)
	}
	return def, allowed, nil
}

// AnnounceAddr is the address published to the registry.
func (c *Config) AnnounceAddr() string {
	if c.AdvertiseAddr != "" {
		return c.AdvertiseAddr
	}
	return c.Listen
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
