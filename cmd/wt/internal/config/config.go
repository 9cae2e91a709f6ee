// Package config provides configuration management for the wt CLI.
//
// Settings come from ~/.webtask/config.yaml, a .env file in the working
// directory and WEBTASK_ environment variables, in increasing order of
// precedence. Profiles written by the CLI go back to the YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mehreencs87/sandboxjs/internal/logging"
	"github.com/mehreencs87/sandboxjs/utils"
)

// DefaultProfile is used when no profile is selected
const DefaultProfile = "default"

// Profile holds the credentials of one sandbox
type Profile struct {
	URL       string `mapstructure:"url" yaml:"url"`
	Token     string `mapstructure:"token" yaml:"token"`
	Container string `mapstructure:"container" yaml:"container"`
}

// Config is the CLI configuration
type Config struct {
	// Profile names the active entry of Profiles
	Profile string `mapstructure:"profile" yaml:"profile"`

	Profiles map[string]Profile `mapstructure:"profiles" yaml:"profiles"`

	// Log configures the debug log. The TUI owns the terminal, so outputs
	// are files.
	Log logging.Config `mapstructure:"log" yaml:"log"`

	// History is where cron history is exported to
	History utils.DBConfig `mapstructure:"history" yaml:"history"`

	// path is the file the config was read from and is saved to
	path string
}

// Dir returns ~/.webtask
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".webtask")
}

// Default returns a Config with no profiles and file logging to
// ~/.webtask/debug.log
func Default() *Config {
	return &Config{
		Profile:  DefaultProfile,
		Profiles: map[string]Profile{},
		Log: logging.Config{
			Level:   "info",
			Format:  "console",
			Outputs: []string{filepath.Join(Dir(), "debug.log")},
			Rotation: logging.RotationConfig{
				Enable:     true,
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		History: utils.DBConfig{
			DBType: utils.DBTypePostgres,
			Table:  utils.DefaultHistoryTable,
		},
	}
}

// Load reads configuration from path, or from ~/.webtask/config.yaml when
// path is empty. A missing file is not an error.
// Environment variables use the prefix WEBTASK, e.g. WEBTASK_LOG_LEVEL=debug.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("WEBTASK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults so env-only configs work
	v.SetDefault("profile", cfg.Profile)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("history.db_type", cfg.History.DBType)
	v.SetDefault("history.dsn", cfg.History.DSN)
	v.SetDefault("history.table", cfg.History.Table)

	if path == "" {
		if envPath := os.Getenv("WEBTASK_CONFIG"); envPath != "" {
			path = envPath
		} else {
			path = filepath.Join(Dir(), "config.yaml")
		}
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile
	}
	cfg.path = path
	return cfg, nil
}

// Path is the file the config is saved to
func (c *Config) Path() string {
	return c.path
}

// Active returns the selected profile with WEBTASK_URL, WEBTASK_TOKEN and
// WEBTASK_CONTAINER applied on top
func (c *Config) Active() Profile {
	p := c.Profiles[c.Profile]
	if v := os.Getenv("WEBTASK_URL"); v != "" {
		p.URL = v
	}
	if v := os.Getenv("WEBTASK_TOKEN"); v != "" {
		p.Token = v
	}
	if v := os.Getenv("WEBTASK_CONTAINER"); v != "" {
		p.Container = v
	}
	return p
}

// Validate reports which credentials of the active profile are missing
func (p Profile) Validate() error {
	var missing []string
	if p.URL == "" {
		missing = append(missing, "url")
	}
	if p.Token == "" {
		missing = append(missing, "token")
	}
	if p.Container == "" {
		missing = append(missing, "container")
	}
	if len(missing) > 0 {
		return fmt.Errorf("profile is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// SaveProfile stores p under name, makes it active and writes the config
// back to Path
func (c *Config) SaveProfile(name string, p Profile) error {
	if name == "" {
		name = DefaultProfile
	}
	c.Profiles[name] = p
	c.Profile = name
	return c.Save()
}

// Save writes the config as YAML, readable only by the user since it holds
// tokens
func (c *Config) Save() error {
	if c.path == "" {
		c.path = filepath.Join(Dir(), "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
