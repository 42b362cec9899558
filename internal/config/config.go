// Package config resolves settings from flags, THREADLIST_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"threadlist/internal/renderstate"
)

const (
	EnvPrefix = "THREADLIST"
	// EnvConfigDir overrides where the config file is looked up.
	EnvConfigDir = "THREADLIST_CONFIG_DIR"

	DefaultPollInterval = 750 * time.Millisecond
)

type TUI struct {
	Glyphs string `mapstructure:"glyphs" json:"glyphs"`
	Theme  string `mapstructure:"theme" json:"theme"`
}

type Config struct {
	Dir          string        `mapstructure:"dir" json:"dir"`
	Mode         string        `mapstructure:"mode" json:"mode"`
	PollInterval time.Duration `mapstructure:"poll_interval" json:"poll_interval"`
	LogLevel     string        `mapstructure:"log_level" json:"log_level"`
	LogFile      string        `mapstructure:"log_file" json:"log_file"`
	Format       string        `mapstructure:"format" json:"format"`
	Pretty       bool          `mapstructure:"pretty" json:"pretty"`
	TUI          TUI           `mapstructure:"tui" json:"tui"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" json:"file,omitempty"`
}

// ParsedMode returns the configured start mode.
func (c Config) ParsedMode() (renderstate.Mode, error) {
	return renderstate.ParseMode(c.Mode)
}

func (c Config) Validate() error {
	if _, err := c.ParsedMode(); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	switch c.Format {
	case "json", "edn":
	default:
		return fmt.Errorf("unknown format %q (expected json or edn)", c.Format)
	}
	return nil
}

// Dir returns $THREADLIST_CONFIG_DIR or ~/.threadlist.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".threadlist"), nil
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("dir", "")
	v.SetDefault("mode", renderstate.ModeActive.String())
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("format", "json")
	v.SetDefault("pretty", false)
	v.SetDefault("tui.glyphs", "")
	v.SetDefault("tui.theme", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	if dir, err := Dir(); err == nil {
		v.AddConfigPath(dir)
	}
	return v
}

// flagKeys maps config keys to the command line flags that override them.
var flagKeys = map[string]string{
	"dir":           "dir",
	"mode":          "mode",
	"poll_interval": "poll-interval",
	"log_level":     "log-level",
	"log_file":      "log-file",
	"format":        "format",
	"pretty":        "pretty",
}

// BindFlags binds every flag present in fs to its config key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file if one exists and decodes the merged settings.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	file := cfg.File
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = file
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
