// Package config loads tabpreview settings from defaults, an optional
// YAML file, and TABPREVIEW_* environment variables, in that order.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Tab sources.
const (
	SourceLive    = "live"
	SourceCDP     = "cdp"
	SourceFirefox = "firefox"
)

// Config holds all settings.
type Config struct {
	Source         string   `yaml:"source"`
	Port           int      `yaml:"port"`
	Profile        string   `yaml:"profile"`
	CDPURL         string   `yaml:"cdp_url"`
	Fetch          bool     `yaml:"fetch"`
	Follow         bool     `yaml:"follow"`
	RequestTimeout Duration `yaml:"request_timeout"`
	LogDir         string   `yaml:"log_dir"`
}

// Duration is a time.Duration written as "5s" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Source:         SourceLive,
		Port:           19191,
		CDPURL:         "http://127.0.0.1:9222",
		RequestTimeout: Duration(5 * time.Second),
	}
}

// DefaultPath returns ~/.config/tabpreview/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tabpreview", "config.yaml")
}

// Load reads path over the defaults and then applies the environment.
// A missing file is not an error when path is the default location.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("TABPREVIEW_SOURCE"); v != "" {
		c.Source = v
	}
	if v := getenv("TABPREVIEW_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TABPREVIEW_PORT: %w", err)
		}
		c.Port = port
	}
	if v := getenv("TABPREVIEW_PROFILE"); v != "" {
		c.Profile = v
	}
	if v := getenv("TABPREVIEW_CDP_URL"); v != "" {
		c.CDPURL = v
	}
	if v := getenv("TABPREVIEW_LOG_DIR"); v != "" {
		c.LogDir = v
	}
	return nil
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	switch c.Source {
	case SourceLive, SourceCDP, SourceFirefox:
	default:
		return fmt.Errorf("unknown source %q (want %s, %s or %s)", c.Source, SourceLive, SourceCDP, SourceFirefox)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Source == SourceCDP && c.CDPURL == "" {
		return errors.New("cdp source needs cdp_url")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}
