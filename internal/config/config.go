package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/statkeeper/statkeeper/internal/stats"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "STATKEEPER_"

// Config is the top-level YAML structure.
type Config struct {
	Debug         bool          `yaml:"debug" env:"DEBUG"`
	SavePath      string        `yaml:"save_path" env:"SAVE_PATH"`
	SaveInterval  time.Duration `yaml:"save_interval" env:"SAVE_INTERVAL"`
	LastDays      []int         `yaml:"last_days" env:"LAST_DAYS"`
	Tracking      Tracking      `yaml:"tracking" envPrefix:"TRACKING_"`
	DoNotTrack    []string      `yaml:"do_not_track" env:"DO_NOT_TRACK"`
	DashboardAddr string        `yaml:"dashboard_addr" env:"DASHBOARD_ADDR"`
	ArchiveDB     string        `yaml:"archive_db" env:"ARCHIVE_DB"`

	excluded map[string]struct{}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SavePath:     stats.DefaultPath,
		SaveInterval: time.Minute,
		LastDays:     []int{7, 30, 90},
		Tracking:     AllTracking(),
	}
}

// Load reads a YAML file over the defaults, applies STATKEEPER_* environment
// overrides and validates the result. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config YAML: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Compile validates the configuration and builds the exclusion set.
// Duplicate window sizes collapse, keeping the first occurrence.
func (c *Config) Compile() error {
	windows := make([]int, 0, len(c.LastDays))
	for _, d := range c.LastDays {
		if d <= 0 {
			return fmt.Errorf("last_days %d: %w", d, stats.ErrInvalidWindow)
		}
		if !slices.Contains(windows, d) {
			windows = append(windows, d)
		}
	}
	c.LastDays = windows

	if c.SaveInterval <= 0 {
		return fmt.Errorf("save_interval %v: must be positive", c.SaveInterval)
	}
	if c.SavePath == "" {
		c.SavePath = stats.DefaultPath
	}

	c.excluded = make(map[string]struct{}, len(c.DoNotTrack))
	for _, id := range c.DoNotTrack {
		c.excluded[id] = struct{}{}
	}
	return nil
}

// Excluded reports whether identity is listed in do_not_track.
func (c *Config) Excluded(identity string) bool {
	_, ok := c.excluded[identity]
	return ok
}
