package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/neboloop/promptpulse/internal/automation"
	"github.com/neboloop/promptpulse/internal/browser"
	"github.com/neboloop/promptpulse/internal/defaults"
	"github.com/neboloop/promptpulse/internal/launcher"
)

const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 27895
	DefaultInterval = 5 * time.Hour
	minInterval     = time.Minute
)

// Config is the daemon configuration.
type Config struct {
	Name string `yaml:"Name"`
	Host string `yaml:"Host"`
	Port int    `yaml:"Port"`

	Log struct {
		Level string `yaml:"Level"`
	} `yaml:"Log"`

	Database struct {
		SQLitePath string `yaml:"SQLitePath"`
	} `yaml:"Database"`

	Schedule struct {
		Interval time.Duration `yaml:"Interval"`
	} `yaml:"Schedule"`

	Target struct {
		URLTemplate string `yaml:"URLTemplate"`
	} `yaml:"Target"`

	Browser browser.Config `yaml:"Browser"`

	Automation Automation `yaml:"Automation"`

	Auth struct {
		Enabled bool `yaml:"Enabled"`
	} `yaml:"Auth"`

	MCP struct {
		Enabled bool `yaml:"Enabled"`
	} `yaml:"MCP"`
}

// Automation holds the sequence timings plus the response threshold.
type Automation struct {
	automation.Timings `yaml:",inline"`
	MessageThreshold   int `yaml:"MessageThreshold"`
}

// LoadFromBytes loads configuration from YAML bytes with environment variable expansion
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	if err := overlay(&c, data); err != nil {
		return c, err
	}
	return c, nil
}

// Load reads the embedded base config and overlays the user file at path,
// when it exists. The result is resolved against dataDir and validated.
func Load(base []byte, path, dataDir string) (Config, error) {
	c, err := LoadFromBytes(base)
	if err != nil {
		return c, fmt.Errorf("base config: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := overlay(&c, data); err != nil {
				return c, fmt.Errorf("%s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return c, fmt.Errorf("read config: %w", err)
		}
	}
	c = c.Resolve(dataDir)
	return c, c.Validate()
}

func overlay(c *Config, data []byte) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// Resolve fills unset fields and anchors relative paths under dataDir.
func (c Config) Resolve(dataDir string) Config {
	if c.Name == "" {
		c.Name = "promptpulse"
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = defaults.DatabaseFile
	}
	if !filepath.IsAbs(c.Database.SQLitePath) && dataDir != "" {
		c.Database.SQLitePath = filepath.Join(dataDir, c.Database.SQLitePath)
	}
	if c.Schedule.Interval == 0 {
		c.Schedule.Interval = DefaultInterval
	}
	if c.Target.URLTemplate == "" {
		c.Target.URLTemplate = launcher.DefaultURLTemplate
	}
	c.Browser = c.Browser.Resolve(dataDir)
	c.Automation.Timings = c.Automation.Timings.WithDefaults()
	if c.Automation.MessageThreshold <= 0 {
		c.Automation.MessageThreshold = automation.DefaultHeuristics().MessageThreshold
	}
	return c
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Schedule.Interval < minInterval {
		return fmt.Errorf("schedule interval %s is below %s", c.Schedule.Interval, minInterval)
	}
	if c.Automation.LoadTimeout < c.Automation.LoadPoll {
		return fmt.Errorf("automation load timeout %s is shorter than the poll interval", c.Automation.LoadTimeout)
	}
	return c.Browser.Validate()
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL is the local API root.
func (c Config) BaseURL() string {
	return fmt.Sprintf("http://%s", c.Addr())
}

// Launcher returns the launch settings derived from c.
func (c Config) Launcher() launcher.Config {
	h := automation.DefaultHeuristics()
	h.MessageThreshold = c.Automation.MessageThreshold
	return launcher.Config{
		URLTemplate: c.Target.URLTemplate,
		Timings:     c.Automation.Timings,
		Heuristics:  h,
	}
}
