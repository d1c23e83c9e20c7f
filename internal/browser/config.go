package browser

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Config is the browser section of the promptpulse config.
type Config struct {
	// Driver is "chromedp" (default) or "playwright".
	Driver string `json:"driver" yaml:"Driver"`

	// ExecutablePath overrides auto-detection of Chrome.
	ExecutablePath string `json:"executablePath,omitempty" yaml:"ExecutablePath"`

	// Headless runs the browser without UI.
	Headless bool `json:"headless" yaml:"Headless"`

	// NoSandbox disables Chrome sandbox (needed in some containers).
	NoSandbox bool `json:"noSandbox" yaml:"NoSandbox"`

	// UserDataDir is the dedicated profile. Relative paths are resolved against the data dir.
	UserDataDir string `json:"userDataDir,omitempty" yaml:"UserDataDir"`

	// CDPPort is the DevTools port for a Chrome launched for the playwright driver.
	CDPPort int `json:"cdpPort,omitempty" yaml:"CDPPort"`

	WindowWidth  int `json:"windowWidth,omitempty" yaml:"WindowWidth"`
	WindowHeight int `json:"windowHeight,omitempty" yaml:"WindowHeight"`
}

// DefaultConfig returns the default browser configuration.
func DefaultConfig() Config {
	return Config{
		Driver:       DriverChromedp,
		CDPPort:      DefaultCDPPort,
		WindowWidth:  DefaultWindowWidth,
		WindowHeight: DefaultWindowHeight,
	}
}

// Resolve fills zero fields with defaults and anchors a relative profile
// directory under dataDir.
func (c Config) Resolve(dataDir string) Config {
	def := DefaultConfig()
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = def.Driver
	}
	if c.CDPPort == 0 {
		c.CDPPort = def.CDPPort
	}
	if c.WindowWidth == 0 {
		c.WindowWidth = def.WindowWidth
	}
	if c.WindowHeight == 0 {
		c.WindowHeight = def.WindowHeight
	}
	if c.UserDataDir == "" {
		c.UserDataDir = "browser-profile"
	}
	if !filepath.IsAbs(c.UserDataDir) && dataDir != "" {
		c.UserDataDir = filepath.Join(dataDir, c.UserDataDir)
	}
	return c
}

// Validate rejects unknown drivers and impossible ports.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverChromedp, DriverPlaywright, "":
	default:
		return fmt.Errorf("unknown browser driver %q (want %s or %s)", c.Driver, DriverChromedp, DriverPlaywright)
	}
	if c.CDPPort < 0 || c.CDPPort > 65535 {
		return fmt.Errorf("invalid CDP port %d", c.CDPPort)
	}
	return nil
}

// CDPURL is the DevTools HTTP endpoint of a launched Chrome.
func (c Config) CDPURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.CDPPort)
}
