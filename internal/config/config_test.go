package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/promptpulse/internal/browser"
)

const baseYAML = `
Name: promptpulse
Host: ${TEST_PP_HOST}
Port: 27895
Schedule:
  Interval: 5h
Browser:
  Driver: chromedp
Automation:
  SettleDelay: 4s
  ResponseMax: 2m
  ShortPromptLimit: 10
Auth:
  Enabled: true
`

func TestLoadFromBytesExpandsEnv(t *testing.T) {
	t.Setenv("TEST_PP_HOST", "0.0.0.0")
	c, err := LoadFromBytes([]byte(baseYAML))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", c.Host)
	assert.Equal(t, 27895, c.Port)
	assert.Equal(t, 5*time.Hour, c.Schedule.Interval)
	assert.Equal(t, 4*time.Second, c.Automation.SettleDelay)
	assert.Equal(t, 2*time.Minute, c.Automation.ResponseMax)
	assert.Equal(t, 10, c.Automation.ShortPromptLimit)
	assert.True(t, c.Auth.Enabled)
}

func TestLoadOverlaysUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Schedule:\n  Interval: 30m\nBrowser:\n  Driver: playwright\n"), 0o644))

	c, err := Load([]byte(baseYAML), path, dir)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, c.Schedule.Interval)
	assert.Equal(t, browser.DriverPlaywright, c.Browser.Driver)
	assert.Equal(t, 4*time.Second, c.Automation.SettleDelay, "base values survive the overlay")
	assert.Equal(t, filepath.Join(dir, "promptpulse.db"), c.Database.SQLitePath)
	assert.Equal(t, filepath.Join(dir, "browser-profile"), c.Browser.UserDataDir)
	assert.Equal(t, DefaultHost, c.Host)
}

func TestLoadMissingUserFile(t *testing.T) {
	dir := t.TempDir()
	c, err := Load([]byte(baseYAML), filepath.Join(dir, "absent.yaml"), dir)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Hour, c.Schedule.Interval)
	assert.Equal(t, 2, c.Automation.MessageThreshold)
	assert.Equal(t, 500*time.Millisecond, c.Automation.LoadPoll, "unset timings take defaults")
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(path, []byte("Schedule:\n  Interval: 10s\n"), 0o644))
	_, err := Load([]byte(baseYAML), path, dir)
	assert.ErrorContains(t, err, "schedule interval")

	require.NoError(t, os.WriteFile(path, []byte("Browser:\n  Driver: firefox\n"), 0o644))
	_, err = Load([]byte(baseYAML), path, dir)
	assert.ErrorContains(t, err, "unknown browser driver")

	require.NoError(t, os.WriteFile(path, []byte("Port: [1, 2"), 0o644))
	_, err = Load([]byte(baseYAML), path, dir)
	assert.Error(t, err)
}

func TestLauncherConfig(t *testing.T) {
	c, err := LoadFromBytes([]byte(baseYAML))
	require.NoError(t, err)
	c = c.Resolve(t.TempDir())
	c.Automation.MessageThreshold = 4

	lc := c.Launcher()
	assert.Equal(t, "https://claude.ai/new?incognito&model={model}&incognito", lc.URLTemplate)
	assert.Equal(t, 4, lc.Heuristics.MessageThreshold)
	assert.NotEmpty(t, lc.Heuristics.EditorStrategies)
	assert.Equal(t, 4*time.Second, lc.Timings.SettleDelay)
}

func TestAddr(t *testing.T) {
	c := Config{Host: "127.0.0.1", Port: 27895}
	assert.Equal(t, "127.0.0.1:27895", c.Addr())
	assert.Equal(t, "http://127.0.0.1:27895", c.BaseURL())
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Schedule:\n  Interval: 1h\n"), 0o644))

	var (
		mu  sync.Mutex
		got []Config
	)
	w, err := Watch([]byte(baseYAML), path, dir, func(c Config) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("Schedule:\n  Interval: 2h\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1].Schedule.Interval == 2*time.Hour
	}, 5*time.Second, 20*time.Millisecond)
}
