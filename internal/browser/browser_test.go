package browser

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
)

type fakeTab struct {
	id     string
	mu     sync.Mutex
	closed bool
}

func (f *fakeTab) ID() string { return f.id }
func (f *fakeTab) Evaluate(ctx context.Context, expression string, out any) error {
	return nil
}
func (f *fakeTab) ClickAt(ctx context.Context, x, y float64) error { return nil }
func (f *fakeTab) PressEnter(ctx context.Context) error            { return nil }
func (f *fakeTab) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeDriver struct {
	opened []string
	tabs   []*fakeTab
	closed bool
}

func (d *fakeDriver) Name() string { return "fake" }
func (d *fakeDriver) OpenTab(ctx context.Context, url string) (Tab, error) {
	d.opened = append(d.opened, url)
	tab := &fakeTab{id: "tab-" + string(rune('a'+len(d.tabs)))}
	d.tabs = append(d.tabs, tab)
	return tab, nil
}
func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

func TestManagerTracksTabs(t *testing.T) {
	drv := &fakeDriver{}
	builds := 0
	m := NewManager(DefaultConfig(), WithDriverFactory(func(Config) (Driver, error) {
		builds++
		return drv, nil
	}))

	ctx := context.Background()
	a, err := m.Open(ctx, "https://example.test/a")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := m.Open(ctx, "https://example.test/b"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if builds != 1 {
		t.Errorf("driver built %d times, want 1", builds)
	}
	if got := m.Tabs(); len(got) != 2 {
		t.Fatalf("Tabs = %v", got)
	}

	if err := m.CloseTab(ctx, a.ID()); err != nil {
		t.Fatalf("CloseTab failed: %v", err)
	}
	if !drv.tabs[0].closed {
		t.Error("underlying tab not closed")
	}
	if _, err := m.Tab(a.ID()); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("Tab after close: err = %v, want ErrTabNotFound", err)
	}
	if err := m.CloseTab(ctx, a.ID()); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("double close: err = %v, want ErrTabNotFound", err)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !drv.tabs[1].closed || !drv.closed {
		t.Error("Stop should close remaining tabs and the driver")
	}
}

func TestReconfigureRestartsIdleDriver(t *testing.T) {
	var drivers []*fakeDriver
	m := NewManager(DefaultConfig(), WithDriverFactory(func(Config) (Driver, error) {
		d := &fakeDriver{}
		drivers = append(drivers, d)
		return d, nil
	}))

	ctx := context.Background()
	tab, _ := m.Open(ctx, "https://example.test")
	cfg := DefaultConfig()
	cfg.Headless = true

	m.Reconfigure(cfg)
	if drivers[0].closed {
		t.Fatal("driver with open tabs must not be closed")
	}

	_ = m.CloseTab(ctx, tab.ID())
	cfg.NoSandbox = true
	m.Reconfigure(cfg)
	if !drivers[0].closed {
		t.Fatal("idle driver should be closed on reconfigure")
	}

	_, _ = m.Open(ctx, "https://example.test")
	if len(drivers) != 2 {
		t.Fatalf("expected a fresh driver, got %d", len(drivers))
	}
}

func TestResolveConfig(t *testing.T) {
	cfg := Config{Driver: " Playwright "}.Resolve("/data")
	if cfg.Driver != DriverPlaywright {
		t.Errorf("Driver = %q", cfg.Driver)
	}
	if cfg.UserDataDir != filepath.Join("/data", "browser-profile") {
		t.Errorf("UserDataDir = %q", cfg.UserDataDir)
	}
	if cfg.CDPPort != DefaultCDPPort || cfg.WindowWidth != DefaultWindowWidth {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := (Config{Driver: "firefox"}).Validate(); err == nil {
		t.Error("unknown driver should fail validation")
	}
}

func TestBuildChromeArgs(t *testing.T) {
	cfg := DefaultConfig().Resolve(t.TempDir())
	cfg.Headless = true
	cfg.NoSandbox = true

	args := buildChromeArgs(cfg)
	for _, want := range []string{"--remote-debugging-port=9232", "--headless=new", "--no-sandbox", "about:blank"} {
		if !slices.Contains(args, want) {
			t.Errorf("missing %s in %v", want, args)
		}
	}
	if args[len(args)-1] != "about:blank" {
		t.Errorf("about:blank must be last, got %s", args[len(args)-1])
	}
	found := false
	for _, a := range args {
		if strings.HasPrefix(a, "--user-data-dir=") {
			found = true
		}
	}
	if !found {
		t.Error("missing --user-data-dir")
	}
}

func TestFindChromeExecutableCustomPath(t *testing.T) {
	if _, err := FindChromeExecutable(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing custom path")
	}
	exe, err := FindChromeExecutable("browser_test.go")
	if err != nil {
		t.Fatalf("FindChromeExecutable: %v", err)
	}
	if exe.Kind != BrowserCustom {
		t.Errorf("Kind = %s", exe.Kind)
	}
}

func TestWrapBrowserErrorAddsHint(t *testing.T) {
	base := errors.New(`exec: "google-chrome": executable file not found in $PATH`)
	err := wrapBrowserError(base)
	if !errors.Is(err, base) {
		t.Error("wrapped error should unwrap to base")
	}
	if !strings.Contains(err.Error(), "hint:") {
		t.Errorf("no hint in %q", err)
	}
	if wrapBrowserError(nil) != nil {
		t.Error("nil in, nil out")
	}
}
