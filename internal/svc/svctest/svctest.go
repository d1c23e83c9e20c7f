// Package svctest builds a ServiceContext backed by a temp database and an
// in-memory browser, for handler and integration tests.
package svctest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/neboloop/promptpulse/internal/automation"
	"github.com/neboloop/promptpulse/internal/browser"
	"github.com/neboloop/promptpulse/internal/config"
	"github.com/neboloop/promptpulse/internal/launcher"
	"github.com/neboloop/promptpulse/internal/svc"
)

// Secret signs API tokens in services built by New.
const Secret = "svctest-secret"

// Driver is an in-memory browser driver.
type Driver struct {
	mu     sync.Mutex
	n      int
	URLs   []string
	closed int
}

func (d *Driver) Name() string { return "fake" }

func (d *Driver) OpenTab(ctx context.Context, url string) (browser.Tab, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.n++
	d.URLs = append(d.URLs, url)
	return &tab{id: fmt.Sprintf("tab-%d", d.n), driver: d}, nil
}

func (d *Driver) Close() error { return nil }

// Opened returns the URLs opened so far.
func (d *Driver) Opened() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.URLs...)
}

// Closed returns how many tabs were closed.
func (d *Driver) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type tab struct {
	id     string
	driver *Driver
}

func (t *tab) ID() string                                               { return t.id }
func (t *tab) Evaluate(ctx context.Context, expr string, out any) error { return nil }
func (t *tab) ClickAt(ctx context.Context, x, y float64) error          { return nil }
func (t *tab) PressEnter(ctx context.Context) error                     { return nil }

func (t *tab) Close(ctx context.Context) error {
	t.driver.mu.Lock()
	t.driver.closed++
	t.driver.mu.Unlock()
	return nil
}

// Page completes every step immediately.
type Page struct {
	mu       sync.Mutex
	NoEditor bool
	text     string
}

func (p *Page) ReadyState(ctx context.Context) (string, error) { return "complete", nil }

func (p *Page) FindEditor(ctx context.Context) (*automation.Editor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NoEditor {
		return nil, nil
	}
	return &automation.Editor{Strategy: "prosemirror", Kind: automation.EditorProseMirror}, nil
}

func (p *Page) Activate(ctx context.Context) error      { return nil }
func (p *Page) Focus(ctx context.Context) (bool, error) { return true, nil }

func (p *Page) InsertText(ctx context.Context, text string, caretToEnd bool) (automation.InsertMethod, error) {
	p.mu.Lock()
	p.text += text
	p.mu.Unlock()
	return automation.InsertCommand, nil
}

func (p *Page) FinishInput(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, nil
}

func (p *Page) DisableExtendedThinking(ctx context.Context) (automation.ThinkingResult, error) {
	return automation.ThinkingResult{}, nil
}

func (p *Page) FindSubmit(ctx context.Context) (*automation.Button, error) {
	return &automation.Button{Method: automation.SubmitLabel, Label: "Send message"}, nil
}

func (p *Page) ClickSubmit(ctx context.Context, b *automation.Button) error { return nil }
func (p *Page) PressEnter(ctx context.Context) error                      { return nil }

func (p *Page) ResponseState(ctx context.Context) (automation.ResponseState, error) {
	return automation.ResponseState{Messages: 3}, nil
}

func (p *Page) BodyPreview(ctx context.Context) (string, error) { return "<html></html>", nil }

// FastTimings shrinks every delay so a run completes in milliseconds.
func FastTimings() automation.Timings {
	return automation.Timings{
		LoadPoll:         time.Millisecond,
		LoadTimeout:      50 * time.Millisecond,
		DeliveryRetry:    time.Millisecond,
		SettleDelay:      time.Microsecond,
		ActivateDelay:    time.Microsecond,
		ReclickDelay:     time.Microsecond,
		FocusRetry:       time.Microsecond,
		ShortPromptDelay: time.Microsecond,
		RefocusDelay:     time.Microsecond,
		CharDelay:        time.Microsecond,
		PostInsertDelay:  time.Microsecond,
		ThinkingDelay:    time.Microsecond,
		ResponsePoll:     time.Millisecond,
		ResponseMax:      50 * time.Millisecond,
		CloseDelay:       time.Microsecond,
	}
}

// Config returns a resolved config rooted at dir with auth enabled.
func Config(dir string) config.Config {
	var c config.Config
	c.Database.SQLitePath = filepath.Join(dir, "promptpulse.db")
	c.Automation.Timings = FastTimings()
	c.Auth.Enabled = true
	c.MCP.Enabled = true
	return c.Resolve(dir)
}

// Env is a service plus its fakes.
type Env struct {
	Svc    *svc.ServiceContext
	Driver *Driver
	Page   *Page
}

// New builds a service for t. Extra options are applied after the fakes.
func New(t testing.TB, c *config.Config, opts ...svc.Option) *Env {
	t.Helper()
	dir := t.TempDir()
	cfg := Config(dir)
	if c != nil {
		cfg = *c
	}

	env := &Env{Driver: &Driver{}, Page: &Page{}}
	all := []svc.Option{
		svc.WithSecret(Secret),
		svc.WithDriverFactory(func(browser.Config) (browser.Driver, error) { return env.Driver, nil }),
		svc.WithLauncherOptions(launcher.WithPageFactory(func(browser.Tab, automation.Heuristics) automation.Page {
			return env.Page
		})),
	}
	s, err := svc.NewServiceContext(cfg, dir, append(all, opts...)...)
	if err != nil {
		t.Fatalf("new service context: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	env.Svc = s
	return env
}
