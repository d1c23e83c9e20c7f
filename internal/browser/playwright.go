package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/neboloop/promptpulse/internal/logging"
)

// PlaywrightDriver launches Chrome with a DevTools port and connects
// Playwright to it over CDP.
type PlaywrightDriver struct {
	cfg Config

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	chrome  *RunningChrome
}

// NewPlaywrightDriver creates a driver. Chrome starts on the first OpenTab.
func NewPlaywrightDriver(cfg Config) *PlaywrightDriver {
	return &PlaywrightDriver{cfg: cfg}
}

func (d *PlaywrightDriver) Name() string { return DriverPlaywright }

func (d *PlaywrightDriver) ensureContext() (playwright.BrowserContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser != nil && d.browser.IsConnected() && d.context != nil {
		return d.context, nil
	}

	if d.chrome == nil || !IsChromeReachable(d.cfg.CDPURL(), time.Second) {
		running, err := LaunchChrome(d.cfg)
		if err != nil {
			return nil, wrapBrowserError(err)
		}
		d.chrome = running
	}

	if d.pw == nil {
		opts := &playwright.RunOptions{SkipInstallBrowsers: true}
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("install playwright driver: %w", err)
		}
		pw, err := playwright.Run(opts)
		if err != nil {
			return nil, fmt.Errorf("start playwright: %w", err)
		}
		d.pw = pw
	}

	b, err := d.pw.Chromium.ConnectOverCDP(d.cfg.CDPURL())
	if err != nil {
		return nil, fmt.Errorf("connect over CDP: %w", wrapBrowserError(err))
	}
	d.browser = b

	if contexts := b.Contexts(); len(contexts) > 0 {
		d.context = contexts[0]
	} else {
		bctx, err := b.NewContext()
		if err != nil {
			return nil, fmt.Errorf("new browser context: %w", err)
		}
		d.context = bctx
	}
	logging.Infof("browser connected (driver=%s cdp=%s)", DriverPlaywright, d.cfg.CDPURL())
	return d.context, nil
}

// OpenTab opens a new page and starts navigating to url, returning once the
// navigation has committed.
func (d *PlaywrightDriver) OpenTab(ctx context.Context, url string) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bctx, err := d.ensureContext()
	if err != nil {
		return nil, err
	}

	p, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	if _, err := p.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateCommit,
	}); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("navigate: %w", wrapBrowserError(err))
	}

	return &playwrightTab{id: "tab-" + uuid.New().String()[:8], page: p}, nil
}

// Close disconnects Playwright and stops the launched Chrome.
func (d *PlaywrightDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			firstErr = err
		}
		d.browser = nil
		d.context = nil
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.pw = nil
	}
	if d.chrome != nil {
		if err := StopChrome(d.chrome, 5*time.Second); err != nil && firstErr == nil {
			firstErr = err
		}
		d.chrome = nil
	}
	return firstErr
}

type playwrightTab struct {
	id   string
	page playwright.Page
}

func (t *playwrightTab) ID() string { return t.id }

func (t *playwrightTab) Evaluate(ctx context.Context, expression string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := t.page.Evaluate(expression)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	// Round-trip through JSON so callers decode the same way for both drivers.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode evaluate result: %w", err)
	}
	return json.Unmarshal(raw, out)
}

func (t *playwrightTab) ClickAt(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.page.Mouse().Click(x, y)
}

func (t *playwrightTab) PressEnter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.page.Keyboard().Press("Enter")
}

func (t *playwrightTab) Close(ctx context.Context) error {
	if t.page.IsClosed() {
		return nil
	}
	return t.page.Close()
}
