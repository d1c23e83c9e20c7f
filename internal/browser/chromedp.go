package browser

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"

	"github.com/neboloop/promptpulse/internal/logging"
)

// ChromedpDriver launches one Chrome process through chromedp's exec
// allocator and opens every tab as a new target in it.
type ChromedpDriver struct {
	cfg Config

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromedpDriver creates a driver. The browser starts on the first OpenTab.
func NewChromedpDriver(cfg Config) *ChromedpDriver {
	return &ChromedpDriver{cfg: cfg}
}

func (d *ChromedpDriver) Name() string { return DriverChromedp }

func (d *ChromedpDriver) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("disable-gpu", d.cfg.Headless),
		chromedp.Flag("hide-scrollbars", d.cfg.Headless),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(d.cfg.WindowWidth, d.cfg.WindowHeight),
	)
	if d.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.cfg.UserDataDir))
	}
	if d.cfg.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.ExecutablePath))
	}
	if d.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if runtime.GOOS == "linux" {
		opts = append(opts, chromedp.Flag("disable-dev-shm-usage", true))
	}
	return opts
}

func (d *ChromedpDriver) ensureBrowser() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browserCtx != nil && d.browserCtx.Err() == nil {
		return d.browserCtx, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), d.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logging.Debugf),
		chromedp.WithErrorf(logging.Warnf),
	)

	// Running with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, wrapBrowserError(err)
	}

	d.allocCancel = allocCancel
	d.browserCtx = browserCtx
	d.browserCancel = browserCancel
	logging.Infof("browser started (driver=%s headless=%v)", DriverChromedp, d.cfg.Headless)
	return browserCtx, nil
}

// OpenTab creates a new target at url and attaches to it. It returns as soon
// as navigation has started; callers poll the ready state themselves.
func (d *ChromedpDriver) OpenTab(ctx context.Context, url string) (Tab, error) {
	browserCtx, err := d.ensureBrowser()
	if err != nil {
		return nil, err
	}

	var targetID target.ID
	if err := runWithCaller(ctx, browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		id, err := target.CreateTarget(url).Do(ctx)
		targetID = id
		return err
	})); err != nil {
		return nil, fmt.Errorf("create target: %w", wrapBrowserError(err))
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(targetID))
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("attach target: %w", wrapBrowserError(err))
	}

	return &chromedpTab{
		id:     "tab-" + uuid.New().String()[:8],
		ctx:    tabCtx,
		cancel: cancel,
	}, nil
}

// Close shuts the browser down.
func (d *ChromedpDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browserCancel != nil {
		d.browserCancel()
		d.allocCancel()
		d.browserCtx = nil
		d.browserCancel = nil
		d.allocCancel = nil
	}
	return nil
}

type chromedpTab struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (t *chromedpTab) ID() string { return t.id }

func (t *chromedpTab) Evaluate(ctx context.Context, expression string, out any) error {
	return runWithCaller(ctx, t.ctx, chromedp.Evaluate(expression, out))
}

func (t *chromedpTab) ClickAt(ctx context.Context, x, y float64) error {
	return runWithCaller(ctx, t.ctx, chromedp.MouseClickXY(x, y))
}

func (t *chromedpTab) PressEnter(ctx context.Context) error {
	return runWithCaller(ctx, t.ctx, chromedp.KeyEvent(kb.Enter))
}

func (t *chromedpTab) Close(ctx context.Context) error {
	var err error
	t.once.Do(func() {
		err = runWithCaller(ctx, t.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			return page.Close().Do(ctx)
		}))
		t.cancel()
	})
	return err
}

// runWithCaller runs actions on a chromedp context while honouring the
// caller's cancellation. Cancelling the derived context aborts the actions
// without closing the tab.
func runWithCaller(caller, target context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(target)
	defer cancel()
	stop := context.AfterFunc(caller, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && caller.Err() != nil {
		return caller.Err()
	}
	return err
}
