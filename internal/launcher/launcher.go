// Package launcher opens the target page in a new tab, waits for it to load,
// hands it to the automation sequence and records the run.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/neboloop/promptpulse/internal/automation"
	"github.com/neboloop/promptpulse/internal/browser"
	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/dispatch"
	"github.com/neboloop/promptpulse/internal/events"
	"github.com/neboloop/promptpulse/internal/logging"
	"github.com/neboloop/promptpulse/internal/settings"
)

// DefaultURLTemplate is the new-chat page. {model} is replaced with the
// query-escaped model identifier.
const DefaultURLTemplate = "https://claude.ai/new?incognito&model={model}&incognito"

// ErrMissingTab is returned when a tab-scoped message carries no tab ID.
var ErrMissingTab = errors.New("tab id required")

// TargetURL renders the page URL for model.
func TargetURL(template, model string) string {
	if template == "" {
		template = DefaultURLTemplate
	}
	return strings.ReplaceAll(template, "{model}", url.QueryEscape(model))
}

// Opener is the tab-owning side of the browser.
type Opener interface {
	Open(ctx context.Context, url string) (browser.Tab, error)
	Tab(id string) (browser.Tab, error)
	CloseTab(ctx context.Context, id string) error
}

// RunStore records run history.
type RunStore interface {
	InsertRun(ctx context.Context, r *db.Run) error
	UpdateRun(ctx context.Context, r *db.Run) error
}

// SettingsLoader provides the stored prompt and model.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// PageFactory binds a tab to the page heuristics.
type PageFactory func(tab browser.Tab, h automation.Heuristics) automation.Page

// Config is the part of the application config a launch needs.
type Config struct {
	URLTemplate string
	Timings     automation.Timings
	Heuristics  automation.Heuristics
}

// Request describes one launch. Empty Prompt or Model fall back to the
// stored settings.
type Request struct {
	Trigger string
	Prompt  string
	Model   string
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithPageFactory replaces the script-backed page (used by tests).
func WithPageFactory(f PageFactory) Option {
	return func(l *Launcher) {
		l.newPage = f
	}
}

// WithEvents publishes run lifecycle events on bus.
func WithEvents(bus *events.Subject) Option {
	return func(l *Launcher) {
		l.bus = bus
	}
}

// Launcher runs the automation against freshly opened tabs. Concurrent
// launches are independent; nothing serializes them.
type Launcher struct {
	opener   Opener
	runs     RunStore
	settings SettingsLoader
	bus      *events.Subject
	newPage  PageFactory
	logger   *slog.Logger

	dispatcher *dispatch.Dispatcher

	mu     sync.RWMutex
	cfg    Config
	active map[string]*db.Run // tab ID -> run

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ dispatch.Handlers = (*Launcher)(nil)

// New creates a launcher.
func New(cfg Config, opener Opener, runs RunStore, loader SettingsLoader, opts ...Option) *Launcher {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Launcher{
		opener:   opener,
		runs:     runs,
		settings: loader,
		newPage: func(tab browser.Tab, h automation.Heuristics) automation.Page {
			return automation.NewScriptPage(tab, h)
		},
		logger: logging.With("launcher"),
		cfg:    normalize(cfg),
		active: make(map[string]*db.Run),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.dispatcher = dispatch.New(l)
	return l
}

func normalize(cfg Config) Config {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	cfg.Timings = cfg.Timings.WithDefaults()
	if len(cfg.Heuristics.EditorStrategies) == 0 {
		cfg.Heuristics = automation.DefaultHeuristics()
	}
	return cfg
}

// Dispatcher returns the message dispatch table backed by this launcher.
func (l *Launcher) Dispatcher() *dispatch.Dispatcher {
	return l.dispatcher
}

// SetConfig swaps the config used by subsequent runs.
func (l *Launcher) SetConfig(cfg Config) {
	l.mu.Lock()
	l.cfg = normalize(cfg)
	l.mu.Unlock()
}

// Config returns the current config.
func (l *Launcher) Config() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Launch opens the target tab and drives it in the background. The returned
// run is the initial record.
func (l *Launcher) Launch(ctx context.Context, req Request) (*db.Run, error) {
	run, tab, prompt, err := l.open(ctx, req)
	if err != nil {
		return run, err
	}
	snapshot := *run
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.recoverRun(run, tab.ID())
		l.drive(l.ctx, run, tab, prompt)
	}()
	return &snapshot, nil
}

// Run is Launch but blocks until the run is finished.
func (l *Launcher) Run(ctx context.Context, req Request) (*db.Run, error) {
	run, tab, prompt, err := l.open(ctx, req)
	if err != nil {
		return run, err
	}
	l.drive(ctx, run, tab, prompt)
	if run.Status != db.RunCompleted && run.Error != "" {
		return run, errors.New(run.Error)
	}
	return run, nil
}

// recoverRun records a panic in a background run as a failed run with the
// stack trace in the log.
func (l *Launcher) recoverRun(run *db.Run, tabID string) {
	r := recover()
	if r == nil {
		return
	}
	l.logger.Error("run panicked", "run", run.ID, "panic", r, "stack", string(debug.Stack()))
	l.untrack(tabID)
	l.closeQuietly(tabID)
	l.finish(l.ctx, run, nil, fmt.Errorf("panic: %v", r))
}

func newRunID() string {
	return uuid.NewString()
}

// Close cancels in-flight runs and waits for them to finish.
func (l *Launcher) Close() {
	l.cancel()
	l.wg.Wait()
}

func (l *Launcher) resolve(ctx context.Context, req Request) Request {
	if req.Trigger == "" {
		req.Trigger = db.TriggerManual
	}
	if req.Prompt != "" && req.Model != "" {
		return req
	}
	stored, err := l.settings.Load(ctx)
	if err != nil {
		l.logger.Warn("using default settings", "error", err)
	}
	if req.Prompt == "" {
		req.Prompt = stored.Prompt
	}
	if req.Model == "" {
		req.Model = stored.Model
	}
	return req
}

func (l *Launcher) open(ctx context.Context, req Request) (*db.Run, browser.Tab, string, error) {
	req = l.resolve(ctx, req)
	cfg := l.Config()

	run := &db.Run{
		ID:           newRunID(),
		Trigger:      req.Trigger,
		Model:        req.Model,
		PromptLength: utf8.RuneCountInString(req.Prompt),
		TargetURL:    TargetURL(cfg.URLTemplate, req.Model),
		Status:       db.RunRunning,
		StartedAt:    time.Now(),
	}
	if err := l.runs.InsertRun(ctx, run); err != nil {
		l.logger.Warn("run not recorded", "run", run.ID, "error", err)
	}
	events.Emit(ctx, l.bus, events.TopicRunStarted, *run)
	l.logger.Info("launching", "run", run.ID, "trigger", run.Trigger, "model", run.Model, "url", run.TargetURL)

	tab, err := l.opener.Open(ctx, run.TargetURL)
	if err != nil {
		err = fmt.Errorf("open target: %w", err)
		l.finish(ctx, run, nil, err)
		return run, nil, "", err
	}
	run.TabID = tab.ID()
	l.track(tab.ID(), run)
	return run, tab, req.Prompt, nil
}

func (l *Launcher) track(tabID string, run *db.Run) {
	l.mu.Lock()
	l.active[tabID] = run
	l.mu.Unlock()
}

func (l *Launcher) untrack(tabID string) *db.Run {
	l.mu.Lock()
	defer l.mu.Unlock()
	run := l.active[tabID]
	delete(l.active, tabID)
	return run
}

func (l *Launcher) runFor(tabID string) *db.Run {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active[tabID]
}
