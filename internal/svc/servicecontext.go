package svc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neboloop/promptpulse/internal/browser"
	"github.com/neboloop/promptpulse/internal/config"
	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/events"
	"github.com/neboloop/promptpulse/internal/keyring"
	"github.com/neboloop/promptpulse/internal/launcher"
	"github.com/neboloop/promptpulse/internal/logging"
	"github.com/neboloop/promptpulse/internal/realtime"
	"github.com/neboloop/promptpulse/internal/scheduler"
	"github.com/neboloop/promptpulse/internal/settings"
	"github.com/neboloop/promptpulse/internal/status"
)

// Version is the build version reported by /health.
var Version = "dev"

// ServiceContext wires the daemon's components together. Handlers, the MCP
// server and the CLI all work through it.
type ServiceContext struct {
	DataDir string

	DB        *db.Store
	Events    *events.Subject
	Settings  *settings.Service
	Browser   *browser.Manager
	Launcher  *launcher.Launcher
	Scheduler *scheduler.Scheduler
	Hub       *realtime.Hub

	now func() time.Time

	mu     sync.RWMutex
	config config.Config
	secret string

	bridgeStop func()
}

type options struct {
	store        *db.Store
	driver       func(browser.Config) (browser.Driver, error)
	launcherOpts []launcher.Option
	now          func() time.Time
	secret       string
}

// Option configures NewServiceContext.
type Option func(*options)

// WithStore reuses an open database instead of opening Database.SQLitePath.
func WithStore(store *db.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithDriverFactory replaces the browser driver constructor.
func WithDriverFactory(f func(browser.Config) (browser.Driver, error)) Option {
	return func(o *options) {
		o.driver = f
	}
}

// WithLauncherOptions passes extra options to the launcher.
func WithLauncherOptions(opts ...launcher.Option) Option {
	return func(o *options) {
		o.launcherOpts = append(o.launcherOpts, opts...)
	}
}

// WithClock replaces time.Now for the scheduler and status.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithSecret fixes the API signing secret instead of reading the keychain.
// It is ignored when auth is disabled.
func WithSecret(secret string) Option {
	return func(o *options) {
		o.secret = secret
	}
}

// NewServiceContext opens the store and builds every component. Nothing is
// started; see Start.
func NewServiceContext(c config.Config, dataDir string, opts ...Option) (*ServiceContext, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = db.NewSQLite(c.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		logging.Infof("SQLite database initialized at %s", c.Database.SQLitePath)
	}

	bus := events.NewSubject(events.WithLogger(logging.With("events")))

	var managerOpts []browser.ManagerOption
	if o.driver != nil {
		managerOpts = append(managerOpts, browser.WithDriverFactory(o.driver))
	}

	s := &ServiceContext{
		DataDir:  dataDir,
		DB:       store,
		Events:   bus,
		Settings: settings.NewService(store, bus),
		Browser:  browser.NewManager(c.Browser, managerOpts...),
		now:      o.now,
		config:   c,
	}

	launcherOpts := append([]launcher.Option{launcher.WithEvents(bus)}, o.launcherOpts...)
	s.Launcher = launcher.New(c.Launcher(), s.Browser, store, s.Settings, launcherOpts...)
	s.Scheduler = scheduler.New(c.Schedule.Interval, s.Launcher, s.Settings, store,
		scheduler.WithEvents(bus),
		scheduler.WithClock(o.now),
	)
	s.Hub = realtime.NewHub(s.HandleMessage)
	s.bridgeStop = realtime.Bridge(s.Hub, bus)

	switch {
	case !c.Auth.Enabled:
	case o.secret != "":
		s.secret = o.secret
	default:
		secret, err := keyring.Resolve()
		if err != nil {
			if errors.Is(err, keyring.ErrUnavailable) {
				return nil, errors.New("api auth is enabled but no secret is available: set PROMPTPULSE_API_SECRET or disable Auth")
			}
			return nil, fmt.Errorf("api secret: %w", err)
		}
		s.secret = secret
	}
	return s, nil
}

// Start runs the scheduler and the websocket hub until ctx is done.
func (s *ServiceContext) Start(ctx context.Context) error {
	go s.Hub.Run(ctx)
	go s.Hub.Ticker(ctx, 30*time.Second, func(ctx context.Context) any {
		st, err := s.Status(ctx)
		if err != nil {
			return nil
		}
		return st
	})
	return s.Scheduler.Start(ctx)
}

// Config returns the active configuration.
func (s *ServiceContext) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Secret is the API signing secret; empty when auth is disabled.
func (s *ServiceContext) Secret() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secret
}

// ApplyConfig pushes a reloaded configuration into the running components.
// Listen address, database and auth changes need a restart.
func (s *ServiceContext) ApplyConfig(c config.Config) {
	s.mu.Lock()
	prev := s.config
	s.config = c
	s.mu.Unlock()

	s.Launcher.SetConfig(c.Launcher())
	s.Scheduler.SetInterval(c.Schedule.Interval)
	if c.Browser != prev.Browser {
		s.Browser.Reconfigure(c.Browser)
	}
	if c.Addr() != prev.Addr() || c.Database.SQLitePath != prev.Database.SQLitePath || c.Auth.Enabled != prev.Auth.Enabled {
		logging.Warn("config change needs a restart to take effect", "addr", c.Addr(), "database", c.Database.SQLitePath)
	}
	logging.Info("config reloaded", "interval", c.Schedule.Interval.String())
}

// Status computes the popup-style status line from the live alarm, or the
// persisted one when the scheduler is not running in this process.
func (s *ServiceContext) Status(ctx context.Context) (status.Status, error) {
	set, err := s.Settings.Load(ctx)
	if err != nil {
		return status.Status{}, err
	}
	alarm := s.Scheduler.Next()
	if alarm == nil {
		alarm, err = s.storedAlarm(ctx)
		if err != nil {
			return status.Status{}, err
		}
	}
	return status.Compute(alarm, set, s.now()), nil
}

func (s *ServiceContext) storedAlarm(ctx context.Context) (*scheduler.Alarm, error) {
	a, err := s.DB.GetAlarm(ctx, scheduler.AlarmName)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &scheduler.Alarm{
		Name:        a.Name,
		Kind:        scheduler.Kind(a.Kind),
		ScheduledAt: a.ScheduledAt,
		Period:      a.Period,
	}, nil
}

// RunNow starts a manual run in the background. Empty prompt or model use
// the stored settings.
func (s *ServiceContext) RunNow(ctx context.Context, prompt, model string) (*db.Run, error) {
	return s.Launcher.Launch(ctx, launcher.Request{
		Trigger: db.TriggerManual,
		Prompt:  prompt,
		Model:   model,
	})
}

// HandleMessage routes a raw runtime message through the dispatch table.
func (s *ServiceContext) HandleMessage(ctx context.Context, raw json.RawMessage) (any, error) {
	resp, err := s.Launcher.Dispatcher().DispatchRaw(ctx, raw)
	return resp, err
}

// Close stops the scheduler, in-flight runs, the browser and the store.
func (s *ServiceContext) Close() error {
	s.Scheduler.Stop()
	s.Launcher.Close()
	if s.bridgeStop != nil {
		s.bridgeStop()
	}
	events.Complete(s.Events)

	var errs []error
	if err := s.Browser.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop browser: %w", err))
	}
	if err := s.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
