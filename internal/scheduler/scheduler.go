// Package scheduler keeps the single recurring alarm that triggers runs and
// defers it past quiet hours.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/events"
	"github.com/neboloop/promptpulse/internal/launcher"
	"github.com/neboloop/promptpulse/internal/logging"
	"github.com/neboloop/promptpulse/internal/settings"
)

const (
	// AlarmName identifies the one process-wide alarm.
	AlarmName = "promptInjection"

	DefaultInterval = 5 * time.Hour
)

// Kind distinguishes the periodic alarm from a quiet-hours deferral.
type Kind string

const (
	KindRecurring Kind = "recurring"
	KindDeferred  Kind = "deferred"
)

// Alarm is a snapshot of the scheduled trigger.
type Alarm struct {
	Name        string        `json:"name"`
	Kind        Kind          `json:"kind"`
	ScheduledAt time.Time     `json:"scheduledAt"`
	Period      time.Duration `json:"period"`
}

// Launcher starts a run in the background.
type Launcher interface {
	Launch(ctx context.Context, req launcher.Request) (*db.Run, error)
}

// SettingsLoader provides the quiet-hours settings.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// AlarmStore persists the alarm so status survives restarts.
type AlarmStore interface {
	SaveAlarm(ctx context.Context, a db.Alarm) error
	GetAlarm(ctx context.Context, name string) (*db.Alarm, error)
	DeleteAlarm(ctx context.Context, name string) error
}

// Outcome reports what a fire did.
type Outcome struct {
	Deferred      bool      `json:"deferred"`
	DeferredUntil time.Time `json:"deferredUntil,omitempty"`
	RunID         string    `json:"runId,omitempty"`
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithEvents publishes alarm changes on bus.
func WithEvents(bus *events.Subject) Option {
	return func(s *Scheduler) {
		s.bus = bus
	}
}

// Scheduler owns the alarm. Fires are evaluated against the settings stored
// at fire time.
type Scheduler struct {
	launcher Launcher
	settings SettingsLoader
	store    AlarmStore
	bus      *events.Subject
	now      func() time.Time
	logger   *slog.Logger

	cron *cronlib.Cron

	mu       sync.Mutex
	interval time.Duration
	alarm    *Alarm
	entry    cronlib.EntryID
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
}

// New creates a scheduler firing every interval.
func New(interval time.Duration, l Launcher, loader SettingsLoader, store AlarmStore, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := logging.With("scheduler")
	s := &Scheduler{
		launcher: l,
		settings: loader,
		store:    store,
		now:      time.Now,
		logger:   logger,
		interval: interval,
		cron:     cronlib.New(cronlib.WithChain(cronlib.Recover(cronLogger{logger}))),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Start restores a persisted alarm that is still in the future, or creates
// a fresh recurring one, and starts the timer loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	restored := false
	if s.store != nil {
		saved, err := s.store.GetAlarm(ctx, AlarmName)
		switch {
		case err == nil && saved.ScheduledAt.After(s.now()):
			a := Alarm{Name: saved.Name, Kind: Kind(saved.Kind), ScheduledAt: saved.ScheduledAt, Period: saved.Period}
			if a.Kind == KindRecurring && a.Period <= 0 {
				a.Period = s.interval
			}
			s.arm(ctx, a)
			restored = true
			s.logger.Info("alarm restored", "kind", a.Kind, "next", a.ScheduledAt.Format(time.RFC3339))
		case err != nil && !errors.Is(err, db.ErrNotFound):
			s.logger.Warn("could not read saved alarm", "error", err)
		}
	}
	if !restored {
		s.armRecurring(ctx, s.now().Add(s.interval))
	}

	s.cron.Start()
	s.started = true
	return nil
}

// Stop halts the timer loop and waits for a fire in progress. The persisted
// alarm is kept.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	if started {
		<-s.cron.Stop().Done()
	}
	s.cancel()
}

// Reset clears the alarm and creates a fresh recurring one starting one
// interval from now.
func (s *Scheduler) Reset(ctx context.Context) Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clear(ctx)
	a := s.armRecurring(ctx, s.now().Add(s.interval))
	s.logger.Info("alarm reset", "every", s.interval, "next", a.ScheduledAt.Format(time.RFC3339))
	return a
}

// SetInterval changes the period. A recurring alarm picks it up after its
// next fire.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()
}

// Interval returns the configured period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Next returns the current alarm, or nil when none is scheduled.
func (s *Scheduler) Next() *Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alarm == nil {
		return nil
	}
	a := *s.alarm
	return &a
}

// Fire evaluates one trigger at now: inside quiet hours the alarm is
// replaced by a one-shot at the window's end, otherwise a run is launched.
// A recurring alarm is restored after a deferred fire.
func (s *Scheduler) Fire(ctx context.Context, now time.Time) (Outcome, error) {
	set, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Warn("using default settings", "error", err)
	}

	win := set.Window()
	if win.Contains(now) {
		until := win.NextEnd(now)
		if !until.After(now) {
			until = until.AddDate(0, 0, 1)
		}
		s.mu.Lock()
		s.clear(ctx)
		s.arm(ctx, Alarm{Name: AlarmName, Kind: KindDeferred, ScheduledAt: until})
		s.mu.Unlock()
		s.logger.Info("alarm fired during quiet hours, rescheduling",
			"quiet", win.String(), "until", until.Format(time.RFC3339), "minutes", int(math.Ceil(until.Sub(now).Minutes())))
		return Outcome{Deferred: true, DeferredUntil: until}, nil
	}

	s.mu.Lock()
	if s.alarm == nil || s.alarm.Kind == KindDeferred || s.alarm.Period != s.interval {
		s.clear(ctx)
		s.armRecurring(ctx, now.Add(s.interval))
	} else {
		s.advance(ctx, now)
	}
	s.mu.Unlock()

	s.logger.Info("alarm fired, launching run")
	run, err := s.launcher.Launch(ctx, launcher.Request{Trigger: db.TriggerSchedule})
	if err != nil {
		out := Outcome{}
		if run != nil {
			out.RunID = run.ID
		}
		return out, fmt.Errorf("launch: %w", err)
	}
	return Outcome{RunID: run.ID}, nil
}

func (s *Scheduler) fire() {
	if _, err := s.Fire(s.ctx, s.now()); err != nil {
		s.logger.Error("scheduled run failed", "error", err)
	}
}

// armRecurring must be called with mu held.
func (s *Scheduler) armRecurring(ctx context.Context, first time.Time) Alarm {
	a := Alarm{Name: AlarmName, Kind: KindRecurring, ScheduledAt: first, Period: s.interval}
	s.arm(ctx, a)
	return a
}

// arm must be called with mu held.
func (s *Scheduler) arm(ctx context.Context, a Alarm) {
	var sched cronlib.Schedule = once{at: a.ScheduledAt}
	if a.Kind == KindRecurring {
		sched = every{anchor: a.ScheduledAt, period: a.Period}
	}
	s.entry = s.cron.Schedule(sched, cronlib.FuncJob(s.fire))
	s.alarm = &a
	s.persist(ctx, a)
}

// advance moves a recurring alarm's snapshot to its next slot after now.
func (s *Scheduler) advance(ctx context.Context, now time.Time) {
	next := every{anchor: s.alarm.ScheduledAt, period: s.alarm.Period}.Next(now)
	s.alarm.ScheduledAt = next
	s.persist(ctx, *s.alarm)
}

// clear must be called with mu held.
func (s *Scheduler) clear(ctx context.Context) {
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	s.alarm = nil
	if s.store != nil {
		if err := s.store.DeleteAlarm(ctx, AlarmName); err != nil {
			s.logger.Warn("could not clear saved alarm", "error", err)
		}
	}
}

func (s *Scheduler) persist(ctx context.Context, a Alarm) {
	if s.store != nil {
		err := s.store.SaveAlarm(ctx, db.Alarm{Name: a.Name, Kind: string(a.Kind), ScheduledAt: a.ScheduledAt, Period: a.Period})
		if err != nil {
			s.logger.Warn("could not save alarm", "error", err)
		}
	}
	events.Emit(ctx, s.bus, events.TopicAlarmChanged, a)
}

// cronLogger adapts slog to cron's logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
