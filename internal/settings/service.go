package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neboloop/promptpulse/internal/events"
	"github.com/neboloop/promptpulse/internal/logging"
)

// Store persists the flat settings record.
type Store interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	PutSettings(ctx context.Context, values map[string]string) error
}

// Change is emitted on events.TopicSettingsChanged after a successful save.
type Change struct {
	Previous Settings `json:"previous"`
	Current  Settings `json:"current"`
}

// Service loads and saves settings and announces changes.
type Service struct {
	store  Store
	bus    *events.Subject
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a settings service. bus may be nil.
func NewService(store Store, bus *events.Subject) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logging.With("settings"),
	}
}

// Load returns the stored settings. On a storage error the defaults are
// returned together with the error so callers can keep going.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	rec, err := s.store.GetSettings(ctx)
	if err != nil {
		return Defaults(), fmt.Errorf("load settings: %w", err)
	}
	set, bad := FromRecord(rec)
	if len(bad) > 0 {
		s.logger.Warn("ignoring unparsable stored settings", "keys", bad)
	}
	return set, nil
}

// Save validates, normalizes and persists set.
func (s *Service) Save(ctx context.Context, set Settings) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, set)
}

// Update applies a partial change on top of the stored settings.
func (s *Service) Update(ctx context.Context, p Patch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx)
	if err != nil {
		return current, err
	}
	return s.save(ctx, p.Apply(current))
}

// Reset restores the factory defaults.
func (s *Service) Reset(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, Defaults())
}

func (s *Service) save(ctx context.Context, set Settings) (Settings, error) {
	set = set.Normalize()
	if err := set.Validate(); err != nil {
		return set, err
	}

	previous, err := s.Load(ctx)
	if err != nil {
		s.logger.Warn("could not read previous settings", "error", err)
	}
	if err := s.store.PutSettings(ctx, set.Record()); err != nil {
		return set, fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info("settings saved",
		"model", set.Model,
		"promptLength", len(set.Prompt),
		"quietHours", set.QuietHoursEnabled,
		"window", set.Window().String())
	events.Emit(ctx, s.bus, events.TopicSettingsChanged, Change{Previous: previous, Current: set})
	return set, nil
}
