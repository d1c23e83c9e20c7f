package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Alarm is the persisted state of a named scheduled trigger.
type Alarm struct {
	Name        string        `json:"name"`
	Kind        string        `json:"kind"`
	ScheduledAt time.Time     `json:"scheduledAt"`
	Period      time.Duration `json:"period"`
}

// SaveAlarm upserts the alarm row.
func (s *Store) SaveAlarm(ctx context.Context, a Alarm) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alarms (name, kind, scheduled_at, period_seconds, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET kind = excluded.kind, scheduled_at = excluded.scheduled_at,
			period_seconds = excluded.period_seconds, updated_at = excluded.updated_at`,
		a.Name, a.Kind, a.ScheduledAt.UnixMilli(), int64(a.Period/time.Second), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save alarm: %w", err)
	}
	return nil
}

// GetAlarm loads an alarm by name. Returns ErrNotFound when absent.
func (s *Store) GetAlarm(ctx context.Context, name string) (*Alarm, error) {
	var (
		a       Alarm
		at      int64
		seconds int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, kind, scheduled_at, period_seconds FROM alarms WHERE name = ?`, name).
		Scan(&a.Name, &a.Kind, &at, &seconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alarm %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get alarm: %w", err)
	}
	a.ScheduledAt = fromMillis(at)
	a.Period = time.Duration(seconds) * time.Second
	return &a, nil
}

// DeleteAlarm removes an alarm by name.
func (s *Store) DeleteAlarm(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM alarms WHERE name = ?`, name)
	return err
}
