package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run trigger values.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Run status values.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunAborted   = "aborted"
	RunFailed    = "failed"
)

// Run is one automation attempt against one tab.
type Run struct {
	ID               string     `json:"id"`
	Trigger          string     `json:"trigger"`
	Model            string     `json:"model"`
	PromptLength     int        `json:"promptLength"`
	TargetURL        string     `json:"targetUrl"`
	TabID            string     `json:"tabId,omitempty"`
	Status           string     `json:"status"`
	EditorKind       string     `json:"editorKind,omitempty"`
	SubmitMethod     string     `json:"submitMethod,omitempty"`
	ResponseDetected bool       `json:"responseDetected"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
}

const runColumns = `id, trigger, model, prompt_length, target_url, tab_id, status,
	editor_kind, submit_method, response_detected, error, started_at, finished_at`

// InsertRun records a new run.
func (s *Store) InsertRun(ctx context.Context, r *Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Trigger, r.Model, r.PromptLength, r.TargetURL, r.TabID, r.Status,
		r.EditorKind, r.SubmitMethod, r.ResponseDetected, r.Error,
		r.StartedAt.UnixMilli(), nullableMillis(r.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateRun overwrites the mutable fields of an existing run.
func (s *Store) UpdateRun(ctx context.Context, r *Run) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET tab_id = ?, status = ?, editor_kind = ?, submit_method = ?,
			response_detected = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		r.TabID, r.Status, r.EditorKind, r.SubmitMethod, r.ResponseDetected, r.Error,
		nullableMillis(r.FinishedAt), r.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

// GetRun loads one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r        Run
		started  int64
		finished sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.Trigger, &r.Model, &r.PromptLength, &r.TargetURL, &r.TabID,
		&r.Status, &r.EditorKind, &r.SubmitMethod, &r.ResponseDetected, &r.Error,
		&started, &finished); err != nil {
		return nil, err
	}
	r.StartedAt = fromMillis(started)
	if finished.Valid {
		t := fromMillis(finished.Int64)
		r.FinishedAt = &t
	}
	return &r, nil
}
