package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/promptpulse/internal/db/migrations"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMigrationsApplied(t *testing.T) {
	store := newTestStore(t)
	v, err := migrations.Version(store.GetDB())
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
}

func TestSettingsKV(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	got, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.PutSettings(ctx, map[string]string{"prompt": "hi", "model": "m"}))
	require.NoError(t, store.PutSettings(ctx, map[string]string{"prompt": "hello"}))

	got, err = store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"prompt": "hello", "model": "m"}, got)

	require.NoError(t, store.ClearSettings(ctx))
	got, err = store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	start := time.UnixMilli(time.Now().UnixMilli())
	run := &Run{
		ID:           "run-1",
		Trigger:      TriggerManual,
		Model:        "m",
		PromptLength: 12,
		TargetURL:    "https://example.test/new",
		Status:       RunRunning,
		StartedAt:    start,
	}
	require.NoError(t, store.InsertRun(ctx, run))

	finished := start.Add(time.Minute)
	run.Status = RunCompleted
	run.EditorKind = "prosemirror"
	run.SubmitMethod = "color"
	run.ResponseDetected = true
	run.FinishedAt = &finished
	require.NoError(t, store.UpdateRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, got.Status)
	assert.True(t, got.ResponseDetected)
	assert.Equal(t, start, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, finished, *got.FinishedAt)

	_, err = store.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = store.UpdateRun(ctx, &Run{ID: "missing", Status: RunFailed})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.InsertRun(ctx, &Run{
			ID: id, Trigger: TriggerSchedule, Status: RunCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestAlarmUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetAlarm(ctx, "pulse")
	assert.True(t, errors.Is(err, ErrNotFound))

	at := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())
	require.NoError(t, store.SaveAlarm(ctx, Alarm{Name: "pulse", Kind: "recurring", ScheduledAt: at, Period: 5 * time.Hour}))
	require.NoError(t, store.SaveAlarm(ctx, Alarm{Name: "pulse", Kind: "deferred", ScheduledAt: at}))

	got, err := store.GetAlarm(ctx, "pulse")
	require.NoError(t, err)
	assert.Equal(t, "deferred", got.Kind)
	assert.Equal(t, at, got.ScheduledAt)
	assert.Zero(t, got.Period)

	require.NoError(t, store.DeleteAlarm(ctx, "pulse"))
	_, err = store.GetAlarm(ctx, "pulse")
	assert.True(t, errors.Is(err, ErrNotFound))
}
