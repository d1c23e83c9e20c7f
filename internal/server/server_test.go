package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/dispatch"
	"github.com/neboloop/promptpulse/internal/middleware"
	"github.com/neboloop/promptpulse/internal/settings"
	"github.com/neboloop/promptpulse/internal/svc/svctest"
	"github.com/neboloop/promptpulse/internal/types"
)

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func newClient(t *testing.T) (*svctest.Env, *client) {
	t.Helper()
	env := svctest.New(t, nil)
	token, err := middleware.IssueToken(svctest.Secret, "test", time.Hour)
	require.NoError(t, err)
	return env, &client{t: t, router: NewRouter(env.Svc, ServerOptions{Quiet: true}), token: token}
}

func (c *client) do(method, path, body string, out any) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	_, c := newClient(t)
	c.token = ""

	var resp types.HealthResponse
	rec := c.do(http.MethodGet, "/health", "", &resp)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp.Status)
}

func TestAPIRequiresToken(t *testing.T) {
	_, c := newClient(t)
	c.token = ""

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/v1/settings", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/ws", "", nil).Code)

	c.token = "garbage"
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/v1/status", "", nil).Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	_, c := newClient(t)

	var resp types.SettingsResponse
	rec := c.do(http.MethodGet, "/api/v1/settings", "", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, settings.Defaults(), resp.Settings)

	want := settings.Settings{Prompt: "Daily check-in", Model: "claude-sonnet", QuietHoursEnabled: true, QuietStartHour: 23, QuietEndHour: 6}
	body, _ := json.Marshal(want)
	rec = c.do(http.MethodPut, "/api/v1/settings", string(body), &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, resp.Settings)

	c.do(http.MethodGet, "/api/v1/settings", "", &resp)
	assert.Equal(t, want, resp.Settings)

	rec = c.do(http.MethodPatch, "/api/v1/settings", `{"quietEndHour":8}`, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8, resp.Settings.QuietEndHour)
	assert.Equal(t, "Daily check-in", resp.Settings.Prompt)

	rec = c.do(http.MethodPost, "/api/v1/settings/reset", "", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, settings.Defaults(), resp.Settings)
}

func TestSettingsRejectsBadInput(t *testing.T) {
	_, c := newClient(t)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPatch, "/api/v1/settings", `{"quietStartHour":24}`, nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPatch, "/api/v1/settings", `{}`, nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPut, "/api/v1/settings", `{"unknown":1}`, nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPut, "/api/v1/settings", `{`, nil).Code)
}

func TestStatusAndScheduleReset(t *testing.T) {
	_, c := newClient(t)

	var st types.StatusResponse
	rec := c.do(http.MethodGet, "/api/v1/status", "", &st)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Waiting for first run...", st.Status.Text)
	assert.Nil(t, st.Alarm)
	assert.Equal(t, "5h0m0s", st.Interval)

	var reset types.ResetScheduleResponse
	rec = c.do(http.MethodPost, "/api/v1/schedule/reset", "", &reset)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "recurring", string(reset.Alarm.Kind))

	c.do(http.MethodGet, "/api/v1/status", "", &st)
	assert.True(t, st.Status.Active)
	require.NotNil(t, st.Alarm)
	assert.Equal(t, reset.Alarm.ScheduledAt.Unix(), st.Alarm.ScheduledAt.Unix())
}

func TestRunNowAndHistory(t *testing.T) {
	env, c := newClient(t)

	var started types.RunResponse
	rec := c.do(http.MethodPost, "/api/v1/runs", `{"prompt":"hello there","model":"claude-y"}`, &started)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, started.Run)
	assert.Equal(t, db.TriggerManual, started.Run.Trigger)

	require.Eventually(t, func() bool {
		r, err := env.Svc.DB.GetRun(context.Background(), started.Run.ID)
		return err == nil && r.Status == db.RunCompleted
	}, 2*time.Second, 5*time.Millisecond)

	var list types.ListRunsResponse
	rec = c.do(http.MethodGet, "/api/v1/runs?limit=5", "", &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "claude-y", list.Runs[0].Model)

	var one types.RunResponse
	rec = c.do(http.MethodGet, "/api/v1/runs/"+started.Run.ID, "", &one)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, one.Run.ResponseDetected)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/v1/runs/missing", "", nil).Code)
}

func TestRunNowWithoutBody(t *testing.T) {
	env, c := newClient(t)

	var started types.RunResponse
	rec := c.do(http.MethodPost, "/api/v1/runs", "", &started)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, settings.Defaults().Model, started.Run.Model)

	require.Eventually(t, func() bool {
		r, err := env.Svc.DB.GetRun(context.Background(), started.Run.ID)
		return err == nil && r.Status != db.RunRunning
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMessages(t *testing.T) {
	env, c := newClient(t)

	var actions struct {
		Actions []string `json:"actions"`
	}
	c.do(http.MethodGet, "/api/v1/messages", "", &actions)
	assert.Contains(t, actions.Actions, "runImmediately")
	assert.Contains(t, actions.Actions, "closeCurrentTab")

	var resp dispatch.Response
	rec := c.do(http.MethodPost, "/api/v1/messages", `{"action":"runImmediately","prompt":"x"}`, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	require.Eventually(t, func() bool {
		r, err := env.Svc.DB.GetRun(context.Background(), resp.RunID)
		return err == nil && r.Status != db.RunRunning
	}, 2*time.Second, 5*time.Millisecond)

	rec = c.do(http.MethodPost, "/api/v1/messages", `{"action":"selfDestruct"}`, &resp)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	rec = c.do(http.MethodPost, "/api/v1/messages", `{"action":"closeTab","tabId":"nope"}`, &resp)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, resp.Success)
}

func TestCORSPreflight(t *testing.T) {
	_, c := newClient(t)
	c.token = ""

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/settings", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/settings", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
