package types

import (
	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/scheduler"
	"github.com/neboloop/promptpulse/internal/settings"
	"github.com/neboloop/promptpulse/internal/status"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

type SettingsResponse struct {
	Settings settings.Settings `json:"settings"`
}

type StatusResponse struct {
	Status   status.Status    `json:"status"`
	Alarm    *scheduler.Alarm `json:"alarm,omitempty"`
	Interval string           `json:"interval"`
}

type RunNowRequest struct {
	Prompt string `json:"prompt,omitempty"`
	Model  string `json:"model,omitempty"`
}

type RunResponse struct {
	Run *db.Run `json:"run"`
}

type ListRunsResponse struct {
	Runs  []db.Run `json:"runs"`
	Total int      `json:"total"`
}

type ResetScheduleResponse struct {
	Alarm scheduler.Alarm `json:"alarm"`
}
