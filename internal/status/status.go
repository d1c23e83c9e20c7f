// Package status renders the scheduler state as the short human-readable
// lines shown by the CLI and the API.
package status

import (
	"fmt"
	"math"
	"time"

	"github.com/neboloop/promptpulse/internal/scheduler"
	"github.com/neboloop/promptpulse/internal/settings"
)

const (
	TextActive  = "Active"
	TextWaiting = "Waiting for first run..."
	TextSoon    = "Running soon..."
)

// Status is the computed view.
type Status struct {
	Active       bool       `json:"active"`
	Text         string     `json:"text"`
	Countdown    string     `json:"countdown"`
	NextRun      *time.Time `json:"nextRun,omitempty"`
	MinutesUntil int        `json:"minutesUntil"`
	AlarmKind    string     `json:"alarmKind,omitempty"`
	InQuietHours bool       `json:"inQuietHours"`
	QuietWindow  string     `json:"quietWindow,omitempty"`
}

// Compute derives the status at now. alarm is nil when nothing is scheduled.
func Compute(alarm *scheduler.Alarm, set settings.Settings, now time.Time) Status {
	if alarm == nil {
		return Status{Text: TextWaiting}
	}

	st := Status{
		Active:    true,
		Text:      TextActive,
		AlarmKind: string(alarm.Kind),
	}
	next := alarm.ScheduledAt
	st.NextRun = &next

	win := set.Window()
	if win.Enabled {
		st.QuietWindow = win.String()
	}
	if win.Contains(now) {
		st.InQuietHours = true
		st.Text = fmt.Sprintf("%s (Quiet: %s)", TextActive, win.String())
	}

	st.MinutesUntil = MinutesUntil(next, now)
	st.Countdown = Countdown(st.MinutesUntil)
	return st
}

// MinutesUntil is the distance from now to next in whole minutes, rounded
// half up.
func MinutesUntil(next, now time.Time) int {
	return int(math.Floor(next.Sub(now).Minutes() + 0.5))
}

// Countdown renders "Next run in 1h 5m", "Next run in 12m" or "Running soon...".
func Countdown(minutes int) string {
	if minutes <= 0 {
		return TextSoon
	}
	h, m := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("Next run in %dh %dm", h, m)
	}
	return fmt.Sprintf("Next run in %dm", m)
}
