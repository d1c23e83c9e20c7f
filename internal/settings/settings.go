// Package settings holds the user-editable run settings and their persistence.
package settings

import (
	"errors"
	"fmt"
	"strconv"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/neboloop/promptpulse/internal/quiet"
)

const (
	DefaultPrompt    = "."
	DefaultStartHour = 22
	DefaultEndHour   = 7

	// DefaultModel is the model selected in the target page's URL when none is stored.
	DefaultModel anthropic.Model = "claude-3-5-haiku-20241022"
)

// ErrInvalidHour is returned when a quiet-hours boundary is outside 0-23.
var ErrInvalidHour = errors.New("hour must be between 0 and 23")

// Record keys. The stored record is flat key/value.
const (
	KeyPrompt            = "prompt"
	KeyModel             = "model"
	KeyQuietHoursEnabled = "quietHoursEnabled"
	KeyQuietStartHour    = "quietStartHour"
	KeyQuietEndHour      = "quietEndHour"
)

// Settings is the persisted run configuration.
type Settings struct {
	Prompt            string `json:"prompt"`
	Model             string `json:"model"`
	QuietHoursEnabled bool   `json:"quietHoursEnabled"`
	QuietStartHour    int    `json:"quietStartHour"`
	QuietEndHour      int    `json:"quietEndHour"`
}

// Defaults returns the factory settings.
func Defaults() Settings {
	return Settings{
		Prompt:            DefaultPrompt,
		Model:             string(DefaultModel),
		QuietHoursEnabled: false,
		QuietStartHour:    DefaultStartHour,
		QuietEndHour:      DefaultEndHour,
	}
}

// Normalize fills an empty prompt or model with the defaults.
func (s Settings) Normalize() Settings {
	if s.Prompt == "" {
		s.Prompt = DefaultPrompt
	}
	if s.Model == "" {
		s.Model = string(DefaultModel)
	}
	return s
}

// Validate checks the hour range.
func (s Settings) Validate() error {
	if s.QuietStartHour < 0 || s.QuietStartHour > 23 {
		return fmt.Errorf("quietStartHour %d: %w", s.QuietStartHour, ErrInvalidHour)
	}
	if s.QuietEndHour < 0 || s.QuietEndHour > 23 {
		return fmt.Errorf("quietEndHour %d: %w", s.QuietEndHour, ErrInvalidHour)
	}
	return nil
}

// Window returns the quiet-hours window described by s.
func (s Settings) Window() quiet.Window {
	return quiet.Window{
		Enabled: s.QuietHoursEnabled,
		Start:   s.QuietStartHour,
		End:     s.QuietEndHour,
	}
}

// Record encodes s as the flat stored record.
func (s Settings) Record() map[string]string {
	return map[string]string{
		KeyPrompt:            s.Prompt,
		KeyModel:             s.Model,
		KeyQuietHoursEnabled: strconv.FormatBool(s.QuietHoursEnabled),
		KeyQuietStartHour:    strconv.Itoa(s.QuietStartHour),
		KeyQuietEndHour:      strconv.Itoa(s.QuietEndHour),
	}
}

// FromRecord decodes a stored record. Missing or unparsable keys keep their
// defaults; the offending keys are returned so callers can log them.
func FromRecord(rec map[string]string) (Settings, []string) {
	s := Defaults()
	var bad []string

	if v, ok := rec[KeyPrompt]; ok {
		s.Prompt = v
	}
	if v, ok := rec[KeyModel]; ok {
		s.Model = v
	}
	if v, ok := rec[KeyQuietHoursEnabled]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.QuietHoursEnabled = b
		} else {
			bad = append(bad, KeyQuietHoursEnabled)
		}
	}
	if v, ok := rec[KeyQuietStartHour]; ok {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			s.QuietStartHour = h
		} else {
			bad = append(bad, KeyQuietStartHour)
		}
	}
	if v, ok := rec[KeyQuietEndHour]; ok {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			s.QuietEndHour = h
		} else {
			bad = append(bad, KeyQuietEndHour)
		}
	}
	return s.Normalize(), bad
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Prompt            *string `json:"prompt,omitempty"`
	Model             *string `json:"model,omitempty"`
	QuietHoursEnabled *bool   `json:"quietHoursEnabled,omitempty"`
	QuietStartHour    *int    `json:"quietStartHour,omitempty"`
	QuietEndHour      *int    `json:"quietEndHour,omitempty"`
}

// Apply returns s with the patch's non-nil fields applied.
func (p Patch) Apply(s Settings) Settings {
	if p.Prompt != nil {
		s.Prompt = *p.Prompt
	}
	if p.Model != nil {
		s.Model = *p.Model
	}
	if p.QuietHoursEnabled != nil {
		s.QuietHoursEnabled = *p.QuietHoursEnabled
	}
	if p.QuietStartHour != nil {
		s.QuietStartHour = *p.QuietStartHour
	}
	if p.QuietEndHour != nil {
		s.QuietEndHour = *p.QuietEndHour
	}
	return s
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Prompt == nil && p.Model == nil && p.QuietHoursEnabled == nil &&
		p.QuietStartHour == nil && p.QuietEndHour == nil
}
