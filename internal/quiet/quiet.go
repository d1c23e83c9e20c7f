// Package quiet implements the daily quiet-hours window.
package quiet

import (
	"fmt"
	"time"
)

// Window is a daily range of whole hours during which scheduled runs are held
// back. Start is inclusive, End exclusive. When Start >= End the window spans
// midnight, so Start == End covers the whole day.
type Window struct {
	Enabled bool
	Start   int
	End     int
}

// ContainsHour reports whether hour h (0-23) falls inside the window.
func (w Window) ContainsHour(h int) bool {
	if !w.Enabled {
		return false
	}
	if w.Start >= w.End {
		return h >= w.Start || h < w.End
	}
	return h >= w.Start && h < w.End
}

// Contains reports whether t falls inside the window, using t's location.
func (w Window) Contains(t time.Time) bool {
	return w.ContainsHour(t.Hour())
}

// NextEnd returns the window's end boundary: today's End:00:00 if it is not
// already past, otherwise tomorrow's.
func (w Window) NextEnd(now time.Time) time.Time {
	end := time.Date(now.Year(), now.Month(), now.Day(), w.End, 0, 0, 0, now.Location())
	if end.Before(now) {
		end = time.Date(now.Year(), now.Month(), now.Day()+1, w.End, 0, 0, 0, now.Location())
	}
	return end
}

// String renders the window as "22:00-7:00".
func (w Window) String() string {
	return fmt.Sprintf("%d:00-%d:00", w.Start, w.End)
}
