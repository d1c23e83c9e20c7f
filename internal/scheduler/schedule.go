package scheduler

import "time"

// every fires at anchor + k*period for k >= 0, so a restored alarm keeps its
// phase across restarts.
type every struct {
	anchor time.Time
	period time.Duration
}

func (e every) Next(t time.Time) time.Time {
	if t.Before(e.anchor) {
		return e.anchor
	}
	n := t.Sub(e.anchor)/e.period + 1
	return e.anchor.Add(n * e.period)
}

// once fires a single time at at.
type once struct {
	at time.Time
}

func (o once) Next(t time.Time) time.Time {
	if t.Before(o.at) {
		return o.at
	}
	return time.Time{}
}
