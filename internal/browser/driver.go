package browser

import (
	"context"
	"errors"
	"fmt"
)

// ErrTabNotFound is returned when a tab ID is not (or no longer) open.
var ErrTabNotFound = errors.New("tab not found")

// Tab is one open page.
type Tab interface {
	ID() string
	// Evaluate runs a JavaScript expression in the page and decodes its JSON
	// value into out. out may be nil.
	Evaluate(ctx context.Context, expression string, out any) error
	// ClickAt dispatches a native left click at viewport coordinates.
	ClickAt(ctx context.Context, x, y float64) error
	// PressEnter dispatches a native Enter key press to the focused element.
	PressEnter(ctx context.Context) error
	Close(ctx context.Context) error
}

// Driver opens tabs in a browser it owns.
type Driver interface {
	Name() string
	OpenTab(ctx context.Context, url string) (Tab, error)
	Close() error
}

// NewDriver builds the driver selected by cfg.Driver.
func NewDriver(cfg Config) (Driver, error) {
	switch cfg.Driver {
	case DriverChromedp, "":
		return NewChromedpDriver(cfg), nil
	case DriverPlaywright:
		return NewPlaywrightDriver(cfg), nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
	}
}
