package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/neboloop/promptpulse/internal/logging"
)

// Handlers is implemented by whatever owns tabs and runs.
type Handlers interface {
	StartAutomation(ctx context.Context, req StartAutomation) (Response, error)
	RunImmediately(ctx context.Context, req RunImmediately) (Response, error)
	CloseTab(ctx context.Context, tabID string) (Response, error)
}

type handlerFunc func(ctx context.Context, req Request) (Response, error)

// Dispatcher routes requests by action.
type Dispatcher struct {
	table  map[Action]handlerFunc
	logger *slog.Logger
}

// New builds the dispatch table over h.
func New(h Handlers) *Dispatcher {
	closeTab := func(ctx context.Context, req Request) (Response, error) {
		var id string
		switch v := req.(type) {
		case CloseTab:
			id = v.TabID
		case CloseCurrentTab:
			id = v.TabID
		}
		return h.CloseTab(ctx, id)
	}

	return &Dispatcher{
		logger: logging.With("dispatch"),
		table: map[Action]handlerFunc{
			ActionStartAutomation: func(ctx context.Context, req Request) (Response, error) {
				return h.StartAutomation(ctx, req.(StartAutomation))
			},
			ActionRunImmediately: func(ctx context.Context, req Request) (Response, error) {
				return h.RunImmediately(ctx, req.(RunImmediately))
			},
			ActionCloseTab:        closeTab,
			ActionCloseCurrentTab: closeTab,
		},
	}
}

// Actions lists the registered actions in sorted order.
func (d *Dispatcher) Actions() []Action {
	out := make([]Action, 0, len(d.table))
	for a := range d.table {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch runs the handler registered for req's action. Handler failures
// come back both as an error and as an unsuccessful Response.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Response, error) {
	if req == nil {
		return Response{Error: ErrUnknownAction.Error()}, ErrUnknownAction
	}
	fn, ok := d.table[req.Action()]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownAction, req.Action())
		return Response{Error: err.Error()}, err
	}

	d.logger.Debug("dispatch", "action", req.Action())
	resp, err := fn(ctx, req)
	if err != nil {
		d.logger.Warn("handler failed", "action", req.Action(), "error", err)
		resp.Success = false
		if resp.Error == "" {
			resp.Error = err.Error()
		}
		return resp, err
	}
	return resp, nil
}

// DispatchRaw decodes and dispatches a JSON message.
func (d *Dispatcher) DispatchRaw(ctx context.Context, data []byte) (Response, error) {
	req, err := Decode(data)
	if err != nil {
		return Response{Error: err.Error()}, err
	}
	return d.Dispatch(ctx, req)
}
