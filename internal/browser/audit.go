package browser

import (
	"context"
	"log/slog"
	"time"
)

// auditTab logs every protocol-level action taken on a tab at debug level.
type auditTab struct {
	Tab
	logger *slog.Logger
}

func newAuditTab(t Tab, logger *slog.Logger) Tab {
	return &auditTab{Tab: t, logger: logger.With("tab", t.ID())}
}

func (a *auditTab) Evaluate(ctx context.Context, expression string, out any) error {
	start := time.Now()
	err := a.Tab.Evaluate(ctx, expression, out)
	a.log(ctx, "evaluate", start, err, "expression", truncate(expression, 60))
	return err
}

func (a *auditTab) ClickAt(ctx context.Context, x, y float64) error {
	start := time.Now()
	err := a.Tab.ClickAt(ctx, x, y)
	a.log(ctx, "click", start, err, "x", x, "y", y)
	return err
}

func (a *auditTab) PressEnter(ctx context.Context) error {
	start := time.Now()
	err := a.Tab.PressEnter(ctx)
	a.log(ctx, "key", start, err, "key", "Enter")
	return err
}

func (a *auditTab) Close(ctx context.Context) error {
	start := time.Now()
	err := a.Tab.Close(ctx)
	a.log(ctx, "close", start, err)
	return err
}

func (a *auditTab) log(ctx context.Context, action string, start time.Time, err error, attrs ...any) {
	attrs = append(attrs, "action", action, "took", time.Since(start).Round(time.Millisecond))
	if err != nil {
		a.logger.DebugContext(ctx, "cdp action failed", append(attrs, "error", err)...)
		return
	}
	a.logger.DebugContext(ctx, "cdp action", attrs...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
