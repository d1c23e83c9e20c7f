package launcher

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/neboloop/promptpulse/internal/automation"
	"github.com/neboloop/promptpulse/internal/browser"
	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/dispatch"
	"github.com/neboloop/promptpulse/internal/events"
)

// drive waits for the tab to load and then delivers the automation to it
// through the dispatch table, the same way an external message would.
func (l *Launcher) drive(ctx context.Context, run *db.Run, tab browser.Tab, prompt string) {
	cfg := l.Config()
	log := l.logger.With("run", run.ID, "tab", tab.ID())

	page := l.newPage(tab, cfg.Heuristics)
	err := automation.Poll(ctx, cfg.Timings.LoadPoll, cfg.Timings.LoadTimeout, func(ctx context.Context) (bool, error) {
		state, err := page.ReadyState(ctx)
		return state == "complete", err
	})
	if err != nil {
		log.Warn("page did not finish loading", "error", err)
		l.untrack(tab.ID())
		l.closeQuietly(tab.ID())
		l.finish(ctx, run, nil, fmt.Errorf("wait for load: %w", err))
		return
	}
	log.Info("page loaded")

	if _, err := l.dispatcher.Dispatch(ctx, dispatch.StartAutomation{TabID: tab.ID(), Prompt: prompt}); err != nil {
		log.Debug("automation ended with error", "error", err)
	}
}

// StartAutomation delivers prompt to the tab and runs the sequence there.
// Delivery is retried once after Timings.DeliveryRetry. The call returns
// when the sequence is done.
func (l *Launcher) StartAutomation(ctx context.Context, req dispatch.StartAutomation) (dispatch.Response, error) {
	if req.TabID == "" {
		return dispatch.Response{}, ErrMissingTab
	}
	tab, err := l.opener.Tab(req.TabID)
	if err != nil {
		return dispatch.Response{}, err
	}

	run := l.runFor(req.TabID)
	if run == nil {
		run, err = l.adopt(ctx, tab, req.Prompt)
		if err != nil {
			return dispatch.Response{}, err
		}
	}

	cfg := l.Config()
	log := l.logger.With("run", run.ID, "tab", tab.ID())
	page := l.newPage(tab, cfg.Heuristics)

	if err := l.deliver(ctx, page, cfg.Timings.DeliveryRetry); err != nil {
		log.Error("could not reach page", "error", err)
		l.untrack(tab.ID())
		l.closeQuietly(tab.ID())
		l.finish(ctx, run, nil, err)
		return dispatch.Response{RunID: run.ID}, err
	}

	owner := automation.OwnerFunc(func(ctx context.Context) error {
		_, err := l.dispatcher.Dispatch(ctx, dispatch.CloseCurrentTab{TabID: tab.ID()})
		return err
	})
	seq := automation.NewSequence(cfg.Timings, cfg.Heuristics, automation.WithLogger(log))
	rep, err := seq.Run(ctx, page, req.Prompt, owner)

	// Aborted and failed runs never reach the close request.
	if l.untrack(tab.ID()) != nil && (rep == nil || !rep.OwnerNotified) {
		l.closeQuietly(tab.ID())
	}
	l.finish(ctx, run, rep, err)
	if err != nil {
		return dispatch.Response{RunID: run.ID}, err
	}
	return dispatch.Response{Success: true, RunID: run.ID}, nil
}

// adopt records a run for a tab that was opened outside Launch.
func (l *Launcher) adopt(ctx context.Context, tab browser.Tab, prompt string) (*db.Run, error) {
	if prompt == "" {
		return nil, errors.New("prompt required")
	}
	run := &db.Run{
		ID:           newRunID(),
		Trigger:      db.TriggerManual,
		PromptLength: utf8.RuneCountInString(prompt),
		TabID:        tab.ID(),
		Status:       db.RunRunning,
		StartedAt:    time.Now(),
	}
	if err := l.runs.InsertRun(ctx, run); err != nil {
		l.logger.Warn("run not recorded", "run", run.ID, "error", err)
	}
	events.Emit(ctx, l.bus, events.TopicRunStarted, *run)
	l.track(tab.ID(), run)
	return run, nil
}

func (l *Launcher) deliver(ctx context.Context, page automation.Page, retryAfter time.Duration) error {
	_, err := page.ReadyState(ctx)
	if err == nil {
		return nil
	}
	l.logger.Warn("first delivery failed, retrying", "error", err, "after", retryAfter)
	if err := automation.Sleep(ctx, retryAfter); err != nil {
		return err
	}
	if _, err := page.ReadyState(ctx); err != nil {
		return fmt.Errorf("deliver automation: %w", err)
	}
	return nil
}

// RunImmediately launches a manual run. The request's model wins over the
// stored one.
func (l *Launcher) RunImmediately(ctx context.Context, req dispatch.RunImmediately) (dispatch.Response, error) {
	run, err := l.Launch(ctx, Request{Trigger: db.TriggerManual, Prompt: req.Prompt, Model: req.Model})
	if err != nil {
		resp := dispatch.Response{}
		if run != nil {
			resp.RunID = run.ID
		}
		return resp, err
	}
	return dispatch.Response{Success: true, RunID: run.ID}, nil
}

// CloseTab closes a tab opened by the launcher.
func (l *Launcher) CloseTab(ctx context.Context, tabID string) (dispatch.Response, error) {
	if tabID == "" {
		return dispatch.Response{}, ErrMissingTab
	}
	if err := l.opener.CloseTab(ctx, tabID); err != nil {
		return dispatch.Response{}, err
	}
	return dispatch.Response{Success: true}, nil
}

func (l *Launcher) closeQuietly(tabID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := l.opener.CloseTab(ctx, tabID); err != nil && !errors.Is(err, browser.ErrTabNotFound) {
		l.logger.Warn("close tab failed", "tab", tabID, "error", err)
	}
}

// finish stamps the outcome on run and persists it. A context that is
// already done does not stop the record from being written.
func (l *Launcher) finish(ctx context.Context, run *db.Run, rep *automation.Report, err error) {
	now := time.Now()
	run.FinishedAt = &now

	if rep != nil {
		if rep.Editor != nil {
			run.EditorKind = string(rep.Editor.Kind)
		}
		run.SubmitMethod = string(rep.SubmitMethod)
		run.ResponseDetected = rep.ResponseDetected
	}

	switch {
	case err == nil:
		run.Status = db.RunCompleted
	case errors.Is(err, automation.ErrEditorNotFound):
		run.Status = db.RunAborted
		run.Error = err.Error()
	default:
		run.Status = db.RunFailed
		run.Error = err.Error()
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if uerr := l.runs.UpdateRun(wctx, run); uerr != nil {
		l.logger.Warn("run outcome not recorded", "run", run.ID, "error", uerr)
	}
	events.Emit(wctx, l.bus, events.TopicRunFinished, *run)
	l.logger.Info("run finished", "run", run.ID, "status", run.Status,
		"response", run.ResponseDetected, "duration", now.Sub(run.StartedAt).Round(time.Millisecond))
}
