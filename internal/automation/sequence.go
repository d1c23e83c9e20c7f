// Package automation runs the in-page prompt sequence: find the editor,
// type the prompt, submit it and wait for the reply.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"

	"github.com/neboloop/promptpulse/internal/logging"
)

// ErrEditorNotFound aborts a run when the page has nothing editable.
var ErrEditorNotFound = errors.New("no editable element found")

var errFocusMissed = errors.New("focus did not land in editor")

// Owner is told when the sequence is done with its tab.
type Owner interface {
	CloseCurrentTab(ctx context.Context) error
}

// OwnerFunc adapts a function to Owner.
type OwnerFunc func(ctx context.Context) error

func (f OwnerFunc) CloseCurrentTab(ctx context.Context) error { return f(ctx) }

// Report summarizes what a run did.
type Report struct {
	Editor           *Editor              `json:"editor,omitempty"`
	InsertCalls      int                  `json:"insertCalls"`
	InsertMethods    map[InsertMethod]int `json:"insertMethods,omitempty"`
	Content          string               `json:"content"`
	Thinking         ThinkingResult       `json:"thinking"`
	SubmitMethod     SubmitMethod         `json:"submitMethod,omitempty"`
	ResponseDetected bool                 `json:"responseDetected"`
	ResponseChecks   int                  `json:"responseChecks"`
	OwnerNotified    bool                 `json:"ownerNotified"`
}

// Option configures a Sequence.
type Option func(*Sequence)

// WithLogger sets the logger. Defaults to the "automation" component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequence) {
		s.logger = l
	}
}

// Sequence is the linear automation script for one tab. Every step logs
// and carries on; only a missing editor aborts.
type Sequence struct {
	timings Timings
	h       Heuristics
	logger  *slog.Logger
}

// NewSequence creates a sequence.
func NewSequence(t Timings, h Heuristics, opts ...Option) *Sequence {
	s := &Sequence{timings: t, h: h, logger: logging.With("automation")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives page through the whole sequence. owner may be nil.
func (s *Sequence) Run(ctx context.Context, page Page, prompt string, owner Owner) (*Report, error) {
	rep := &Report{InsertMethods: make(map[InsertMethod]int)}
	log := s.logger

	log.Info("automation start", "step", "start", "promptLength", utf8.RuneCountInString(prompt))
	if err := Sleep(ctx, s.timings.SettleDelay); err != nil {
		return rep, err
	}

	editor, err := page.FindEditor(ctx)
	if err != nil || editor == nil {
		preview, _ := page.BodyPreview(ctx)
		log.Error("input element not found", "step", "locate", "error", err, "htmlPreview", preview)
		if err != nil {
			return rep, fmt.Errorf("%w: %v", ErrEditorNotFound, err)
		}
		return rep, ErrEditorNotFound
	}
	rep.Editor = editor
	log.Info("editor found", "step", "locate", "kind", editor.Kind, "strategy", editor.Strategy, "tag", editor.Tag)

	if err := s.activate(ctx, page); err != nil {
		return rep, err
	}
	if err := s.insert(ctx, page, prompt, rep); err != nil {
		return rep, err
	}
	if err := s.disableThinking(ctx, page, rep); err != nil {
		return rep, err
	}
	s.submit(ctx, page, rep)

	detected, checks, err := s.waitForResponse(ctx, page)
	rep.ResponseDetected, rep.ResponseChecks = detected, checks
	if err != nil {
		return rep, err
	}
	log.Info("response wait finished", "step", "response", "detected", detected, "checks", checks)

	if err := Sleep(ctx, s.timings.CloseDelay); err != nil {
		return rep, err
	}
	if owner != nil {
		if err := owner.CloseCurrentTab(ctx); err != nil {
			log.Warn("close request failed", "step", "close", "error", err)
		} else {
			rep.OwnerNotified = true
		}
	}
	log.Info("automation complete", "step", "done", "submit", rep.SubmitMethod, "insertCalls", rep.InsertCalls)
	return rep, nil
}

func (s *Sequence) activate(ctx context.Context, page Page) error {
	s.click(ctx, page, "activate")
	if err := Sleep(ctx, s.timings.ActivateDelay); err != nil {
		return err
	}
	if !s.ensureFocus(ctx, page) {
		s.logger.Info("initial focus failed, clicking again", "step", "activate")
		s.click(ctx, page, "activate")
		if err := Sleep(ctx, s.timings.ReclickDelay); err != nil {
			return err
		}
		if _, err := page.Focus(ctx); err != nil {
			s.logger.Warn("focus failed", "step", "activate", "error", err)
		}
	}
	return Sleep(ctx, s.timings.ActivateDelay)
}

func (s *Sequence) insert(ctx context.Context, page Page, prompt string, rep *Report) error {
	runes := []rune(prompt)

	if len(runes) <= s.timings.ShortPromptLimit {
		s.click(ctx, page, "insert")
		if err := Sleep(ctx, s.timings.ShortPromptDelay); err != nil {
			return err
		}
		s.ensureFocus(ctx, page)
		if err := Sleep(ctx, s.timings.ShortPromptDelay); err != nil {
			return err
		}
		s.insertOnce(ctx, page, prompt, true, rep)
	} else {
		every := max(1, s.timings.RefocusEvery)
		for i, r := range runes {
			if i%every == 0 {
				s.click(ctx, page, "insert")
				if err := Sleep(ctx, s.timings.RefocusDelay); err != nil {
					return err
				}
			}
			s.ensureFocus(ctx, page)
			s.insertOnce(ctx, page, string(r), false, rep)

			if (i+1)%10 == 0 || i == len(runes)-1 {
				s.logger.Debug("insert progress", "step", "insert", "done", i+1, "total", len(runes))
			}
			if err := Sleep(ctx, s.timings.CharDelay); err != nil {
				return err
			}
		}
	}

	s.click(ctx, page, "insert")
	s.ensureFocus(ctx, page)
	content, err := page.FinishInput(ctx)
	if err != nil {
		s.logger.Warn("change event failed", "step", "insert", "error", err)
	}
	rep.Content = content
	if strings.TrimSpace(content) == "" {
		s.logger.Warn("editor appears empty after injection", "step", "insert")
	} else {
		s.logger.Info("text injected", "step", "insert", "length", utf8.RuneCountInString(content), "calls", rep.InsertCalls)
	}
	return Sleep(ctx, s.timings.PostInsertDelay)
}

func (s *Sequence) insertOnce(ctx context.Context, page Page, text string, caretToEnd bool, rep *Report) {
	rep.InsertCalls++
	method, err := page.InsertText(ctx, text, caretToEnd)
	if err != nil {
		s.logger.Warn("insert failed", "step", "insert", "error", err)
		return
	}
	rep.InsertMethods[method]++
}

func (s *Sequence) disableThinking(ctx context.Context, page Page, rep *Report) error {
	res, err := page.DisableExtendedThinking(ctx)
	if err != nil {
		s.logger.Warn("extended thinking check failed", "step", "thinking", "error", err)
	}
	rep.Thinking = res
	s.logger.Info("extended thinking checked", "step", "thinking", "candidates", res.Candidates, "disabled", res.Disabled)
	if res.Disabled {
		if err := Sleep(ctx, s.timings.ThinkingDelay); err != nil {
			return err
		}
	}
	return Sleep(ctx, s.timings.ThinkingDelay)
}

func (s *Sequence) submit(ctx context.Context, page Page, rep *Report) {
	btn, err := page.FindSubmit(ctx)
	if err != nil {
		s.logger.Warn("submit lookup failed", "step", "submit", "error", err)
	}
	if btn != nil {
		err := page.ClickSubmit(ctx, btn)
		if err == nil {
			rep.SubmitMethod = btn.Method
			s.logger.Info("send button clicked", "step", "submit", "method", btn.Method, "label", btn.Label)
			return
		}
		s.logger.Warn("send button click failed", "step", "submit", "error", err)
	}

	s.logger.Info("no send button, pressing Enter", "step", "submit")
	s.ensureFocus(ctx, page)
	if err := page.PressEnter(ctx); err != nil {
		s.logger.Warn("enter key failed", "step", "submit", "error", err)
	}
	rep.SubmitMethod = SubmitEnter
}

// waitForResponse reports whether the reply arrived before ResponseMax.
// Running out of time is not an error.
func (s *Sequence) waitForResponse(ctx context.Context, page Page) (bool, int, error) {
	checks := 0
	err := Poll(ctx, s.timings.ResponsePoll, s.timings.ResponseMax, func(ctx context.Context) (bool, error) {
		checks++
		if checks%10 == 0 {
			s.logger.Debug("waiting for response", "step", "response", "check", checks)
		}
		st, err := page.ResponseState(ctx)
		if err != nil {
			return false, err
		}
		return st.Messages > s.h.MessageThreshold && !st.Loading, nil
	})
	switch {
	case err == nil:
		return true, checks, nil
	case errors.Is(err, ErrPollTimeout):
		s.logger.Info("response wait timed out", "step", "response", "checks", checks)
		return false, checks, nil
	default:
		return false, checks, err
	}
}

func (s *Sequence) click(ctx context.Context, page Page, step string) {
	if err := page.Activate(ctx); err != nil {
		s.logger.Warn("click failed", "step", step, "error", err)
	}
}

// ensureFocus tries to focus the editor up to FocusAttempts times.
func (s *Sequence) ensureFocus(ctx context.Context, page Page) bool {
	attempts := max(1, s.timings.FocusAttempts)
	interval := s.timings.FocusRetry
	if interval <= 0 {
		interval = time.Millisecond
	}
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(interval))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		ok, err := page.Focus(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		if !ok {
			return retry.RetryableError(errFocusMissed)
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("focus not confirmed", "attempts", attempts, "error", err)
		return false
	}
	return true
}
