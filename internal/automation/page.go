package automation

import (
	"context"
	"fmt"
)

// Editor describes the located input element.
type Editor struct {
	Strategy string     `json:"strategy"`
	Kind     EditorKind `json:"kind"`
	Tag      string     `json:"tag"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
}

// SubmitMethod records how the prompt was submitted.
type SubmitMethod string

const (
	SubmitColor SubmitMethod = "color"
	SubmitLabel SubmitMethod = "label"
	SubmitEnter SubmitMethod = "enter"
)

// Button is the located submit control.
type Button struct {
	Method  SubmitMethod `json:"method"`
	Label   string       `json:"label"`
	Total   int          `json:"total"`
	X       float64      `json:"x"`
	Y       float64      `json:"y"`
	Visible bool         `json:"visible"`
}

// InsertMethod is the technique that actually inserted text.
type InsertMethod string

const (
	InsertCommand InsertMethod = "command"
	InsertDOM     InsertMethod = "dom"
	InsertValue   InsertMethod = "value"
	InsertNone    InsertMethod = "none"
)

// ThinkingResult reports the extended-thinking toggle scan.
type ThinkingResult struct {
	Candidates int    `json:"candidates"`
	Disabled   bool   `json:"disabled"`
	Label      string `json:"label,omitempty"`
}

// ResponseState is one sample of the conversation area.
type ResponseState struct {
	Messages int  `json:"messages"`
	Loading  bool `json:"loading"`
}

// Page is the DOM surface the sequence works against. Each method is one
// heuristic step evaluated in the tab.
type Page interface {
	ReadyState(ctx context.Context) (string, error)
	// FindEditor locates and marks the editor. It returns nil, nil when
	// nothing editable exists.
	FindEditor(ctx context.Context) (*Editor, error)
	// Activate dispatches pointer and click events at the editor's centre.
	Activate(ctx context.Context) error
	// Focus focuses the editor once and reports whether focus landed inside it.
	Focus(ctx context.Context) (bool, error)
	// InsertText inserts text at the caret. caretToEnd forces the caret to
	// the end of the editor before inserting.
	InsertText(ctx context.Context, text string, caretToEnd bool) (InsertMethod, error)
	// FinishInput fires a change event and returns the editor's content.
	FinishInput(ctx context.Context) (string, error)
	DisableExtendedThinking(ctx context.Context) (ThinkingResult, error)
	// FindSubmit locates and marks the submit control. nil, nil when none.
	FindSubmit(ctx context.Context) (*Button, error)
	ClickSubmit(ctx context.Context, b *Button) error
	PressEnter(ctx context.Context) error
	ResponseState(ctx context.Context) (ResponseState, error)
	BodyPreview(ctx context.Context) (string, error)
}

// Evaluator is the subset of a browser tab a ScriptPage needs.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, out any) error
	ClickAt(ctx context.Context, x, y float64) error
	PressEnter(ctx context.Context) error
}

// ScriptPage implements Page by evaluating the embedded scripts in a tab.
type ScriptPage struct {
	tab Evaluator
	h   Heuristics
}

var _ Page = (*ScriptPage)(nil)

// NewScriptPage binds heuristics to a tab.
func NewScriptPage(tab Evaluator, h Heuristics) *ScriptPage {
	return &ScriptPage{tab: tab, h: h}
}

func (p *ScriptPage) eval(ctx context.Context, script string, args, out any) error {
	expr, err := invoke(script, args)
	if err != nil {
		return err
	}
	return p.tab.Evaluate(ctx, expr, out)
}

func (p *ScriptPage) ReadyState(ctx context.Context) (string, error) {
	var state string
	err := p.tab.Evaluate(ctx, "document.readyState", &state)
	return state, err
}

func (p *ScriptPage) FindEditor(ctx context.Context) (*Editor, error) {
	var res struct {
		Found bool `json:"found"`
		Editor
	}
	err := p.eval(ctx, scriptFindEditor, map[string]any{
		"marker":     editorMarker,
		"strategies": p.h.EditorStrategies,
		"minWidth":   p.h.MinEditorWidth,
		"minHeight":  p.h.MinEditorHeight,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("find editor: %w", err)
	}
	if !res.Found {
		return nil, nil
	}
	ed := res.Editor
	return &ed, nil
}

func (p *ScriptPage) Activate(ctx context.Context) error {
	var ok bool
	if err := p.eval(ctx, scriptActivate, map[string]any{"marker": editorMarker}, &ok); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	if !ok {
		return fmt.Errorf("activate: %w", ErrEditorNotFound)
	}
	return nil
}

func (p *ScriptPage) Focus(ctx context.Context) (bool, error) {
	var ok bool
	err := p.eval(ctx, scriptFocus, map[string]any{"marker": editorMarker}, &ok)
	return ok, err
}

func (p *ScriptPage) InsertText(ctx context.Context, text string, caretToEnd bool) (InsertMethod, error) {
	var method string
	err := p.eval(ctx, scriptInsert, map[string]any{
		"marker":     editorMarker,
		"text":       text,
		"caretToEnd": caretToEnd,
	}, &method)
	if err != nil {
		return InsertNone, fmt.Errorf("insert text: %w", err)
	}
	return InsertMethod(method), nil
}

func (p *ScriptPage) FinishInput(ctx context.Context) (string, error) {
	var content string
	err := p.eval(ctx, scriptFinishInput, map[string]any{"marker": editorMarker}, &content)
	return content, err
}

func (p *ScriptPage) DisableExtendedThinking(ctx context.Context) (ThinkingResult, error) {
	var res ThinkingResult
	err := p.eval(ctx, scriptThinking, map[string]any{"keywords": p.h.ThinkingKeywords}, &res)
	return res, err
}

func (p *ScriptPage) FindSubmit(ctx context.Context) (*Button, error) {
	var res struct {
		Found bool `json:"found"`
		Button
	}
	err := p.eval(ctx, scriptFindSubmit, map[string]any{
		"marker":   submitMarker,
		"color":    p.h.SubmitColor,
		"keywords": p.h.SubmitKeywords,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("find submit: %w", err)
	}
	if !res.Found {
		return nil, nil
	}
	b := res.Button
	return &b, nil
}

// ClickSubmit clicks the marked button natively at its centre, falling back
// to a DOM click when it has no box or the native click fails.
func (p *ScriptPage) ClickSubmit(ctx context.Context, b *Button) error {
	if b != nil && b.Visible {
		if err := p.tab.ClickAt(ctx, b.X, b.Y); err == nil {
			return nil
		}
	}
	var ok bool
	if err := p.eval(ctx, scriptClickMarked, map[string]any{"marker": submitMarker}, &ok); err != nil {
		return fmt.Errorf("click submit: %w", err)
	}
	if !ok {
		return fmt.Errorf("click submit: button disappeared")
	}
	return nil
}

func (p *ScriptPage) PressEnter(ctx context.Context) error {
	return p.tab.PressEnter(ctx)
}

func (p *ScriptPage) ResponseState(ctx context.Context) (ResponseState, error) {
	var st ResponseState
	err := p.eval(ctx, scriptResponseState, map[string]any{
		"messageSelector": p.h.MessageSelector,
		"loadingSelector": p.h.LoadingSelector,
	}, &st)
	return st, err
}

func (p *ScriptPage) BodyPreview(ctx context.Context) (string, error) {
	var html string
	err := p.eval(ctx, scriptBodyPreview, map[string]any{"limit": p.h.PreviewLength}, &html)
	return html, err
}
