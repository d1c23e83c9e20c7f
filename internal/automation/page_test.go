package automation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTab answers Evaluate with a canned JSON value and records expressions.
type scriptedTab struct {
	reply    string
	exprs    []string
	clicks   int
	clickErr error
}

func (s *scriptedTab) Evaluate(ctx context.Context, expression string, out any) error {
	s.exprs = append(s.exprs, expression)
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(s.reply), out)
}

func (s *scriptedTab) ClickAt(ctx context.Context, x, y float64) error {
	s.clicks++
	return s.clickErr
}

func (s *scriptedTab) PressEnter(ctx context.Context) error { return nil }

func TestScriptsEmbedded(t *testing.T) {
	for _, src := range []string{scriptFindEditor, scriptActivate, scriptFocus, scriptInsert,
		scriptFinishInput, scriptThinking, scriptFindSubmit, scriptClickMarked,
		scriptResponseState, scriptBodyPreview} {
		assert.True(t, strings.HasPrefix(src, "function (args)"), "script should be a function expression: %.40s", src)
	}
}

func TestInvokePassesJSONArgs(t *testing.T) {
	expr, err := invoke("function (args) { return args.text; }", map[string]any{"text": `a"b`})
	require.NoError(t, err)
	assert.Equal(t, `(function (args) { return args.text; })({"text":"a\"b"})`, expr)
}

func TestFindEditorDecodes(t *testing.T) {
	tab := &scriptedTab{reply: `{"found":true,"strategy":"prosemirror","kind":"prosemirror","tag":"div","x":10,"y":20,"width":300,"height":40}`}
	page := NewScriptPage(tab, DefaultHeuristics())

	ed, err := page.FindEditor(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ed)
	assert.Equal(t, EditorProseMirror, ed.Kind)
	assert.Equal(t, 10.0, ed.X)
	assert.Contains(t, tab.exprs[0], `.ProseMirror[contenteditable=\"true\"]`)
	assert.Contains(t, tab.exprs[0], editorMarker)

	tab.reply = `{"found":false}`
	ed, err = page.FindEditor(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ed)
}

func TestFindSubmitPassesColorRange(t *testing.T) {
	tab := &scriptedTab{reply: `{"found":true,"method":"color","label":"Send","total":7,"x":1,"y":2,"visible":true}`}
	page := NewScriptPage(tab, DefaultHeuristics())

	b, err := page.FindSubmit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, SubmitColor, b.Method)
	assert.Equal(t, 7, b.Total)
	assert.Contains(t, tab.exprs[0], `"rMin":180`)
	assert.Contains(t, tab.exprs[0], `"bMax":80`)
}

func TestClickSubmitFallsBackToDOMClick(t *testing.T) {
	tab := &scriptedTab{reply: `true`, clickErr: errors.New("no layout")}
	page := NewScriptPage(tab, DefaultHeuristics())

	err := page.ClickSubmit(context.Background(), &Button{Visible: true, X: 5, Y: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, tab.clicks)
	require.Len(t, tab.exprs, 1)
	assert.Contains(t, tab.exprs[0], submitMarker)

	tab.reply = `false`
	tab.clickErr = nil
	err = page.ClickSubmit(context.Background(), &Button{Visible: false})
	assert.Error(t, err)
}

func TestActivateMissingEditor(t *testing.T) {
	tab := &scriptedTab{reply: `false`}
	page := NewScriptPage(tab, DefaultHeuristics())
	err := page.Activate(context.Background())
	assert.True(t, errors.Is(err, ErrEditorNotFound))
}

func TestInsertTextReportsMethod(t *testing.T) {
	tab := &scriptedTab{reply: `"dom"`}
	page := NewScriptPage(tab, DefaultHeuristics())
	m, err := page.InsertText(context.Background(), "x", true)
	require.NoError(t, err)
	assert.Equal(t, InsertDOM, m)
	assert.Contains(t, tab.exprs[0], `"caretToEnd":true`)
}

func TestColorRangeContains(t *testing.T) {
	c := DefaultHeuristics().SubmitColor
	assert.True(t, c.Contains(200, 100, 60))
	assert.True(t, c.Contains(180, 80, 50))
	assert.False(t, c.Contains(221, 100, 60))
	assert.False(t, c.Contains(200, 100, 81))
}

func TestTimingsWithDefaults(t *testing.T) {
	tm := Timings{SettleDelay: 1}.WithDefaults()
	d := DefaultTimings()
	assert.EqualValues(t, 1, tm.SettleDelay)
	assert.Equal(t, d.ResponseMax, tm.ResponseMax)
	assert.Equal(t, d.ShortPromptLimit, tm.ShortPromptLimit)
	assert.Equal(t, d.FocusAttempts, tm.FocusAttempts)
}
