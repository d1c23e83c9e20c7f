package automation

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/promptpulse/internal/browser"
)

// chromeFixture runs the embedded scripts in a headless Chrome. Tests skip
// when no Chrome-family browser is installed.
type chromeFixture struct {
	driver *browser.ChromedpDriver
}

func newChromeFixture(t *testing.T) *chromeFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("needs Chrome")
	}
	exe, err := browser.FindChromeExecutable("")
	if err != nil {
		t.Skipf("no Chrome available: %v", err)
	}

	cfg := browser.DefaultConfig()
	cfg.ExecutablePath = exe.Path
	cfg.Headless = true
	cfg.NoSandbox = true
	cfg.UserDataDir = t.TempDir()

	d := browser.NewChromedpDriver(cfg)
	t.Cleanup(func() { d.Close() })
	return &chromeFixture{driver: d}
}

// load opens html in a new tab and waits for it to finish loading.
func (f *chromeFixture) load(t *testing.T, html string) (*ScriptPage, browser.Tab) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tab, err := f.driver.OpenTab(ctx, "data:text/html,"+url.PathEscape(html))
	require.NoError(t, err)
	t.Cleanup(func() { tab.Close(context.Background()) })

	require.Eventually(t, func() bool {
		var state string
		return tab.Evaluate(ctx, "document.readyState", &state) == nil && state == "complete"
	}, 10*time.Second, 50*time.Millisecond)

	return NewScriptPage(tab, DefaultHeuristics()), tab
}

func evalString(t *testing.T, tab browser.Tab, expr string) string {
	t.Helper()
	var s string
	require.NoError(t, tab.Evaluate(context.Background(), expr, &s))
	return s
}

const (
	bigEditor   = `style="display:block;width:300px;height:40px"`
	hugeEditor  = `style="display:block;width:800px;height:400px"`
	smallEditor = `style="display:block;width:100px;height:20px"`
)

func TestScriptsAgainstChrome(t *testing.T) {
	f := newChromeFixture(t)
	ctx := context.Background()

	t.Run("editor fallback order", func(t *testing.T) {
		cases := []struct {
			name     string
			html     string
			strategy string
			kind     EditorKind
			id       string
		}{
			{
				name: "prosemirror first",
				html: `<textarea id="ta"></textarea>
					<div id="ph" contenteditable="true" data-placeholder="Ask" ` + bigEditor + `></div>
					<div id="pm" class="ProseMirror" contenteditable="true" ` + bigEditor + `></div>`,
				strategy: "prosemirror", kind: EditorProseMirror, id: "pm",
			},
			{
				name: "placeholder before fieldset",
				html: `<fieldset><div id="fs" contenteditable="true" ` + bigEditor + `></div></fieldset>
					<div id="ph" contenteditable="true" data-placeholder="Ask" ` + smallEditor + `></div>`,
				strategy: "placeholder", kind: EditorContentEditable, id: "ph",
			},
			{
				name:     "fieldset before size",
				html:     `<div id="big" contenteditable="true" ` + hugeEditor + `></div><fieldset><div id="fs" contenteditable="true" ` + smallEditor + `></div></fieldset>`,
				strategy: "fieldset", kind: EditorContentEditable, id: "fs",
			},
			{
				name: "first sized contenteditable in document order",
				html: `<div id="tiny" contenteditable="true" ` + smallEditor + `></div>
					<div id="first" contenteditable="true" ` + bigEditor + `></div>
					<div id="second" contenteditable="true" ` + hugeEditor + `></div>
					<textarea id="ta"></textarea>`,
				strategy: "sized", kind: EditorContentEditable, id: "first",
			},
			{
				name:     "textarea before undersized contenteditable",
				html:     `<div id="tiny" contenteditable="true" ` + smallEditor + `></div><textarea id="ta"></textarea>`,
				strategy: "textarea", kind: EditorTextarea, id: "ta",
			},
			{
				name:     "any contenteditable last",
				html:     `<div id="tiny" contenteditable="true" ` + smallEditor + `></div>`,
				strategy: "any", kind: EditorContentEditable, id: "tiny",
			},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				page, tab := f.load(t, tc.html)
				ed, err := page.FindEditor(ctx)
				require.NoError(t, err)
				require.NotNil(t, ed)
				assert.Equal(t, tc.strategy, ed.Strategy)
				assert.Equal(t, tc.kind, ed.Kind)
				assert.Equal(t, tc.id, evalString(t, tab, `document.querySelector('[`+editorMarker+`]').id`))
			})
		}
	})

	t.Run("no editor", func(t *testing.T) {
		page, _ := f.load(t, `<p>nothing to type into</p>`)
		ed, err := page.FindEditor(ctx)
		require.NoError(t, err)
		assert.Nil(t, ed)
	})

	t.Run("textarea insertion", func(t *testing.T) {
		page, _ := f.load(t, `<textarea id="ta"></textarea>`)
		_, err := page.FindEditor(ctx)
		require.NoError(t, err)
		ok, err := page.Focus(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		method, err := page.InsertText(ctx, "hello", false)
		require.NoError(t, err)
		assert.Equal(t, InsertValue, method)
		content, err := page.FinishInput(ctx)
		require.NoError(t, err)
		assert.Equal(t, "hello", content)
	})

	t.Run("submit by colour", func(t *testing.T) {
		page, tab := f.load(t, `<button id="label" aria-label="Send message">Send</button>
			<button id="orange" style="background-color: rgb(200, 100, 60)">Go</button>`)
		b, err := page.FindSubmit(ctx)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, SubmitColor, b.Method)
		assert.Equal(t, 2, b.Total)
		assert.True(t, b.Visible)
		assert.Equal(t, "orange", evalString(t, tab, `document.querySelector('[`+submitMarker+`]').id`))
	})

	t.Run("submit by label", func(t *testing.T) {
		page, tab := f.load(t, `<button id="cancel">Cancel</button>
			<button id="blue" style="background-color: rgb(30, 60, 200)">Blue</button>
			<button id="send" aria-label="Submit prompt">→</button>`)
		b, err := page.FindSubmit(ctx)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, SubmitLabel, b.Method)
		assert.Equal(t, "Submit prompt", b.Label)
		assert.Equal(t, "send", evalString(t, tab, `document.querySelector('[`+submitMarker+`]').id`))
	})

	t.Run("no submit button leaves enter", func(t *testing.T) {
		page, _ := f.load(t, `<button>Cancel</button>`)
		b, err := page.FindSubmit(ctx)
		require.NoError(t, err)
		assert.Nil(t, b)
	})

	t.Run("thinking toggle", func(t *testing.T) {
		const clicked = `String(document.body.dataset.clicked || '')`
		cases := []struct {
			name       string
			button     string
			candidates int
			disabled   bool
		}{
			{"pressed", `<button aria-pressed="true">Extended thinking</button>`, 1, true},
			{"checked", `<button role="switch" aria-checked="true" aria-label="Thinking mode">T</button>`, 1, true},
			{"already off", `<button aria-pressed="false">Extended thinking</button>`, 1, false},
			{"unrelated toggle", `<button aria-pressed="true">Bold</button>`, 0, false},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				page, tab := f.load(t, `<body>` + tc.button + `<script>
					document.querySelector('button').addEventListener('click', function () { document.body.dataset.clicked = 'yes'; });
					</script></body>`)
				res, err := page.DisableExtendedThinking(ctx)
				require.NoError(t, err)
				assert.Equal(t, tc.candidates, res.Candidates)
				assert.Equal(t, tc.disabled, res.Disabled)
				if tc.disabled {
					assert.Equal(t, "yes", evalString(t, tab, clicked))
				} else {
					assert.Empty(t, evalString(t, tab, clicked))
				}
			})
		}
	})

	t.Run("response state", func(t *testing.T) {
		page, _ := f.load(t, `<div class="message">a</div><div role="article">b</div><div class="chat-message">c</div>
			<div class="spinner"></div>`)
		st, err := page.ResponseState(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, st.Messages)
		assert.True(t, st.Loading)
	})
}
