package automation

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed scripts/*.js
var scriptFS embed.FS

const (
	editorMarker = "data-promptpulse-editor"
	submitMarker = "data-promptpulse-submit"
)

func mustScript(name string) string {
	b, err := scriptFS.ReadFile("scripts/" + name + ".js")
	if err != nil {
		panic(fmt.Sprintf("automation: missing embedded script %s: %v", name, err))
	}
	return strings.TrimSpace(string(b))
}

var (
	scriptFindEditor    = mustScript("find_editor")
	scriptActivate      = mustScript("activate")
	scriptFocus         = mustScript("focus")
	scriptInsert        = mustScript("insert")
	scriptFinishInput   = mustScript("finish_input")
	scriptThinking      = mustScript("thinking")
	scriptFindSubmit    = mustScript("find_submit")
	scriptClickMarked   = mustScript("click_marked")
	scriptResponseState = mustScript("response_state")
	scriptBodyPreview   = mustScript("body_preview")
)

// invoke renders a call of a function-expression script with JSON args.
func invoke(script string, args any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode script args: %w", err)
	}
	return "(" + script + ")(" + string(raw) + ")", nil
}
