// Package dispatch decodes runtime messages into typed requests and routes
// them through a fixed table of handlers.
package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Action names a message variant on the wire.
type Action string

const (
	ActionStartAutomation Action = "startAutomation"
	ActionRunImmediately  Action = "runImmediately"
	ActionCloseTab        Action = "closeTab"
	ActionCloseCurrentTab Action = "closeCurrentTab"
)

var (
	// ErrUnknownAction is returned for messages with no registered handler.
	ErrUnknownAction = errors.New("unknown action")
	// ErrMalformed is returned when a message body cannot be decoded.
	ErrMalformed = errors.New("malformed message")
)

// Request is one of the typed message variants.
type Request interface {
	Action() Action
}

// StartAutomation asks the automation in a tab to run prompt.
type StartAutomation struct {
	TabID  string `json:"tabId,omitempty"`
	Prompt string `json:"prompt"`
}

// RunImmediately opens a fresh target tab now. An empty Model means the
// stored model.
type RunImmediately struct {
	Prompt string `json:"prompt,omitempty"`
	Model  string `json:"model,omitempty"`
}

// CloseTab closes the sender's tab.
type CloseTab struct {
	TabID string `json:"tabId,omitempty"`
}

// CloseCurrentTab is the alias the page automation sends when it is done.
type CloseCurrentTab struct {
	TabID string `json:"tabId,omitempty"`
}

func (StartAutomation) Action() Action { return ActionStartAutomation }
func (RunImmediately) Action() Action  { return ActionRunImmediately }
func (CloseTab) Action() Action        { return ActionCloseTab }
func (CloseCurrentTab) Action() Action { return ActionCloseCurrentTab }

// Response is the acknowledgement sent back for every handled message.
type Response struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type envelope struct {
	Action Action `json:"action"`
}

// Decode parses a {"action": ...} message into its typed variant.
func Decode(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var req Request
	switch env.Action {
	case ActionStartAutomation:
		var v StartAutomation
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		req = v
	case ActionRunImmediately:
		var v RunImmediately
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		req = v
	case ActionCloseTab:
		var v CloseTab
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		req = v
	case ActionCloseCurrentTab:
		var v CloseCurrentTab
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		req = v
	case "":
		return nil, fmt.Errorf("%w: missing action", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
	return req, nil
}

// Encode renders a request with its action tag.
func Encode(req Request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["action"] = req.Action()
	return json.Marshal(fields)
}
