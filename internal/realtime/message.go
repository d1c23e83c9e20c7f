package realtime

import "time"

// Message types pushed to clients.
const (
	TypeStatus          = "status"
	TypeRunStarted      = "run.started"
	TypeRunFinished     = "run.finished"
	TypeSettingsChanged = "settings.changed"
	TypeAlarmChanged    = "alarm.changed"
	TypePong            = "pong"
	TypeReply           = "reply"
	TypeError           = "error"
)

// Message types accepted from clients.
const (
	TypePing    = "ping"
	TypeMessage = "message"
)

// Message is the websocket envelope.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with the current time.
func NewMessage(typ string, data any) *Message {
	return &Message{Type: typ, Data: data, Timestamp: time.Now()}
}
