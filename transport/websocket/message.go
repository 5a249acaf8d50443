package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/reversi-client/internal/session"
)

// actions understood on the socket.
const (
	actionView   = "session:view"
	actionMove   = "session:move"
	actionLeave  = "session:leave"
	actionUpdate = "session:update"
	actionError  = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type MovePayload struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type ResponsePayload struct {
	View  *session.View `json:"view,omitempty"`
	Error string        `json:"error,omitempty"`
}

func newMessage(action string, payload ResponsePayload) (Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{Action: action, Payload: body}, nil
}
