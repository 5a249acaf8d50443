package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
)

func (that *Server) handleView(ctx context.Context, msg *Message) (Message, error) {
	view, err := that.manager.View(ctx)
	if err != nil {
		return errorReply(msg.Action, err), fmt.Errorf("failed to read view: %w", err)
	}

	return newMessage(msg.Action, ResponsePayload{View: &view})
}

func (that *Server) handleMove(ctx context.Context, msg *Message) (Message, error) {
	var payload MovePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return errorMessage("InvalidRequest"), fmt.Errorf("failed to unmarshal move: %w", err)
	}

	if err := that.manager.Move(ctx, payload.Row, payload.Col); err != nil {
		return errorReply(msg.Action, err), err
	}

	// subscribers receive the redraw; the mover also gets the view as the reply
	return that.handleView(ctx, msg)
}

func (that *Server) handleLeave(_ context.Context, msg *Message) (Message, error) {
	that.manager.Leave()

	return Message{Action: msg.Action}, nil
}

func errorReply(action string, err error) Message {
	body, _ := json.Marshal(ResponsePayload{Error: apperror.Code(err)})

	return Message{Action: action, Payload: body}
}

func errorMessage(code string) Message {
	body, _ := json.Marshal(ResponsePayload{Error: code})

	return Message{Action: actionError, Payload: body}
}
