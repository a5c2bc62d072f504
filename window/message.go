package window

import (
	"encoding/json"
	"errors"
	"fmt"

	"deskport/models"
)

const (
	// MethodNewPortForward asks a window to open a port-forward session tab.
	MethodNewPortForward = "new-port-forward"
	// MethodDestroy asks a window to clear all of its tabs.
	MethodDestroy = "destroy"
	// MethodRebuild asks a window to reload its content.
	MethodRebuild = "rebuild"
)

var (
	// ErrInvalidMethod indicates the message method is missing or unknown.
	ErrInvalidMethod = errors.New("window: invalid message method")
)

// Message is one cross-window control message: a method name plus a JSON
// argument payload.
type Message struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// NewPortForwardArgs is the argument payload of a new-port-forward message.
type NewPortForwardArgs struct {
	ID               string `json:"id"`
	IsRDP            bool   `json:"isRDP"`
	Password         string `json:"password"`
	IsSharedPassword bool   `json:"isSharedPassword"`
	ForceRelay       bool   `json:"forceRelay"`
	ConnToken        string `json:"connToken"`
}

// Session converts the wire arguments to session parameters.
func (a NewPortForwardArgs) Session() models.Session {
	return models.Session{
		ID:               a.ID,
		Password:         a.Password,
		IsSharedPassword: a.IsSharedPassword,
		IsRDP:            a.IsRDP,
		ForceRelay:       a.ForceRelay,
		ConnToken:        a.ConnToken,
	}
}

// NewPortForwardMessage builds a new-port-forward message from session parameters.
func NewPortForwardMessage(session models.Session) (Message, error) {
	if session.ID == "" {
		return Message{}, errors.New("window: session id is required")
	}
	args, err := json.Marshal(NewPortForwardArgs{
		ID:               session.ID,
		IsRDP:            session.IsRDP,
		Password:         session.Password,
		IsSharedPassword: session.IsSharedPassword,
		ForceRelay:       session.ForceRelay,
		ConnToken:        session.ConnToken,
	})
	if err != nil {
		return Message{}, fmt.Errorf("encode new-port-forward args: %w", err)
	}
	return Message{Method: MethodNewPortForward, Args: args}, nil
}

// DestroyMessage builds a destroy message.
func DestroyMessage() Message {
	return Message{Method: MethodDestroy}
}

// RebuildMessage builds a rebuild message.
func RebuildMessage() Message {
	return Message{Method: MethodRebuild}
}

// DecodeMessage parses a raw wire payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("decode window message: %w", err)
	}
	switch msg.Method {
	case MethodNewPortForward, MethodDestroy, MethodRebuild:
		return msg, nil
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidMethod, msg.Method)
	}
}
