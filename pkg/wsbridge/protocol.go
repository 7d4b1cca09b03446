package wsbridge

import (
	"encoding/json"
	"fmt"

	"github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/snapshot"
)

// MessageType names a bridge message.
type MessageType string

// Client to server.
const (
	TypeHello    MessageType = "hello"
	TypePopState MessageType = "popstate"
	TypeMount    MessageType = "mount"
	TypeDispatch MessageType = "dispatch"
	TypeReset    MessageType = "reset"
	TypeUnmount  MessageType = "unmount"
)

// Server to client.
const (
	TypePush    MessageType = "push"
	TypeReplace MessageType = "replace"
	TypeRender  MessageType = "render"
	TypeError   MessageType = "error"
)

// Message is one JSON text frame.
//
// State holds a raw history payload for hello, popstate, push and replace,
// and the record's fields for render.
type Message struct {
	Type    MessageType     `json:"type"`
	Key     string          `json:"key,omitempty"`
	State   json.RawMessage `json:"state,omitempty"`
	Initial snapshot.State  `json:"initial,omitempty"`
	Partial snapshot.State  `json:"partial,omitempty"`
	Version uint64          `json:"version,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// DecodeMessage parses and validates a client frame.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New("SH200").Wrap(err)
	}
	switch m.Type {
	case TypeHello, TypePopState, TypeMount:
	case TypeDispatch, TypeReset, TypeUnmount:
		if m.Key == "" {
			return nil, errors.New("SH200").WithDetail(fmt.Sprintf("%s without key", m.Type))
		}
	case "":
		return nil, errors.New("SH200").WithDetail("missing type")
	default:
		return nil, errors.New("SH200").WithDetail(fmt.Sprintf("unknown type %q", m.Type))
	}
	return &m, nil
}

// historyState returns the payload carried by a hello or popstate frame.
// A JSON null means the entry has no state.
func (m *Message) historyState() []byte {
	if len(m.State) == 0 || string(m.State) == "null" {
		return nil
	}
	return []byte(m.State)
}

func renderMessage(key string, version uint64, fields snapshot.State) (*Message, error) {
	state, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return &Message{Type: TypeRender, Key: key, Version: version, State: state}, nil
}

func errorMessage(err *errors.Error) *Message {
	return &Message{Type: TypeError, Code: err.Code, Message: err.Error()}
}
