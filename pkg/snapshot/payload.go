package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/vango-dev/statehistory/internal/errors"
)

// Tag marks a history entry as written by statehistory.
const Tag = "stateHistory"

// Entry is one container's state at capture time. Entries are immutable
// once captured.
type Entry struct {
	Key   string `json:"key"`
	State State  `json:"state"`
}

// Stack is the ordered capture of every registered container.
type Stack []Entry

// Keys returns the entry keys in stack order.
func (s Stack) Keys() []string {
	keys := make([]string, len(s))
	for i, e := range s {
		keys[i] = e.Key
	}
	return keys
}

// Payload is the value stored in one navigation history entry.
type Payload struct {
	Tag   string `json:"tag"`
	Stack Stack  `json:"stack"`
}

// NewPayload wraps stack in a tagged payload.
func NewPayload(stack Stack) *Payload {
	if stack == nil {
		stack = Stack{}
	}
	return &Payload{Tag: Tag, Stack: stack}
}

// Encode serializes the payload for the navigation host.
func (p *Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Decode parses a stored history entry. Anything that is not a tagged
// payload with well-formed entries yields an SH004 error.
func Decode(data []byte) (*Payload, error) {
	if len(data) == 0 {
		return nil, errors.New("SH004").WithDetail("empty payload")
	}

	var raw struct {
		Tag   string            `json:"tag"`
		Stack []json.RawMessage `json:"stack"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New("SH004").Wrap(err)
	}
	if raw.Tag != Tag {
		return nil, errors.New("SH004").WithDetail(fmt.Sprintf("tag %q", raw.Tag))
	}

	p := &Payload{Tag: raw.Tag, Stack: make(Stack, 0, len(raw.Stack))}
	for i, msg := range raw.Stack {
		var e Entry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, errors.New("SH004").WithDetail(fmt.Sprintf("entry %d", i)).Wrap(err)
		}
		if e.Key == "" {
			return nil, errors.New("SH004").WithDetail(fmt.Sprintf("entry %d has no key", i))
		}
		if e.State == nil {
			e.State = State{}
		}
		p.Stack = append(p.Stack, e)
	}
	return p, nil
}

// IsTagged reports whether data looks like a statehistory payload without
// fully decoding the stack.
func IsTagged(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	var probe struct {
		Tag string `json:"tag"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Tag == Tag
}
