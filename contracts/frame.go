package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Request is the frame written to the gateway for one command execution.
// Args is positional; the gateway echoes ID back in its response so the
// caller can be matched even when responses arrive out of order.
type Request struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Args    []any  `json:"args"`
}

// NewRequest creates a request frame with a generated correlation ID.
// A nil args slice is normalized to an empty one so the wire form is
// always a JSON array.
func NewRequest(command string, args []any) *Request {
	if args == nil {
		args = []any{}
	}
	return &Request{
		ID:      uuid.New().String(),
		Command: command,
		Args:    args,
	}
}

// FrameKind identifies the shape of an inbound frame.
type FrameKind int

const (
	// KindUnknown marks frames carrying neither an event type nor a
	// correlation ID. Such frames cannot be routed.
	KindUnknown FrameKind = iota
	// KindResponse marks a reply to a previously written Request.
	KindResponse
	// KindEvent marks a server-pushed notification.
	KindEvent
)

func (k FrameKind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Frame is one decoded inbound message. The gateway sends two shapes over
// the same connection: responses {id, result} and events {event, data}.
// Both decode into Frame; Kind tells them apart by field presence.
type Frame struct {
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Kind classifies the frame. A non-empty Event wins over a non-empty ID:
// events cannot be correlated, so a frame naming an event type is always
// treated as one.
func (f *Frame) Kind() FrameKind {
	switch {
	case f.Event != "":
		return KindEvent
	case f.ID != "":
		return KindResponse
	default:
		return KindUnknown
	}
}

// ParseFrame decodes one wire message. Unknown fields are tolerated so
// newer gateways can extend frames without breaking older clients.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return &f, nil
}

// NewResponse builds the response frame answering the request with the
// given correlation ID.
func NewResponse(id string, result any) (*Frame, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &Frame{ID: id, Result: raw}, nil
}

// NewEvent builds a server-push frame for the given event type.
func NewEvent(event string, data any) (*Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event data: %w", err)
	}
	return &Frame{Event: event, Data: raw}, nil
}
