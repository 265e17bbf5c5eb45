package call

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// EventType names a call event pushed on the private user channel.
type EventType string

const (
	EventInitiated EventType = "call-initiated"
	EventAnswered  EventType = "call-answered"
	EventRejected  EventType = "call-rejected"
	EventEnded     EventType = "call-ended"
)

// Terminal reports whether the event finishes the call.
func (t EventType) Terminal() bool {
	return t == EventRejected || t == EventEnded
}

// Event is a validated call event: the type plus the full session payload.
type Event struct {
	Type    EventType `json:"type"`
	Session Session   `json:"session"`
}

// IsCallEvent reports whether name is one of the call events.
func IsCallEvent(name string) bool {
	switch EventType(normalizeEventName(name)) {
	case EventInitiated, EventAnswered, EventRejected, EventEnded:
		return true
	default:
		return false
	}
}

// ParseEvent validates a pushed event. data may be the session itself, the
// session wrapped as {"call": ...}, or either of those encoded as a JSON string.
func ParseEvent(name string, data []byte) (Event, error) {
	name = normalizeEventName(name)
	if !IsCallEvent(name) {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}

	data = bytes.TrimSpace(data)

	// Pusher delivers data as a JSON encoded string
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}

		data = []byte(inner)
	}

	var envelope struct {
		Call *Session `json:"call"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	session := envelope.Call
	if session == nil {
		session = new(Session)
		if err := json.Unmarshal(data, session); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
	}

	if session.ID <= 0 {
		return Event{}, fmt.Errorf("%w: missing call id", ErrInvalidEvent)
	}

	return Event{Type: EventType(name), Session: *session}, nil
}

// normalizeEventName strips the leading dot of broadcastAs names.
func normalizeEventName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), ".")
}
