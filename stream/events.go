package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.aimuz.me/eegview/internal/types"
)

// Event names sent by the EEG source.
const (
	EventConnected = "connected"
	EventEEG       = "eeg"
)

// DefaultDataKey is the payload key holding the channel readings.
const DefaultDataKey = "eeg"

// ErrMalformedSample is wrapped by every sample parse failure.
var ErrMalformedSample = errors.New("malformed sample")

// Event is a discriminated union of everything the client reports.
// Check the concrete type via type switch.
type Event interface {
	eventType() string
}

// DialEvent is emitted before every connection attempt.
type DialEvent struct {
	Attempt int
	ConnID  string
}

func (DialEvent) eventType() string { return "dial" }

// ConnectedEvent is emitted when the source announces the connection.
type ConnectedEvent struct {
	ConnID  string
	Message string // Opaque diagnostic text from the source
}

func (ConnectedEvent) eventType() string { return EventConnected }

// SampleEvent carries one validated sample.
type SampleEvent struct {
	Sample    types.Sample
	Timestamp float64 // Source timestamp in seconds, 0 if absent
	Blink     bool    // Set when the source flagged a blink
}

func (SampleEvent) eventType() string { return EventEEG }

// ParseErrorEvent reports a dropped data event.
type ParseErrorEvent struct {
	Err error
	Raw []byte
}

func (ParseErrorEvent) eventType() string { return "parse_error" }

// TransportErrorEvent is emitted when a connection fails.
// The client retries after RetryIn.
type TransportErrorEvent struct {
	Err     error
	Attempt int
	ConnID  string
	RetryIn time.Duration
}

func (TransportErrorEvent) eventType() string { return "transport_error" }

// UnknownEvent holds named events we don't recognize.
type UnknownEvent struct {
	Type string
	Raw  []byte
}

func (e UnknownEvent) eventType() string { return e.Type }

// ParseEvent turns a named message from the transport into an Event.
// Data events that fail validation become a ParseErrorEvent.
func ParseEvent(msg Message, dataEvent, dataKey string) Event {
	switch msg.Event {
	case EventConnected:
		return ConnectedEvent{Message: connectedMessage(msg.Data)}
	case dataEvent:
		ev, err := ParseSample(msg.Data, dataKey)
		if err != nil {
			return ParseErrorEvent{Err: err, Raw: msg.Data}
		}
		return ev
	default:
		return UnknownEvent{Type: msg.Event, Raw: msg.Data}
	}
}

// ParseSample validates a data payload of the form {"<key>": [c0, c1, c2, c3]}.
// Optional "timestamp" (number) and "blink" (number or bool) fields are read
// when present and ignored when they have the wrong type.
func ParseSample(data []byte, key string) (SampleEvent, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return SampleEvent{}, fmt.Errorf("%w: %v", ErrMalformedSample, err)
	}

	raw, ok := payload[key]
	if !ok {
		return SampleEvent{}, fmt.Errorf("%w: missing key %q", ErrMalformedSample, key)
	}

	// Pointers let us reject null entries, which would otherwise decode as 0.
	var values []*float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return SampleEvent{}, fmt.Errorf("%w: %v", ErrMalformedSample, err)
	}
	if len(values) != types.ChannelCount {
		return SampleEvent{}, fmt.Errorf("%w: got %d channels, want %d", ErrMalformedSample, len(values), types.ChannelCount)
	}

	var ev SampleEvent
	for i, v := range values {
		if v == nil {
			return SampleEvent{}, fmt.Errorf("%w: channel %d is null", ErrMalformedSample, i)
		}
		ev.Sample[i] = *v
	}

	if ts, ok := payload["timestamp"]; ok {
		_ = json.Unmarshal(ts, &ev.Timestamp)
	}
	if b, ok := payload["blink"]; ok {
		var flag any
		if err := json.Unmarshal(b, &flag); err == nil {
			switch f := flag.(type) {
			case bool:
				ev.Blink = f
			case float64:
				ev.Blink = f != 0
			}
		}
	}

	return ev, nil
}

// connectedMessage decodes the announcement text. WebSocket frames carry it
// as a JSON string, SSE as plain text.
func connectedMessage(data []byte) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}
