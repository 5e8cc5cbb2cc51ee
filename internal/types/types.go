// Package types provides shared type definitions for the application.
package types

import (
	"fmt"
	"time"
)

// ChannelCount is the number of EEG channels in every sample.
const ChannelCount = 4

// Sample is one synchronized reading across all channels, in microvolts.
// It is a value type: copies never share storage.
type Sample [ChannelCount]float64

// ZeroSample is the padding vector used before the window fills up.
var ZeroSample Sample

// Window is an ordered window snapshot, oldest sample first.
type Window []Sample

// Clone returns a copy that does not share storage with w.
func (w Window) Clone() Window {
	if w == nil {
		return nil
	}
	out := make(Window, len(w))
	copy(out, w)
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Connection State
// ─────────────────────────────────────────────────────────────────────────────

// ConnState reflects the health of the stream connection.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ConnState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "disconnected":
		*s = Disconnected
	case "connecting":
		*s = Connecting
	case "connected":
		*s = Connected
	default:
		return fmt.Errorf("unknown connection state: %q", string(b))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Renderable Frame
// ─────────────────────────────────────────────────────────────────────────────

// Band is the display range reserved for one channel on the shared axis.
type Band struct {
	Name   string  `json:"name"`
	Center float64 `json:"center"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Stats counts stream activity since the session started.
type Stats struct {
	Received     uint64    `json:"received"`   // Samples applied to the window
	Dropped      uint64    `json:"dropped"`    // Malformed data events
	Reconnects   uint64    `json:"reconnects"` // Transport failures followed by a retry
	Blinks       uint64    `json:"blinks"`     // Samples flagged as blinks by the source
	LastSampleAt time.Time `json:"lastSampleAt"`
}

// Frame is everything a renderer needs to draw one update.
// It holds copies only; renderers may keep it as long as they like.
type Frame struct {
	Seq        uint64      `json:"seq"`
	Window     Window      `json:"window"`  // Raw samples, oldest first
	Display    [][]float64 `json:"display"` // Display series, indexed [channel][sample]
	Bands      []Band      `json:"bands"`
	AxisMin    float64     `json:"axisMin"`
	AxisMax    float64     `json:"axisMax"`
	Prediction *int        `json:"prediction"` // nil until the first non-null result
	State      ConnState   `json:"state"`
	Stats      Stats       `json:"stats"`
}
