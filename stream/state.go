package stream

import (
	"time"

	"go.aimuz.me/eegview/internal/types"
)

// StateTracker follows connection health from client events.
// It has no terminal state and is not safe for concurrent use.
type StateTracker struct {
	state       types.ConnState
	since       time.Time
	transitions int
	lastErr     error
	now         func() time.Time
}

// NewStateTracker returns a tracker in the Disconnected state.
func NewStateTracker() *StateTracker {
	return &StateTracker{state: types.Disconnected, since: time.Now(), now: time.Now}
}

// Apply updates the state from a client event and reports whether it changed.
// Events that carry no lifecycle information are ignored.
func (t *StateTracker) Apply(ev Event) bool {
	switch e := ev.(type) {
	case DialEvent:
		return t.OnDial()
	case ConnectedEvent:
		return t.OnConnected()
	case TransportErrorEvent:
		return t.OnTransportError(e.Err)
	}
	return false
}

// OnDial moves Disconnected to Connecting.
func (t *StateTracker) OnDial() bool {
	if t.state != types.Disconnected {
		return false
	}
	return t.set(types.Connecting)
}

// OnConnected records the source's connection announcement.
func (t *StateTracker) OnConnected() bool {
	t.lastErr = nil
	return t.set(types.Connected)
}

// OnTransportError records a connection failure.
func (t *StateTracker) OnTransportError(err error) bool {
	t.lastErr = err
	return t.set(types.Disconnected)
}

// State returns the current state.
func (t *StateTracker) State() types.ConnState { return t.state }

// Since returns when the current state was entered.
func (t *StateTracker) Since() time.Time { return t.since }

// Transitions returns the number of state changes so far.
func (t *StateTracker) Transitions() int { return t.transitions }

// LastError returns the most recent transport error, cleared on connect.
func (t *StateTracker) LastError() error { return t.lastErr }

func (t *StateTracker) set(s types.ConnState) bool {
	if t.state == s {
		return false
	}
	t.state = s
	t.since = t.now()
	t.transitions++
	return true
}
