package stream

import (
	"errors"
	"testing"

	"go.aimuz.me/eegview/internal/types"
)

func TestStateTracker(t *testing.T) {
	errDrop := errors.New("connection reset")

	sequence := []struct {
		name        string
		event       Event
		wantState   types.ConnState
		wantChanged bool
	}{
		{"dial", DialEvent{Attempt: 1}, types.Connecting, true},
		{"sample is not lifecycle", SampleEvent{}, types.Connecting, false},
		{"connected", ConnectedEvent{}, types.Connected, true},
		{"connected again", ConnectedEvent{}, types.Connected, false},
		{"dial while connected", DialEvent{Attempt: 2}, types.Connected, false},
		{"transport error", TransportErrorEvent{Err: errDrop}, types.Disconnected, true},
		{"redial", DialEvent{Attempt: 2}, types.Connecting, true},
		{"dial failure", TransportErrorEvent{Err: errDrop}, types.Disconnected, true},
		{"redial again", DialEvent{Attempt: 3}, types.Connecting, true},
		{"reconnected", ConnectedEvent{}, types.Connected, true},
	}

	tr := NewStateTracker()
	if tr.State() != types.Disconnected {
		t.Fatalf("initial State() = %v, want %v", tr.State(), types.Disconnected)
	}

	transitions := 0
	for _, step := range sequence {
		changed := tr.Apply(step.event)
		if changed != step.wantChanged {
			t.Errorf("%s: changed = %v, want %v", step.name, changed, step.wantChanged)
		}
		if tr.State() != step.wantState {
			t.Errorf("%s: State() = %v, want %v", step.name, tr.State(), step.wantState)
		}
		if changed {
			transitions++
		}
	}

	if tr.Transitions() != transitions {
		t.Errorf("Transitions() = %d, want %d", tr.Transitions(), transitions)
	}
	if tr.LastError() != nil {
		t.Errorf("LastError() = %v, want nil after reconnect", tr.LastError())
	}
}

func TestStateTracker_ErrorFromAnyState(t *testing.T) {
	for _, start := range []func(*StateTracker){
		func(*StateTracker) {},
		func(tr *StateTracker) { tr.OnDial() },
		func(tr *StateTracker) { tr.OnConnected() },
	} {
		tr := NewStateTracker()
		start(tr)
		tr.OnTransportError(errors.New("boom"))
		if tr.State() != types.Disconnected {
			t.Errorf("State() = %v, want %v", tr.State(), types.Disconnected)
		}
		if tr.LastError() == nil {
			t.Error("LastError() = nil, want error")
		}
	}
}

func TestConnStateText(t *testing.T) {
	for _, s := range []types.ConnState{types.Disconnected, types.Connecting, types.Connected} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		var got types.ConnState
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", b, err)
		}
		if got != s {
			t.Errorf("round trip = %v, want %v", got, s)
		}
	}
}
