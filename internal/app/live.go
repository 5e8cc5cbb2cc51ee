package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.aimuz.me/eegview/internal/types"
	"go.aimuz.me/eegview/viewer"
)

// LiveAdapter runs one viewer session at a time.
type LiveAdapter struct {
	mu      sync.RWMutex
	session *viewer.Session
	done    chan struct{}
}

// Start runs session in the background. Stops any existing session first.
func (la *LiveAdapter) Start(ctx context.Context, session *viewer.Session) error {
	if session == nil {
		return errors.New("nil session")
	}

	la.Stop()

	la.mu.Lock()
	defer la.mu.Unlock()

	done := make(chan struct{})
	la.session = session
	la.done = done

	go func() {
		defer close(done)
		if err := session.Run(ctx); err != nil {
			slog.Error("viewer session", "session", session.ID(), "error", err)
		}
	}()
	return nil
}

// Stop stops the current session and waits for it to finish.
func (la *LiveAdapter) Stop() {
	la.mu.Lock()
	session, done := la.session, la.done
	la.session, la.done = nil, nil
	la.mu.Unlock()

	if session == nil {
		return
	}
	session.Stop()
	<-done
}

// Frame returns the latest frame, safe for concurrent access.
func (la *LiveAdapter) Frame() (types.Frame, bool) {
	la.mu.RLock()
	defer la.mu.RUnlock()

	if la.session == nil {
		return types.Frame{}, false
	}
	return la.session.Frame(), true
}

// ForwardFrames forwards session frames to emit until the session ends.
// State and prediction changes are emitted as their own events after the frame
// that carries them. Should be called in a goroutine.
func (la *LiveAdapter) ForwardFrames(emit Emitter) {
	la.mu.RLock()
	session := la.session
	la.mu.RUnlock()

	if session == nil {
		return
	}

	first := session.Frame()
	lastState := first.State
	lastPrediction := first.Prediction

	for f := range session.Frames() {
		emit(EventFrame, f)

		if f.State != lastState {
			lastState = f.State
			emit(EventState, StateChange{State: f.State, Reconnects: f.Stats.Reconnects})
		}
		if f.Prediction != nil && (lastPrediction == nil || *lastPrediction != *f.Prediction) {
			lastPrediction = f.Prediction
			emit(EventPrediction, PredictionChange{Value: *f.Prediction})
		}
	}
}
