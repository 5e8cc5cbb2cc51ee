// Package app wires a viewer session to its outputs.
package app

import "go.aimuz.me/eegview/internal/types"

// Event names for frontend communication.
const (
	EventFrame      = "eeg-frame"
	EventState      = "eeg-state"
	EventPrediction = "eeg-prediction"
)

// StateChange is emitted when the connection state changes.
type StateChange struct {
	State      types.ConnState `json:"state"`
	Reconnects uint64          `json:"reconnects"`
}

// PredictionChange is emitted when the displayed label changes.
type PredictionChange struct {
	Value int `json:"value"`
}

// Emitter receives named events.
type Emitter func(name string, data any)
