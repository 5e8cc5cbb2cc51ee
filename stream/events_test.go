package stream

import (
	"errors"
	"testing"

	"go.aimuz.me/eegview/internal/types"
)

func TestParseSample(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		wantErr   bool
		checkFunc func(t *testing.T, e SampleEvent)
	}{
		{
			name: "Valid",
			json: `{"eeg": [1.5, -2, 300, 0]}`,
			checkFunc: func(t *testing.T, e SampleEvent) {
				want := types.Sample{1.5, -2, 300, 0}
				if e.Sample != want {
					t.Errorf("Sample = %v, want %v", e.Sample, want)
				}
			},
		},
		{
			name: "WithMetadata",
			json: `{"eeg": [1, 2, 3, 4], "timestamp": 1625097600.5, "blink": 1}`,
			checkFunc: func(t *testing.T, e SampleEvent) {
				if e.Timestamp != 1625097600.5 {
					t.Errorf("Timestamp = %v, want 1625097600.5", e.Timestamp)
				}
				if !e.Blink {
					t.Error("Blink = false, want true")
				}
			},
		},
		{
			name: "BoolBlinkAndBadTimestamp",
			json: `{"eeg": [1, 2, 3, 4], "timestamp": "soon", "blink": true}`,
			checkFunc: func(t *testing.T, e SampleEvent) {
				if e.Timestamp != 0 {
					t.Errorf("Timestamp = %v, want 0", e.Timestamp)
				}
				if !e.Blink {
					t.Error("Blink = false, want true")
				}
			},
		},
		{
			name: "OutOfRangeValuesKept",
			json: `{"eeg": [1000000, -1000000, 0, 0]}`,
			checkFunc: func(t *testing.T, e SampleEvent) {
				if e.Sample[0] != 1e6 || e.Sample[1] != -1e6 {
					t.Errorf("Sample = %v, want raw values", e.Sample)
				}
			},
		},
		{name: "ThreeChannels", json: `{"eeg": [1, 2, 3]}`, wantErr: true},
		{name: "FiveChannels", json: `{"eeg": [1, 2, 3, 4, 5]}`, wantErr: true},
		{name: "MissingKey", json: `{"data": [1, 2, 3, 4]}`, wantErr: true},
		{name: "StringEntry", json: `{"eeg": [1, "2", 3, 4]}`, wantErr: true},
		{name: "NullEntry", json: `{"eeg": [1, null, 3, 4]}`, wantErr: true},
		{name: "NullArray", json: `{"eeg": null}`, wantErr: true},
		{name: "NotAnArray", json: `{"eeg": 5}`, wantErr: true},
		{name: "ArrayPayload", json: `[1, 2, 3, 4]`, wantErr: true},
		{name: "NullPayload", json: `null`, wantErr: true},
		{name: "NotJSON", json: `Connected to EEG stream`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseSample([]byte(tt.json), DefaultDataKey)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSample() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedSample) {
				t.Errorf("error %v does not wrap ErrMalformedSample", err)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, e)
			}
		})
	}
}

func TestParseSample_CustomKey(t *testing.T) {
	e, err := ParseSample([]byte(`{"channels": [4, 3, 2, 1]}`), "channels")
	if err != nil {
		t.Fatalf("ParseSample() error = %v", err)
	}
	if e.Sample != (types.Sample{4, 3, 2, 1}) {
		t.Errorf("Sample = %v, want [4 3 2 1]", e.Sample)
	}
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"Connected", Message{Event: "connected", Data: []byte("Connected to EEG stream")}, EventConnected},
		{"Sample", Message{Event: "eeg", Data: []byte(`{"eeg":[1,2,3,4]}`)}, EventEEG},
		{"Malformed", Message{Event: "eeg", Data: []byte(`{"eeg":[1,2,3]}`)}, "parse_error"},
		{"Unknown", Message{Event: "battery", Data: []byte(`{}`)}, "battery"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ParseEvent(tt.msg, EventEEG, DefaultDataKey)
			if e.eventType() != tt.want {
				t.Errorf("eventType() = %q, want %q", e.eventType(), tt.want)
			}
		})
	}
}

func TestParseEvent_ConnectedMessage(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{"Connected to EEG stream", "Connected to EEG stream"},
		{`"hello"`, "hello"},
	}
	for _, tt := range tests {
		e, ok := ParseEvent(Message{Event: EventConnected, Data: []byte(tt.data)}, EventEEG, DefaultDataKey).(ConnectedEvent)
		if !ok {
			t.Fatalf("got %T, want ConnectedEvent", e)
		}
		if e.Message != tt.want {
			t.Errorf("Message = %q, want %q", e.Message, tt.want)
		}
	}
}
