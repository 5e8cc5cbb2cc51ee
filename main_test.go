package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.aimuz.me/eegview/config"
)

func TestRun_SaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	var stderr bytes.Buffer

	args := []string{"-config", path, "-stream", "ws://muse.local:8765/eeg-ws", "-capacity", "250", "-data-event", "sample", "-save-config"}
	if err := run(context.Background(), args, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.StreamURL != "ws://muse.local:8765/eeg-ws" || cfg.WindowCapacity != 250 || cfg.DataEvent != "sample" {
		t.Errorf("saved config = %+v", cfg)
	}
	if !strings.Contains(stderr.String(), `"msg":"config saved"`) {
		t.Errorf("stderr = %q, want JSON log of the save", stderr.String())
	}
}

func TestRun_InvalidOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	var stderr bytes.Buffer

	err := run(context.Background(), []string{"-config", path, "-stream", "ftp://nope", "-save-config"}, &stderr)
	if err == nil || !strings.Contains(err.Error(), "stream_url") {
		t.Errorf("run() error = %v, want stream_url error", err)
	}
}

func TestRun_BadFlag(t *testing.T) {
	var stderr bytes.Buffer
	if err := run(context.Background(), []string{"-no-such-flag"}, &stderr); err == nil {
		t.Error("run() error = nil, want error")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stderr bytes.Buffer
	args := []string{"-config", path, "-stream", "http://127.0.0.1:1/eeg-stream", "-log-level", "error"}
	if err := run(ctx, args, &stderr); err != nil {
		t.Errorf("run() error = %v", err)
	}
}
