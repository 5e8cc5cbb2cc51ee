package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.aimuz.me/eegview/config"
	"go.aimuz.me/eegview/render"
	"go.aimuz.me/eegview/viewer"
)

// Service owns the live view and its outputs.
// This struct focuses on orchestration; the event loop lives in viewer.
type Service struct {
	cfg     *config.Config
	emit    Emitter
	opts    []viewer.Option
	live    LiveAdapter
	forward sync.WaitGroup

	version string
}

// New creates a new Service. Call Init before starting the viewer.
func New(version string) *Service {
	return &Service{version: version}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init sets the configuration and the event sink. A nil cfg loads the user's
// config file, falling back to defaults when it cannot be read.
func (s *Service) Init(cfg *config.Config, emit Emitter, opts ...viewer.Option) {
	if cfg == nil {
		var err error
		cfg, err = config.Load()
		if err != nil {
			slog.Error("load config", "error", err)
			cfg = config.Default()
		}
	}
	if emit == nil {
		emit = func(string, any) {}
	}
	s.cfg = cfg
	s.emit = emit
	s.opts = opts
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Shutdown cleans up resources.
func (s *Service) Shutdown() {
	s.StopViewer()
}

// ─────────────────────────────────────────────────────────────────────────────
// Live View
// ─────────────────────────────────────────────────────────────────────────────

// StartViewer starts a new session, replacing any running one.
func (s *Service) StartViewer(ctx context.Context) error {
	if s.cfg == nil {
		return errors.New("service not initialized")
	}

	session, err := viewer.New(s.cfg.Session(), s.opts...)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	// Previous forwarder exits once its session's frames channel closes.
	s.live.Stop()
	s.forward.Wait()

	if err := s.live.Start(ctx, session); err != nil {
		return err
	}
	slog.Info("viewer started", "session", session.ID(), "stream", s.cfg.StreamURL, "prediction", s.cfg.PredictionURL)

	s.forward.Go(func() {
		s.live.ForwardFrames(s.emit)
	})
	return nil
}

// StopViewer stops the running session and waits for its events to drain.
func (s *Service) StopViewer() {
	s.live.Stop()
	s.forward.Wait()
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshots
// ─────────────────────────────────────────────────────────────────────────────

// Snapshot renders the latest frame as a PNG.
func (s *Service) Snapshot(w io.Writer) error {
	f, ok := s.live.Frame()
	if !ok {
		return errors.New("viewer not running")
	}
	opts := render.Options{}
	if t, err := s.cfg.Transform(); err == nil {
		opts.Transform = t
	}
	return render.PNG(w, f, opts)
}

// SnapshotFile writes the latest frame to path, replacing it atomically.
func (s *Service) SnapshotFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.png")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.Snapshot(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// WriteSnapshots writes a snapshot to path every interval until ctx is done.
func (s *Service) WriteSnapshots(ctx context.Context, path string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SnapshotFile(path); err != nil {
				slog.Warn("write snapshot", "path", path, "error", err)
			}
		}
	}
}
