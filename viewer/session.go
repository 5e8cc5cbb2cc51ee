// Package viewer runs the event loop behind one live EEG view.
//
// A Session owns the sample window, the connection state and the stream
// statistics. Stream events and prediction updates arrive on channels and are
// applied one at a time by the loop goroutine, so none of that state needs a
// lock. Renderers only ever see copies, as types.Frame values.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/eegview/display"
	"go.aimuz.me/eegview/internal/types"
	"go.aimuz.me/eegview/prediction"
	"go.aimuz.me/eegview/stream"
	"go.aimuz.me/eegview/window"
)

// DefaultCapacity is the number of samples kept on screen.
const DefaultCapacity = 500

// StreamSource delivers stream events. *stream.Client implements it.
type StreamSource interface {
	Connect(ctx context.Context) error
	Events() <-chan stream.Event
	Disconnect() error
}

// PredictionSource supplies classifier labels. *prediction.Poller implements it.
type PredictionSource interface {
	Start(ctx context.Context) error
	Stop()
	Prediction() (int, bool)
	Updates() <-chan int
}

// Config holds configuration for a Session.
type Config struct {
	Stream     stream.Config
	Prediction prediction.Config
	Display    display.Config
	Capacity   int
	FrameQueue int // Size of the Frames channel buffer, default 16
}

// Option customizes a Session.
type Option func(*Session)

// WithStream replaces the stream client built from Config.Stream.
func WithStream(src StreamSource) Option {
	return func(s *Session) { s.stream = src }
}

// WithPredictions replaces the poller built from Config.Prediction.
func WithPredictions(src PredictionSource) Option {
	return func(s *Session) { s.predictions = src }
}

// Session is a single-use live view: create, Run, then Stop.
type Session struct {
	id          string
	stream      StreamSource
	predictions PredictionSource
	transform   *display.Transform

	// Loop-owned state
	buffer      *window.Buffer
	tracker     *stream.StateTracker
	stats       types.Stats
	pollStarted bool
	seq         uint64
	loopCtx     context.Context

	// Published state
	latest   atomic.Pointer[types.Frame]
	frames   chan types.Frame
	stopping atomic.Bool

	mu       sync.Mutex
	running  bool
	finished bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a Session. Nothing connects until Run.
func New(cfg Config, opts ...Option) (*Session, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.FrameQueue <= 0 {
		cfg.FrameQueue = 16
	}

	transform, err := display.New(cfg.Display)
	if err != nil {
		return nil, fmt.Errorf("create display transform: %w", err)
	}

	s := &Session{
		id:        uuid.NewString(),
		transform: transform,
		buffer:    window.New(cfg.Capacity),
		tracker:   stream.NewStateTracker(),
		frames:    make(chan types.Frame, cfg.FrameQueue),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.stream == nil {
		client, err := stream.NewClient(cfg.Stream)
		if err != nil {
			return nil, fmt.Errorf("create stream client: %w", err)
		}
		s.stream = client
	}
	if s.predictions == nil {
		s.predictions = prediction.NewPoller(cfg.Prediction)
	}

	s.latest.Store(ptr(s.buildFrame()))
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Transform returns the display transform used for frames.
func (s *Session) Transform() *display.Transform {
	return s.transform
}

// Frames returns a channel of frames, one per state change. When the
// renderer falls behind, frames are skipped; Frame always has the latest.
// The channel is closed when Run returns.
func (s *Session) Frames() <-chan types.Frame {
	return s.frames
}

// Frame returns the most recent frame.
func (s *Session) Frame() types.Frame {
	return *s.latest.Load()
}

// Run connects and processes events until ctx is cancelled or Stop is called.
// It tears down the stream and the poller before returning.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return errors.New("session finished")
	}
	if s.running {
		s.mu.Unlock()
		return errors.New("already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	defer close(done)
	defer close(s.frames)
	defer cancel()
	s.loopCtx = ctx

	slog.Info("viewer session started", "session", s.id, "capacity", s.buffer.Capacity())

	if err := s.stream.Connect(ctx); err != nil {
		s.teardown()
		return fmt.Errorf("connect stream: %w", err)
	}

	events := s.stream.Events()
	updates := s.predictions.Updates()
	s.publish()

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			return nil

		case ev, ok := <-events:
			if !ok {
				s.teardown()
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("stream closed")
			}
			s.handle(ev)

		case <-updates:
			s.onPrediction()
		}
	}
}

// Stop ends a running session and waits for teardown. After Stop returns no
// event changes the window. It is idempotent and safe before Run.
func (s *Session) Stop() {
	s.stopping.Store(true)

	s.mu.Lock()
	if !s.running {
		s.finished = true
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
}

func (s *Session) teardown() {
	s.stopping.Store(true)

	if err := s.stream.Disconnect(); err != nil {
		slog.Debug("disconnect stream", "session", s.id, "error", err)
	}
	s.predictions.Stop()

	s.mu.Lock()
	s.running = false
	s.finished = true
	s.mu.Unlock()

	slog.Info("viewer session stopped",
		"session", s.id,
		"received", s.stats.Received,
		"dropped", s.stats.Dropped,
		"reconnects", s.stats.Reconnects,
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// Transitions (loop goroutine only)
// ─────────────────────────────────────────────────────────────────────────────

func (s *Session) handle(ev stream.Event) {
	if s.stopping.Load() {
		return
	}

	switch e := ev.(type) {
	case stream.DialEvent:
		s.onDial(e)
	case stream.ConnectedEvent:
		s.onConnected(e)
	case stream.SampleEvent:
		s.onData(e)
	case stream.ParseErrorEvent:
		s.onParseError(e)
	case stream.TransportErrorEvent:
		s.onTransportError(e)
	}
}

func (s *Session) onDial(e stream.DialEvent) {
	slog.Debug("stream dialing", "session", s.id, "conn", e.ConnID, "attempt", e.Attempt)
	if s.tracker.OnDial() {
		s.publish()
	}
}

func (s *Session) onConnected(e stream.ConnectedEvent) {
	if s.tracker.OnConnected() {
		s.publish()
	}
}

func (s *Session) onData(e stream.SampleEvent) {
	s.buffer.Append(e.Sample)
	s.stats.Received++
	s.stats.LastSampleAt = time.Now()
	if e.Blink {
		s.stats.Blinks++
	}

	if !s.pollStarted && s.buffer.HasData() {
		s.pollStarted = true
		if err := s.predictions.Start(s.loopCtx); err != nil {
			slog.Warn("start prediction polling", "session", s.id, "error", err)
		}
	}

	s.publish()
}

func (s *Session) onParseError(e stream.ParseErrorEvent) {
	s.stats.Dropped++
	s.publish()
}

func (s *Session) onTransportError(e stream.TransportErrorEvent) {
	s.tracker.OnTransportError(e.Err)
	s.stats.Reconnects++
	s.publish()
}

func (s *Session) onPrediction() {
	if s.stopping.Load() {
		return
	}
	s.publish()
}

// ─────────────────────────────────────────────────────────────────────────────
// Frames
// ─────────────────────────────────────────────────────────────────────────────

func (s *Session) publish() {
	s.seq++
	f := s.buildFrame()
	s.latest.Store(&f)

	select {
	case s.frames <- f:
	default:
		// Renderer is behind, skip
	}
}

func (s *Session) buildFrame() types.Frame {
	w := s.buffer.Snapshot()
	lo, hi := s.transform.AxisRange()

	f := types.Frame{
		Seq:     s.seq,
		Window:  w,
		Display: s.transform.Series(w),
		Bands:   s.transform.Bands(),
		AxisMin: lo,
		AxisMax: hi,
		State:   s.tracker.State(),
		Stats:   s.stats,
	}
	if v, ok := s.predictions.Prediction(); ok {
		f.Prediction = &v
	}
	return f
}

func ptr[T any](v T) *T { return &v }
