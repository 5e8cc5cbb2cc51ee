// Package stream maintains the push connection to the EEG source.
//
// A Client dials the source, parses named events into Events and retries
// forever at a fixed delay when the connection fails. Events are delivered on
// an unbuffered channel, so once Disconnect returns nothing that the consumer
// has not already received will arrive.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultURL is the MuseLSL bridge SSE endpoint.
	DefaultURL = "http://localhost:8765/eeg-stream"
	// DefaultReconnectDelay is the pause between a failure and the next dial.
	DefaultReconnectDelay = 5 * time.Second
)

// Config holds configuration for the stream Client.
type Config struct {
	URL            string
	DataEvent      string        // Name of the data event, default "eeg"
	DataKey        string        // Payload key of the readings, default "eeg"
	ReconnectDelay time.Duration // Fixed retry delay, default 5s
	Transport      Transport     // Chosen from the URL scheme when nil
}

// Client handles the push connection to the EEG source.
type Client struct {
	cfg       Config
	transport Transport
	events    chan Event

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	conn    Conn // Live connection, nil between attempts
	done    chan struct{}
	exited  chan struct{}
}

// NewClient creates a new stream Client. It does not connect.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.DataEvent == "" {
		cfg.DataEvent = EventEEG
	}
	if cfg.DataKey == "" {
		cfg.DataKey = DefaultDataKey
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}

	transport := cfg.Transport
	if transport == nil {
		t, err := TransportFor(cfg.URL)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	return &Client{
		cfg:       cfg,
		transport: transport,
		events:    make(chan Event),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}, nil
}

// Connect starts the connection loop in the background.
// The loop runs until Disconnect is called or ctx is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("client disconnected")
	}
	if c.started {
		return errors.New("already connected")
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	go c.run(ctx)
	return nil
}

// Events returns the event channel. It is closed when the loop exits.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Disconnect closes the live connection, cancels any pending retry and waits
// for the loop to exit. It is idempotent and safe to call before Connect.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)

	if c.cancel != nil {
		c.cancel()
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	started := c.started
	c.mu.Unlock()

	if started {
		<-c.exited
	} else {
		close(c.events)
	}
	return err
}

func (c *Client) run(ctx context.Context) {
	defer close(c.exited)
	defer close(c.events)

	for attempt := 1; ; attempt++ {
		connID := uuid.NewString()
		if !c.emit(DialEvent{Attempt: attempt, ConnID: connID}) {
			return
		}

		err := c.serve(ctx, connID)
		if ctx.Err() != nil {
			return
		}

		slog.Warn("stream transport error", "conn", connID, "attempt", attempt, "error", err, "retry_in", c.cfg.ReconnectDelay)
		if !c.emit(TransportErrorEvent{Err: err, Attempt: attempt, ConnID: connID, RetryIn: c.cfg.ReconnectDelay}) {
			return
		}

		timer := time.NewTimer(c.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// serve runs one connection until it fails. The connection is always closed
// before serve returns.
func (c *Client) serve(ctx context.Context, connID string) error {
	conn, err := c.transport.Dial(ctx, c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if !c.setConn(conn) {
		conn.Close()
		return context.Canceled
	}
	defer c.clearConn(conn)

	slog.Debug("stream opened", "conn", connID, "url", c.cfg.URL)

	for {
		msg, err := conn.Next(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		ev := ParseEvent(msg, c.cfg.DataEvent, c.cfg.DataKey)
		switch e := ev.(type) {
		case ConnectedEvent:
			e.ConnID = connID
			slog.Info("stream connected", "conn", connID, "message", e.Message)
			ev = e
		case ParseErrorEvent:
			slog.Warn("drop malformed sample", "conn", connID, "error", e.Err)
		case UnknownEvent:
			slog.Debug("ignore stream event", "conn", connID, "type", e.Type)
			continue
		}

		if !c.emit(ev) {
			return context.Canceled
		}
	}
}

// emit delivers ev unless the client is shutting down.
func (c *Client) emit(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) setConn(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	return true
}

func (c *Client) clearConn(conn Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	// Disconnect may have closed it already; Close is idempotent for our conns.
	conn.Close()
}
