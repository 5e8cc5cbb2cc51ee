// Package prediction polls the classifier endpoint for the latest label.
package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultURL is the backend prediction endpoint.
	DefaultURL = "http://localhost:8000/prediction"
	// DefaultInterval is the time between polls.
	DefaultInterval = time.Second
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrPollStatus is wrapped when the endpoint answers with a non-2xx status.
	ErrPollStatus = errors.New("unexpected poll status")
	// ErrMalformedResponse is wrapped when the body cannot be used.
	ErrMalformedResponse = errors.New("malformed prediction response")
)

// Response is the endpoint's JSON body.
type Response struct {
	PredictedNumber *int `json:"predicted_number"`
}

// Config holds configuration for the Poller.
type Config struct {
	URL        string
	Interval   time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Poller periodically fetches the prediction and keeps the last non-null value.
// Once set, the prediction never goes back to absent.
type Poller struct {
	cfg     Config
	http    *http.Client
	value   atomic.Pointer[int]
	updates chan int

	mu      sync.Mutex
	gen     uint64 // Bumped by Stop; results fetched under an older gen are discarded
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller creates a Poller. It does not start polling.
func NewPoller(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Poller{
		cfg:     cfg,
		http:    client,
		updates: make(chan int, 1),
	}
}

// Start begins polling every Interval until Stop is called or ctx ends.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("already running")
	}
	if p.cfg.URL == "" {
		return fmt.Errorf("no prediction url set")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.running = true

	go p.loop(ctx, p.gen, p.done)

	slog.Info("prediction polling started", "url", p.cfg.URL, "interval", p.cfg.Interval)
	return nil
}

// Stop cancels polling and waits for the loop to exit. A fetch that is still
// in flight will not update the prediction. Stop is idempotent and safe to
// call on a poller that was never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.gen++
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	done := p.done
	p.mu.Unlock()

	<-done
	slog.Info("prediction polling stopped")
}

// IsRunning returns true if the poll loop is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Prediction returns the latest label, if any has arrived.
func (p *Poller) Prediction() (int, bool) {
	v := p.value.Load()
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Updates signals new labels. Only the most recent pending label is kept.
func (p *Poller) Updates() <-chan int {
	return p.updates
}

// Tick performs a single poll.
func (p *Poller) Tick(ctx context.Context) error {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()
	return p.tick(ctx, gen)
}

// Fetch requests the endpoint once without touching the stored prediction.
func (p *Poller) Fetch(ctx context.Context) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := p.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("request prediction: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return Response{}, fmt.Errorf("%w: %s", ErrPollStatus, res.Status)
	}

	var r Response
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if r.PredictedNumber != nil && *r.PredictedNumber < 0 {
		return Response{}, fmt.Errorf("%w: negative label %d", ErrMalformedResponse, *r.PredictedNumber)
	}
	return r, nil
}

func (p *Poller) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.tick(ctx, gen); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("prediction poll failed", "error", err)
			}
		}
	}
}

func (p *Poller) tick(ctx context.Context, gen uint64) error {
	r, err := p.Fetch(ctx)
	if err != nil {
		return err
	}
	if r.PredictedNumber == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gen != gen {
		return nil
	}

	v := *r.PredictedNumber
	if old := p.value.Load(); old != nil && *old == v {
		return nil
	}
	p.value.Store(&v)
	p.notify(v)
	return nil
}

// notify replaces any pending update with v. Callers hold p.mu.
func (p *Poller) notify(v int) {
	select {
	case p.updates <- v:
		return
	default:
	}
	select {
	case <-p.updates:
	default:
	}
	select {
	case p.updates <- v:
	default:
	}
}
