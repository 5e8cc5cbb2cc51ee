package prediction

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// scriptServer answers each request with the next body in order and repeats
// the last one afterwards.
func scriptServer(t *testing.T, bodies ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	var mu sync.Mutex
	i := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mu.Lock()
		body := bodies[min(i, len(bodies)-1)]
		i++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestPoller_StickyPrediction(t *testing.T) {
	srv, _ := scriptServer(t,
		`{"predicted_number": null}`,
		`{"predicted_number": 3}`,
		`{"predicted_number": null}`,
		`{"predicted_number": 7}`,
	)
	p := NewPoller(Config{URL: srv.URL})

	type observed struct {
		value int
		ok    bool
	}
	want := []observed{{0, false}, {3, true}, {3, true}, {7, true}}

	for i, w := range want {
		if err := p.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d: Tick() error = %v", i, err)
		}
		v, ok := p.Prediction()
		if v != w.value || ok != w.ok {
			t.Errorf("tick %d: Prediction() = (%d, %v), want (%d, %v)", i, v, ok, w.value, w.ok)
		}
	}
}

func TestPoller_ErrorsKeepPrediction(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"predicted_number": 9}`, ErrPollStatus},
		{"not found", http.StatusNotFound, ``, ErrPollStatus},
		{"invalid json", http.StatusOK, `not json`, ErrMalformedResponse},
		{"fractional", http.StatusOK, `{"predicted_number": 2.5}`, ErrMalformedResponse},
		{"negative", http.StatusOK, `{"predicted_number": -1}`, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fail := atomic.Bool{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !fail.Load() {
					w.Write([]byte(`{"predicted_number": 4}`))
					return
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewPoller(Config{URL: srv.URL})
			if err := p.Tick(context.Background()); err != nil {
				t.Fatalf("Tick() error = %v", err)
			}

			fail.Store(true)
			err := p.Tick(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Tick() error = %v, want %v", err, tt.wantErr)
			}
			if v, ok := p.Prediction(); !ok || v != 4 {
				t.Errorf("Prediction() = (%d, %v), want (4, true)", v, ok)
			}
		})
	}
}

func TestPoller_StartStop(t *testing.T) {
	srv, hits := scriptServer(t, `{"predicted_number": 5}`)
	p := NewPoller(Config{URL: srv.URL, Interval: 10 * time.Millisecond})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start() error = nil, want error")
	}

	select {
	case v := <-p.Updates():
		if v != 5 {
			t.Errorf("update = %d, want 5", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}

	p.Stop()
	if p.IsRunning() {
		t.Error("IsRunning() = true after Stop()")
	}
	// Let a request cancelled mid-flight reach the server before counting.
	time.Sleep(20 * time.Millisecond)
	after := hits.Load()
	time.Sleep(50 * time.Millisecond)
	if got := hits.Load(); got != after {
		t.Errorf("requests after Stop() = %d, want 0", got-after)
	}

	p.Stop()
}

func TestPoller_StopBeforeStart(t *testing.T) {
	p := NewPoller(Config{URL: "http://127.0.0.1:1/prediction"})
	p.Stop()
	p.Stop()
	if _, ok := p.Prediction(); ok {
		t.Error("Prediction() ok = true, want false")
	}
}

func TestPoller_StartWithoutURL(t *testing.T) {
	p := NewPoller(Config{})
	if err := p.Start(context.Background()); err == nil {
		t.Error("Start() error = nil, want error")
	}
}

func TestPoller_InFlightFetchIgnoredAfterStop(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		<-release
		w.Write([]byte(`{"predicted_number": 8}`))
	}))
	defer srv.Close()
	defer close(release)

	p := NewPoller(Config{URL: srv.URL})

	errc := make(chan error, 1)
	go func() { errc <- p.Tick(context.Background()) }()

	<-arrived
	p.Stop()
	release <- struct{}{}

	if err := <-errc; err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if v, ok := p.Prediction(); ok {
		t.Errorf("Prediction() = %d after Stop(), want absent", v)
	}
}

func TestPoller_UpdatesKeepLatest(t *testing.T) {
	srv, _ := scriptServer(t, `{"predicted_number": 1}`, `{"predicted_number": 2}`, `{"predicted_number": 2}`)
	p := NewPoller(Config{URL: srv.URL})

	for i := 0; i < 3; i++ {
		if err := p.Tick(context.Background()); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}

	select {
	case v := <-p.Updates():
		if v != 2 {
			t.Errorf("update = %d, want 2", v)
		}
	default:
		t.Fatal("no pending update")
	}
	select {
	case v := <-p.Updates():
		t.Errorf("unexpected extra update %d", v)
	default:
	}
}
