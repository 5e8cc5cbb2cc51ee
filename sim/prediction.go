package sim

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// PredictionStore holds the label served by the prediction endpoint.
type PredictionStore struct {
	mu    sync.Mutex
	value *int
}

// Set stores v. A nil v clears the label.
func (p *PredictionStore) Set(v *int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v == nil {
		p.value = nil
		return
	}
	n := *v
	p.value = &n
}

// Get returns the current label, nil when none.
func (p *PredictionStore) Get() *int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value == nil {
		return nil
	}
	n := *p.value
	return &n
}

// Randomize sets a random label in [0, 10) with probability chance once per
// interval until ctx is cancelled.
func (p *PredictionStore) Randomize(ctx context.Context, interval time.Duration, chance float64, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rng.Float64() < chance {
				v := rng.IntN(10)
				p.Set(&v)
				slog.Debug("simulated prediction", "value", v)
			}
		}
	}
}

type predictionBody struct {
	PredictedNumber *int `json:"predicted_number"`
}

// Handler serves GET /prediction and POST /update-prediction?value=N.
// An update without a value clears the label.
func (p *PredictionStore) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /prediction", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, predictionBody{PredictedNumber: p.Get()})
	})
	mux.HandleFunc("POST /update-prediction", func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("value")
		if raw == "" {
			p.Set(nil)
			writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "detail": "value must be a non-negative integer"})
			return
		}
		p.Set(&v)
		slog.Info("prediction updated", "value", v)
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	})
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write json response", "error", err)
	}
}
