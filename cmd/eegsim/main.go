// Command eegsim serves a synthetic EEG stream and a prediction endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"go.aimuz.me/eegview/sim"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("eegsim", flag.ContinueOnError)
	streamAddr := fs.String("stream-addr", ":8765", "listen address for /eeg-stream and /eeg-ws")
	predictionAddr := fs.String("prediction-addr", ":8000", "listen address for /prediction")
	interval := fs.Duration("interval", sim.DefaultInterval, "time between samples")
	seed := fs.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	blinkChance := fs.Float64("blink-chance", 0.01, "probability per sample of a blink")
	randomPredictions := fs.Bool("random-predictions", false, "change the prediction at random")
	if err := fs.Parse(args); err != nil {
		return err
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo})))

	hub := sim.NewHub(sim.NewGenerator(sim.GeneratorConfig{Seed: *seed, BlinkChance: *blinkChance}), *interval)
	go hub.Run(ctx)

	var store sim.PredictionStore
	if *randomPredictions {
		go store.Randomize(ctx, *interval, 0.1, *seed)
	}

	streamMux := http.NewServeMux()
	streamMux.Handle("GET /eeg-stream", sim.StreamHandler(hub))
	streamMux.Handle("GET /eeg-ws", sim.WSHandler(hub))

	// Request contexts end with ctx so open streams close on shutdown.
	base := func(net.Listener) context.Context { return ctx }
	servers := []*http.Server{
		{Addr: *streamAddr, Handler: streamMux, BaseContext: base},
		{Addr: *predictionAddr, Handler: store.Handler(), BaseContext: base},
	}

	errc := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			slog.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown", "addr", srv.Addr, "error", err)
		}
	}
	return runErr
}
