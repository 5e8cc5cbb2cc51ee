package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"go.aimuz.me/eegview/config"
	"go.aimuz.me/eegview/internal/app"
	"go.aimuz.me/eegview/internal/types"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("eegview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default: user config dir)")
	streamURL := fs.String("stream", "", "EEG stream URL (http(s) for SSE, ws(s) for websocket)")
	predictionURL := fs.String("prediction", "", "prediction endpoint URL")
	dataEvent := fs.String("data-event", "", "name of the stream event carrying samples")
	capacity := fs.Int("capacity", 0, "window capacity in samples")
	logLevel := fs.String("log-level", "", "log level: debug|info|warn|error")
	snapshot := fs.String("snapshot", "", "write a PNG of the view to this path")
	snapshotEvery := fs.Duration("snapshot-every", time.Second, "snapshot interval")
	saveConfig := fs.Bool("save-config", false, "write the effective config and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *streamURL != "" {
		cfg.StreamURL = *streamURL
	}
	if *predictionURL != "" {
		cfg.PredictionURL = *predictionURL
	}
	if *dataEvent != "" {
		cfg.DataEvent = *dataEvent
	}
	if *capacity != 0 {
		cfg.WindowCapacity = *capacity
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, _ := cfg.Level()
	slog.SetDefault(slog.New(newLogHandler(stderr, level)))
	slog.Info("starting app", "version", version, "commit", commit, "date", date)

	if *saveConfig {
		return save(cfg, *configPath)
	}

	svc := app.New(version)
	svc.Init(cfg, logEmitter)
	if err := svc.StartViewer(ctx); err != nil {
		return err
	}
	defer svc.Shutdown()

	if *snapshot != "" {
		go svc.WriteSnapshots(ctx, *snapshot, *snapshotEvery)
	}

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func save(cfg *config.Config, path string) error {
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return err
		}
		path = p
	}
	if err := cfg.SaveFile(path); err != nil {
		return err
	}
	slog.Info("config saved", "path", path)
	return nil
}

// newLogHandler uses colored text on a terminal and JSON otherwise.
func newLogHandler(w io.Writer, level slog.Level) slog.Handler {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

func logEmitter(name string, data any) {
	switch v := data.(type) {
	case app.StateChange:
		slog.Info("connection state", "state", v.State, "reconnects", v.Reconnects)
	case app.PredictionChange:
		slog.Info("prediction", "value", v.Value)
	case types.Frame:
		slog.Debug("frame", "seq", v.Seq, "received", v.Stats.Received, "dropped", v.Stats.Dropped)
	default:
		slog.Debug("event", "name", name)
	}
}
