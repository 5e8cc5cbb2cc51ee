// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.aimuz.me/eegview/display"
	"go.aimuz.me/eegview/prediction"
	"go.aimuz.me/eegview/stream"
	"go.aimuz.me/eegview/viewer"
)

const (
	appName        = "eegview"
	configFileName = "config.json"
)

// Duration is a time.Duration stored as a Go duration string ("1s", "250ms").
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

// Config represents the application configuration.
type Config struct {
	StreamURL      string   `json:"stream_url"`
	PredictionURL  string   `json:"prediction_url"`
	DataEvent      string   `json:"data_event"`
	DataKey        string   `json:"data_key"`
	WindowCapacity int      `json:"window_capacity"`
	ClampLimit     float64  `json:"clamp_limit"`
	ChannelSpacing float64  `json:"channel_spacing"`
	ChannelNames   []string `json:"channel_names"`
	PollInterval   Duration `json:"poll_interval"`
	ReconnectDelay Duration `json:"reconnect_delay"`
	LogLevel       string   `json:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		StreamURL:      stream.DefaultURL,
		PredictionURL:  prediction.DefaultURL,
		DataEvent:      stream.EventEEG,
		DataKey:        stream.DefaultDataKey,
		WindowCapacity: viewer.DefaultCapacity,
		ClampLimit:     display.DefaultLimit,
		ChannelSpacing: display.DefaultSpacing,
		ChannelNames:   append([]string(nil), display.DefaultNames...),
		PollInterval:   Duration(prediction.DefaultInterval),
		ReconnectDelay: Duration(stream.DefaultReconnectDelay),
		LogLevel:       "info",
	}
}

// Load loads configuration from the user config directory.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path. Fields missing from the file keep
// their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save persists the configuration to the user config directory.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}
	return c.SaveFile(path)
}

// SaveFile persists the configuration to path.
func (c *Config) SaveFile(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if err := validateURL(c.StreamURL, "http", "https", "ws", "wss"); err != nil {
		errs = append(errs, fmt.Errorf("stream_url: %w", err))
	}
	if err := validateURL(c.PredictionURL, "http", "https"); err != nil {
		errs = append(errs, fmt.Errorf("prediction_url: %w", err))
	}
	if c.DataEvent == "" {
		errs = append(errs, errors.New("data_event required"))
	}
	if c.DataKey == "" {
		errs = append(errs, errors.New("data_key required"))
	}
	if c.WindowCapacity < 1 {
		errs = append(errs, fmt.Errorf("window_capacity must be at least 1, got %d", c.WindowCapacity))
	}
	if c.ClampLimit <= 0 {
		errs = append(errs, fmt.Errorf("clamp_limit must be positive, got %v", c.ClampLimit))
	}
	if c.ChannelSpacing <= 0 {
		errs = append(errs, fmt.Errorf("channel_spacing must be positive, got %v", c.ChannelSpacing))
	}
	if _, err := display.New(c.Display()); err != nil {
		errs = append(errs, fmt.Errorf("display: %w", err))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", time.Duration(c.PollInterval)))
	}
	if c.ReconnectDelay <= 0 {
		errs = append(errs, fmt.Errorf("reconnect_delay must be positive, got %s", time.Duration(c.ReconnectDelay)))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Display returns the band layout.
func (c *Config) Display() display.Config {
	return display.Config{
		Limit:   c.ClampLimit,
		Spacing: c.ChannelSpacing,
		Names:   c.ChannelNames,
	}
}

// Session returns the viewer configuration.
func (c *Config) Session() viewer.Config {
	return viewer.Config{
		Stream: stream.Config{
			URL:            c.StreamURL,
			DataEvent:      c.DataEvent,
			DataKey:        c.DataKey,
			ReconnectDelay: time.Duration(c.ReconnectDelay),
		},
		Prediction: prediction.Config{
			URL:      c.PredictionURL,
			Interval: time.Duration(c.PollInterval),
		},
		Display:  c.Display(),
		Capacity: c.WindowCapacity,
	}
}

// Path returns the config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

func validateURL(raw string, schemes ...string) error {
	if raw == "" {
		return errors.New("url required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("missing host in %q", raw)
			}
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme %q", u.Scheme)
}

// Transform builds the display transform for the configured layout.
func (c *Config) Transform() (*display.Transform, error) {
	return display.New(c.Display())
}
