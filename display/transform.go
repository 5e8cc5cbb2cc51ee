// Package display maps raw channel values onto a shared vertical axis.
//
// Each channel is clamped to [-Limit, Limit] and shifted by a fixed offset so
// that every channel owns its own band. Channel order is significant: offsets
// are keyed by index, so the source must send channels in the configured order.
package display

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"go.aimuz.me/eegview/internal/types"
)

// DefaultNames are the Muse electrode positions in stream order.
var DefaultNames = []string{"TP9", "FP1", "FP2", "TP10"}

const (
	DefaultLimit   = 500.0
	DefaultSpacing = 1000.0
)

// Config describes the band layout.
type Config struct {
	Limit   float64  // Clamp limit L, in microvolts
	Spacing float64  // Distance between adjacent band centres
	Names   []string // Channel labels, one per channel
}

// DefaultConfig returns the layout used by the original chart.
func DefaultConfig() Config {
	return Config{
		Limit:   DefaultLimit,
		Spacing: DefaultSpacing,
		Names:   DefaultNames,
	}
}

// Transform converts between raw and display values.
// It is immutable and safe for concurrent use.
type Transform struct {
	limit   float64
	names   []string
	offsets [types.ChannelCount]float64
	printer *message.Printer
}

// New validates cfg and builds a Transform. Zero fields take their defaults.
func New(cfg Config) (*Transform, error) {
	if cfg.Limit == 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Spacing == 0 {
		cfg.Spacing = DefaultSpacing
	}
	if cfg.Limit < 0 || math.IsInf(cfg.Limit, 0) || math.IsNaN(cfg.Limit) {
		return nil, fmt.Errorf("clamp limit must be positive, got %v", cfg.Limit)
	}
	if cfg.Spacing < 2*cfg.Limit || math.IsNaN(cfg.Spacing) {
		return nil, fmt.Errorf("channel spacing %v is smaller than band width %v", cfg.Spacing, 2*cfg.Limit)
	}
	if len(cfg.Names) == 0 {
		cfg.Names = DefaultNames
	}
	if len(cfg.Names) != types.ChannelCount {
		return nil, fmt.Errorf("need %d channel names, got %d", types.ChannelCount, len(cfg.Names))
	}

	t := &Transform{
		limit:   cfg.Limit,
		names:   append([]string(nil), cfg.Names...),
		printer: message.NewPrinter(language.English),
	}
	// Centre the stack on zero: 4 channels at spacing 1000 give 1500, 500, -500, -1500.
	mid := float64(types.ChannelCount-1) / 2
	for i := range t.offsets {
		t.offsets[i] = cfg.Spacing * (mid - float64(i))
	}
	return t, nil
}

// Limit returns the clamp limit.
func (t *Transform) Limit() float64 { return t.limit }

// Clamp bounds v to [-Limit, Limit].
func (t *Transform) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-t.limit, math.Min(t.limit, v))
}

// Offset returns the vertical offset of channel i, 0 for an unknown channel.
func (t *Transform) Offset(i int) float64 {
	if i < 0 || i >= len(t.offsets) {
		return 0
	}
	return t.offsets[i]
}

// ToDisplay clamps v and moves it into channel i's band.
// An unknown channel is clamped but not shifted.
func (t *Transform) ToDisplay(v float64, i int) float64 {
	return t.Clamp(v) + t.Offset(i)
}

// ToRaw removes channel i's offset from a display value.
func (t *Transform) ToRaw(d float64, i int) float64 {
	return d - t.Offset(i)
}

// Name returns the label of channel i.
func (t *Transform) Name(i int) string {
	if i < 0 || i >= len(t.names) {
		return fmt.Sprintf("ch%d", i)
	}
	return t.names[i]
}

// Bands returns the display range of every channel, top band first.
func (t *Transform) Bands() []types.Band {
	bands := make([]types.Band, types.ChannelCount)
	for i, off := range t.offsets {
		bands[i] = types.Band{
			Name:   t.names[i],
			Center: off,
			Min:    off - t.limit,
			Max:    off + t.limit,
		}
	}
	return bands
}

// AxisRange returns the span covering every band.
func (t *Transform) AxisRange() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, off := range t.offsets {
		lo = math.Min(lo, off-t.limit)
		hi = math.Max(hi, off+t.limit)
	}
	return lo, hi
}

// Series converts a window into one display series per channel.
func (t *Transform) Series(w types.Window) [][]float64 {
	out := make([][]float64, types.ChannelCount)
	for ch := range out {
		series := make([]float64, len(w))
		for j, s := range w {
			series[j] = t.ToDisplay(s[ch], ch)
		}
		out[ch] = series
	}
	return out
}

// TickLabel returns the axis label for an axis value: the channel name at a
// band centre, "+L" or "-L" at band edges, and "" anywhere else.
func (t *Transform) TickLabel(v float64) string {
	for i, off := range t.offsets {
		if v == off {
			return t.names[i]
		}
	}
	limit := strconv.FormatFloat(t.limit, 'f', -1, 64)
	for _, off := range t.offsets {
		if v == off+t.limit {
			return "+" + limit
		}
		if v == off-t.limit {
			return "-" + limit
		}
	}
	return ""
}

// TooltipLabel formats the raw value behind display value d of channel i.
func (t *Transform) TooltipLabel(i int, d float64) string {
	return t.printer.Sprintf("%s: %.2f μV", t.Name(i), t.ToRaw(d, i))
}
