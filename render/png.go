// Package render draws frames as static PNG charts.
//
// It is an adapter for tooling and snapshots. The core packages never import it.
package render

import (
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"go.aimuz.me/eegview/display"
	"go.aimuz.me/eegview/internal/types"
)

// Options controls the chart size and labelling.
type Options struct {
	Width     int                // Default 1024
	Height    int                // Default 512
	Title     string             // Prefix for the chart title, default "EEG"
	Transform *display.Transform // Tick labels; the default layout when nil
}

var channelColors = [types.ChannelCount]drawing.Color{
	drawing.ColorFromHex("8884d8"),
	drawing.ColorFromHex("82ca9d"),
	drawing.ColorFromHex("ffc658"),
	drawing.ColorFromHex("ff7300"),
}

// PNG renders f to w.
func PNG(w io.Writer, f types.Frame, opts Options) error {
	ch, err := Chart(f, opts)
	if err != nil {
		return err
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// Chart builds the go-chart description of f without rendering it.
func Chart(f types.Frame, opts Options) (chart.Chart, error) {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 512
	}
	if opts.Title == "" {
		opts.Title = "EEG"
	}
	t := opts.Transform
	if t == nil {
		var err error
		if t, err = display.New(display.DefaultConfig()); err != nil {
			return chart.Chart{}, fmt.Errorf("default transform: %w", err)
		}
	}
	if f.AxisMax <= f.AxisMin {
		f.AxisMin, f.AxisMax = t.AxisRange()
	}

	n := len(f.Window)
	xs := make([]float64, max(n, 2))
	for i := range xs {
		xs[i] = float64(i)
	}

	series := make([]chart.Series, 0, types.ChannelCount)
	for i := 0; i < types.ChannelCount; i++ {
		ys := channelSeries(f, t, i, len(xs))
		series = append(series, chart.ContinuousSeries{
			Name:    legendName(f, t, i),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: 1.5,
				StrokeColor: channelColors[i],
			},
		})
	}

	ch := chart.Chart{
		Title:      title(opts.Title, f),
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 30, Left: 16, Right: 12, Bottom: 28}},
		XAxis:      chart.XAxis{Range: &chart.ContinuousRange{Min: 0, Max: xs[len(xs)-1]}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: f.AxisMin, Max: f.AxisMax},
			Ticks: Ticks(t, f.AxisMin, f.AxisMax),
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch, nil
}

// Ticks returns one tick per clamp limit step across [lo, hi].
func Ticks(t *display.Transform, lo, hi float64) []chart.Tick {
	step := t.Limit()
	var ticks []chart.Tick
	for v := lo; v <= hi+step/2; v += step {
		ticks = append(ticks, chart.Tick{Value: v, Label: t.TickLabel(v)})
	}
	return ticks
}

// channelSeries returns the display series for channel i, padded to size.
// Short windows are drawn as a flat line at the last value or the band centre.
func channelSeries(f types.Frame, t *display.Transform, i, size int) []float64 {
	var src []float64
	if i < len(f.Display) {
		src = f.Display[i]
	}
	if len(src) == size {
		return src
	}

	fill := t.Offset(i)
	if len(src) > 0 {
		fill = src[len(src)-1]
	}
	ys := make([]float64, size)
	copy(ys, src)
	for j := len(src); j < size; j++ {
		ys[j] = fill
	}
	return ys
}

// legendName labels channel i with its latest raw value when there is one.
func legendName(f types.Frame, t *display.Transform, i int) string {
	if i < len(f.Display) && len(f.Display[i]) > 0 {
		series := f.Display[i]
		return t.TooltipLabel(i, series[len(series)-1])
	}
	if i < len(f.Bands) {
		return f.Bands[i].Name
	}
	return t.Name(i)
}

func title(prefix string, f types.Frame) string {
	if f.Prediction == nil {
		return fmt.Sprintf("%s (%s) · no prediction", prefix, f.State)
	}
	return fmt.Sprintf("%s (%s) · predicted %d", prefix, f.State, *f.Prediction)
}
