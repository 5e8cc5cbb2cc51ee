// Package sim provides a synthetic EEG source and prediction endpoint for
// development without a headset.
package sim

import (
	"math"
	"math/rand/v2"
	"time"

	"go.aimuz.me/eegview/internal/types"
)

// DefaultBlinkThreshold is the channel 0 level, in microvolts, below which a
// sample counts as a blink.
const DefaultBlinkThreshold = -200.0

var (
	amplitudes = [types.ChannelCount]float64{50, 40, 30, 20}
	noise      = [types.ChannelCount]float64{20, 15, 10, 5}
)

// Reading is one event payload in the bridge wire format.
type Reading struct {
	EEG       types.Sample `json:"eeg"`
	Timestamp float64      `json:"timestamp"`
	Blink     int          `json:"blink"`
}

// BlinkDetector flags the first sample of each excursion below Threshold.
type BlinkDetector struct {
	Threshold float64
	active    bool
}

// Detect reports whether v starts a new blink.
func (d *BlinkDetector) Detect(v float64) bool {
	if v < d.Threshold {
		if d.active {
			return false
		}
		d.active = true
		return true
	}
	d.active = false
	return false
}

// GeneratorConfig holds configuration for a Generator.
type GeneratorConfig struct {
	Seed           uint64
	BlinkChance    float64 // Probability per sample of starting a blink spike
	BlinkSamples   int     // Length of a spike, default 3
	BlinkThreshold float64 // Default DefaultBlinkThreshold
}

// Generator produces sine plus noise readings, one phase-shifted wave per channel.
// It is not safe for concurrent use.
type Generator struct {
	cfg       GeneratorConfig
	rng       *rand.Rand
	detector  BlinkDetector
	spikeLeft int
}

// NewGenerator creates a Generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.BlinkSamples <= 0 {
		cfg.BlinkSamples = 3
	}
	if cfg.BlinkThreshold == 0 {
		cfg.BlinkThreshold = DefaultBlinkThreshold
	}
	return &Generator{
		cfg:      cfg,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		detector: BlinkDetector{Threshold: cfg.BlinkThreshold},
	}
}

// Next returns the reading for time now.
func (g *Generator) Next(now time.Time) Reading {
	secs := float64(now.UnixNano()) / float64(time.Second)

	var s types.Sample
	for i := range s {
		s[i] = math.Sin(secs+float64(i))*amplitudes[i] + g.rng.Float64()*noise[i]
	}

	if g.spikeLeft == 0 && g.cfg.BlinkChance > 0 && g.rng.Float64() < g.cfg.BlinkChance {
		g.spikeLeft = g.cfg.BlinkSamples
	}
	if g.spikeLeft > 0 {
		g.spikeLeft--
		s[0] = g.cfg.BlinkThreshold - 150 - g.rng.Float64()*100
	}

	r := Reading{EEG: s, Timestamp: secs}
	if g.detector.Detect(s[0]) {
		r.Blink = 1
	}
	return r
}
