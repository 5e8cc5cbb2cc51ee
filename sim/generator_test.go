package sim

import (
	"testing"
	"time"
)

func TestBlinkDetector(t *testing.T) {
	d := BlinkDetector{Threshold: DefaultBlinkThreshold}
	tests := []struct {
		v    float64
		want bool
	}{
		{10, false},
		{-250, true},
		{-300, false}, // Same excursion
		{-150, false},
		{-201, true},
		{-200, false},
	}
	for i, tt := range tests {
		if got := d.Detect(tt.v); got != tt.want {
			t.Errorf("step %d: Detect(%v) = %v, want %v", i, tt.v, got, tt.want)
		}
	}
}

func TestGenerator_Ranges(t *testing.T) {
	g := NewGenerator(GeneratorConfig{Seed: 1})
	now := time.Unix(1700000000, 0)
	limits := [4]float64{70, 55, 40, 25}

	for i := 0; i < 1000; i++ {
		r := g.Next(now.Add(time.Duration(i) * DefaultInterval))
		for ch, v := range r.EEG {
			if v < -limits[ch] || v > limits[ch] {
				t.Fatalf("sample %d channel %d = %v, outside ±%v", i, ch, v, limits[ch])
			}
		}
		if r.Blink != 0 {
			t.Fatalf("sample %d flagged a blink with BlinkChance 0", i)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := NewGenerator(GeneratorConfig{Seed: 42})
	b := NewGenerator(GeneratorConfig{Seed: 42})
	for i := 0; i < 10; i++ {
		ts := now.Add(time.Duration(i) * time.Millisecond)
		if ra, rb := a.Next(ts), b.Next(ts); ra != rb {
			t.Fatalf("reading %d differs: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestGenerator_Blinks(t *testing.T) {
	g := NewGenerator(GeneratorConfig{Seed: 7, BlinkChance: 1, BlinkSamples: 3})
	now := time.Unix(1700000000, 0)

	// Chance 1 keeps channel 0 below the threshold, so only the first sample
	// of the run is flagged.
	var blinks int
	for i := 0; i < 6; i++ {
		r := g.Next(now)
		if r.EEG[0] >= DefaultBlinkThreshold {
			t.Fatalf("sample %d channel 0 = %v, want below %v", i, r.EEG[0], DefaultBlinkThreshold)
		}
		blinks += r.Blink
	}
	if blinks != 1 {
		t.Errorf("blinks = %d, want 1", blinks)
	}
}
