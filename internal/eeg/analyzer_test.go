package eeg

import (
	"math"
	"testing"
)

// makeSample builds one finite sample with the same value on all channels.
func makeSample(ts int64, channels int, v float64) Sample {
	ch := make([]float64, channels)
	for i := range ch {
		ch[i] = v
	}
	return Sample{Timestamp: ts, Channels: ch}
}

// feedSine ingests n samples of a sine at freqHz and returns the last
// emitted BandPower, if any.
func feedSine(a *Analyzer, sampleRate, freqHz float64, channels, n int) (BandPower, bool) {
	var (
		last BandPower
		got  bool
	)
	for i := 0; i < n; i++ {
		v := 10 * math.Sin(2*math.Pi*freqHz*float64(i)/sampleRate)
		if bp, ok := a.Ingest(makeSample(int64(i+1), channels, v)); ok {
			last = bp
			got = true
		}
	}
	return last, got
}

func TestIngestReturnsNoneWhileFilling(t *testing.T) {
	a := NewAnalyzer(200, 4, 256)
	for i := 0; i < 255; i++ {
		if _, ok := a.Ingest(makeSample(int64(i+1), 4, 1.0)); ok {
			t.Fatalf("got estimate at sample %d, window should still be filling", i+1)
		}
	}
	if _, ok := a.Ingest(makeSample(256, 4, 1.0)); !ok {
		t.Fatal("no estimate once window filled")
	}
}

func TestBandFractionsSumToOne(t *testing.T) {
	a := NewAnalyzer(200, 4, 256)
	bp, ok := feedSine(a, 200, 10, 4, 256)
	if !ok {
		t.Fatal("no estimate after full window")
	}
	if diff := math.Abs(bp.Total() - 1.0); diff > 1e-6 {
		t.Errorf("fractions sum to %v, want 1.0 +- 1e-6", bp.Total())
	}
}

func TestAlphaToneDominatesAlphaBand(t *testing.T) {
	a := NewAnalyzer(200, 4, 256)
	bp, ok := feedSine(a, 200, 10, 4, 256)
	if !ok {
		t.Fatal("no estimate after full window")
	}
	if bp.Alpha < 0.6 {
		t.Errorf("10 Hz tone: alpha fraction = %v, want >= 0.6 (got %+v)", bp.Alpha, bp)
	}
}

func TestBandSeparation(t *testing.T) {
	tests := []struct {
		name   string
		freqHz float64
		pick   func(BandPower) float64
	}{
		{"theta", 6, func(b BandPower) float64 { return b.Theta }},
		{"alpha", 10, func(b BandPower) float64 { return b.Alpha }},
		{"beta", 20, func(b BandPower) float64 { return b.Beta }},
		{"gamma", 45, func(b BandPower) float64 { return b.Gamma }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(200, 2, 256)
			bp, ok := feedSine(a, 200, tt.freqHz, 2, 256)
			if !ok {
				t.Fatal("no estimate after full window")
			}
			if got := tt.pick(bp); got < 0.5 {
				t.Errorf("%v Hz tone: %s fraction = %v, want >= 0.5 (%+v)", tt.freqHz, tt.name, got, bp)
			}
		})
	}
}

func TestNonFiniteSamplesRejected(t *testing.T) {
	a := NewAnalyzer(200, 2, 16)

	bad := []Sample{
		{Timestamp: 1, Channels: []float64{math.NaN(), 0}},
		{Timestamp: 2, Channels: []float64{0, math.Inf(1)}},
		{Timestamp: 3, Channels: []float64{math.Inf(-1), 0}},
	}
	for _, s := range bad {
		if _, ok := a.Ingest(s); ok {
			t.Errorf("non-finite sample %v produced an estimate", s.Channels)
		}
	}

	// Rejected samples must not advance the window: exactly 16 clean
	// samples are still needed.
	for i := 0; i < 15; i++ {
		if _, ok := a.Ingest(makeSample(int64(10+i), 2, 1.0)); ok {
			t.Fatalf("estimate after %d clean samples, want 16", i+1)
		}
	}
	if _, ok := a.Ingest(makeSample(100, 2, 1.0)); !ok {
		t.Fatal("no estimate after 16 clean samples")
	}
}

func TestWrongChannelCountRejected(t *testing.T) {
	a := NewAnalyzer(200, 4, 16)
	if _, ok := a.Ingest(Sample{Timestamp: 1, Channels: []float64{1, 2}}); ok {
		t.Fatal("sample with wrong channel count produced an estimate")
	}
}

func TestHopCadence(t *testing.T) {
	a := NewAnalyzer(200, 1, 256)
	if _, ok := feedSine(a, 200, 10, 1, 256); !ok {
		t.Fatal("no estimate after full window")
	}

	// Next estimate arrives exactly one hop (128 samples) later.
	emitted := 0
	for i := 0; i < 128; i++ {
		if _, ok := a.Ingest(makeSample(int64(1000+i), 1, 1.0)); ok {
			emitted++
			if i != 127 {
				t.Errorf("estimate emitted %d samples into the hop, want at sample 128", i+1)
			}
		}
	}
	if emitted != 1 {
		t.Errorf("emitted %d estimates in one hop, want 1", emitted)
	}
}

func TestResetClearsWindow(t *testing.T) {
	a := NewAnalyzer(200, 2, 16)
	if _, ok := feedSine(a, 200, 10, 2, 16); !ok {
		t.Fatal("no estimate after full window")
	}
	a.Reset()
	for i := 0; i < 15; i++ {
		if _, ok := a.Ingest(makeSample(int64(500+i), 2, 1.0)); ok {
			t.Fatal("estimate before refilled window after Reset")
		}
	}
}

func TestFlatWindowFallsBackToEvenSplit(t *testing.T) {
	a := NewAnalyzer(200, 1, 16)
	var bp BandPower
	var ok bool
	for i := 0; i < 16; i++ {
		bp, ok = a.Ingest(makeSample(int64(i+1), 1, 5.0)) // constant, zero after demeaning
	}
	if !ok {
		t.Fatal("no estimate after full window")
	}
	for _, f := range []float64{bp.Theta, bp.Alpha, bp.Beta, bp.Gamma} {
		if f != 0.25 {
			t.Fatalf("flat window fractions = %+v, want even 0.25 split", bp)
		}
	}
}
