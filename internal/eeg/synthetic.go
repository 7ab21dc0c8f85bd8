package eeg

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"golang.org/x/time/rate"
)

// Per-mode target band-power distributions. The generator works backwards
// from these: rather than simulating an EEG trace literally, it synthesizes
// one sinusoid per band whose energy share matches the target fraction, so
// that the analyzer's measured fractions land near the distribution the
// mode calls for (calm concentrates alpha around 40% with beta+gamma
// suppressed, stressed inverts that, normal spreads power evenly).
var modeTargets = map[Mode]BandPower{
	ModeCalm:     {Theta: 0.30, Alpha: 0.40, Beta: 0.20, Gamma: 0.10},
	ModeStressed: {Theta: 0.15, Alpha: 0.15, Beta: 0.40, Gamma: 0.30},
	ModeNormal:   {Theta: 0.25, Alpha: 0.25, Beta: 0.25, Gamma: 0.25},
}

// Band center frequencies for the synthesized sinusoids, chosen well inside
// each band so Hann-window leakage stays in-band.
const (
	thetaCenterHz = 6.0
	alphaCenterHz = 10.0
	betaCenterHz  = 20.0
	gammaCenterHz = 40.0
)

// SyntheticSource generates bounded-amplitude oscillatory samples plus
// noise at a fixed nominal rate. It never fails: Start always succeeds and
// Next only returns an error when ctx is cancelled.
type SyntheticSource struct {
	rateHz  float64
	chans   int
	baseAmp float64 // microvolt scale of the strongest band
	noise   float64 // white-noise amplitude relative to baseAmp

	limiter *rate.Limiter
	clock   *Clock
	rng     *rand.Rand

	mu   sync.Mutex
	mode Mode
	n    int64 // sample index since Start, drives the oscillator phases
}

// NewSyntheticSource builds a generator producing `channels` channels at
// rateHz samples per second.
func NewSyntheticSource(rateHz float64, channels int, seed int64) *SyntheticSource {
	return &SyntheticSource{
		rateHz:  rateHz,
		chans:   channels,
		baseAmp: 20.0,
		noise:   0.05,
		limiter: rate.NewLimiter(rate.Limit(rateHz), 1),
		clock:   NewClock(),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (s *SyntheticSource) Start(mode Mode) error {
	s.mu.Lock()
	s.mode = mode
	s.n = 0
	s.mu.Unlock()
	return nil
}

func (s *SyntheticSource) Stop() {}

// SetMode switches the target distribution; it takes effect on the next
// generated sample.
func (s *SyntheticSource) SetMode(mode Mode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

func (s *SyntheticSource) Next(ctx context.Context) (Sample, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Sample{}, err
	}
	s.mu.Lock()
	mode := s.mode
	n := s.n
	s.n++
	s.mu.Unlock()

	target := modeTargets[mode]
	t := float64(n) / s.rateHz

	channels := make([]float64, s.chans)
	for ch := range channels {
		// Small per-channel phase offset so channels are correlated but
		// not identical, as electrodes on one scalp would be.
		phase := float64(ch) * 0.7
		v := s.bandTone(target.Theta, thetaCenterHz, t, phase)
		v += s.bandTone(target.Alpha, alphaCenterHz, t, phase)
		v += s.bandTone(target.Beta, betaCenterHz, t, phase)
		v += s.bandTone(target.Gamma, gammaCenterHz, t, phase)
		v += s.baseAmp * s.noise * s.rng.NormFloat64()
		channels[ch] = v
	}

	return Sample{Timestamp: s.clock.Now(), Channels: channels}, nil
}

// bandTone synthesizes one band's contribution. A sinusoid's power is
// A^2/2, so amplitude proportional to sqrt(fraction) makes the band's
// energy share match the target fraction.
func (s *SyntheticSource) bandTone(fraction, centerHz, t, phase float64) float64 {
	return s.baseAmp * math.Sqrt(fraction) * math.Sin(2*math.Pi*centerHz*t+phase)
}

func (s *SyntheticSource) SampleRate() float64 { return s.rateHz }
func (s *SyntheticSource) Channels() int       { return s.chans }
func (s *SyntheticSource) Synthetic() bool     { return true }
