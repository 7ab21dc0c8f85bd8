package eeg

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/stat"
)

// Band frequency edges in Hz. Power below theta and above gamma is
// discarded before normalization, so the four fractions always sum to 1.
const (
	thetaLoHz = 4.0
	alphaLoHz = 8.0
	betaLoHz  = 13.0
	gammaLoHz = 30.0
	gammaHiHz = 100.0
)

// DefaultWindowSamples is the sliding-window length: 256 samples is 1.28 s
// at the Ganglion's 200 Hz rate.
const DefaultWindowSamples = 256

// Analyzer maintains a fixed-length sliding window per channel and derives
// band-power fractions from it.
//
// Spectral estimate: Welch's method with segments of half the window
// length, 50% segment overlap and a Hann window. Per-channel periodograms
// are averaged across segments and channels, then integrated per band.
// Once the window has filled, a new estimate is produced every half window
// (50% window advance).
//
// Not safe for concurrent use; the producer pipeline owns it.
type Analyzer struct {
	sampleRate float64
	winLen     int
	segLen     int
	hop        int
	channels   int

	rings  [][]float64 // per-channel ring buffers
	head   int
	filled int
	pend   int // samples ingested since the last emitted estimate

	fft *fourier.FFT
	seg []float64    // scratch segment
	cfs []complex128 // scratch coefficients
}

// NewAnalyzer builds an analyzer for the given source geometry. winLen must
// be a multiple of 4 so segments and hops divide evenly; DefaultWindowSamples
// satisfies this.
func NewAnalyzer(sampleRate float64, channels, winLen int) *Analyzer {
	segLen := winLen / 2
	a := &Analyzer{
		sampleRate: sampleRate,
		winLen:     winLen,
		segLen:     segLen,
		hop:        winLen / 2,
		channels:   channels,
		rings:      make([][]float64, channels),
		fft:        fourier.NewFFT(segLen),
		seg:        make([]float64, segLen),
		cfs:        make([]complex128, segLen/2+1),
	}
	for ch := range a.rings {
		a.rings[ch] = make([]float64, winLen)
	}
	return a
}

// Reset clears all channel windows so a reused analyzer never scores
// stale data.
func (a *Analyzer) Reset() {
	a.head = 0
	a.filled = 0
	a.pend = 0
}

// Ingest accumulates one sample and, when a full window is available and a
// hop boundary is reached, returns a fresh BandPower estimate. It returns
// false while the window is still filling (the startup transient) and
// between hops. Samples carrying non-finite voltages are rejected outright
// so one corrupt reading cannot poison the window for its lifetime.
func (a *Analyzer) Ingest(s Sample) (BandPower, bool) {
	if len(s.Channels) != a.channels || !finite(s.Channels) {
		return BandPower{}, false
	}

	for ch, v := range s.Channels {
		a.rings[ch][a.head] = v
	}
	a.head = (a.head + 1) % a.winLen
	if a.filled < a.winLen {
		a.filled++
		if a.filled < a.winLen {
			return BandPower{}, false
		}
		// Window just filled: emit the first estimate immediately.
		a.pend = 0
		return a.estimate(), true
	}

	a.pend++
	if a.pend < a.hop {
		return BandPower{}, false
	}
	a.pend = 0
	return a.estimate(), true
}

// estimate runs Welch's method over the current window of every channel and
// returns normalized in-band fractions.
func (a *Analyzer) estimate() BandPower {
	nBins := a.segLen/2 + 1
	psd := make([]float64, nBins)

	segments := (a.winLen-a.segLen)/(a.segLen/2) + 1
	for ch := 0; ch < a.channels; ch++ {
		for si := 0; si < segments; si++ {
			start := si * (a.segLen / 2)
			for i := 0; i < a.segLen; i++ {
				a.seg[i] = a.rings[ch][(a.head+start+i)%a.winLen]
			}
			mean := stat.Mean(a.seg, nil)
			for i := range a.seg {
				a.seg[i] -= mean
			}
			window.Hann(a.seg)
			a.fft.Coefficients(a.cfs, a.seg)
			for i, c := range a.cfs {
				m := cmplx.Abs(c)
				psd[i] += m * m
			}
		}
	}

	var bp BandPower
	binHz := a.sampleRate / float64(a.segLen)
	for i := 1; i < nBins; i++ {
		f := float64(i) * binHz
		p := psd[i]
		switch {
		case f < thetaLoHz || f > gammaHiHz:
			// out of band, discarded
		case f < alphaLoHz:
			bp.Theta += p
		case f < betaLoHz:
			bp.Alpha += p
		case f < gammaLoHz:
			bp.Beta += p
		default:
			bp.Gamma += p
		}
	}

	total := bp.Total()
	if total <= 0 {
		// Flat window (all zeros after demeaning): report an even split
		// rather than dividing by zero.
		return BandPower{Theta: 0.25, Alpha: 0.25, Beta: 0.25, Gamma: 0.25}
	}
	bp.Theta /= total
	bp.Alpha /= total
	bp.Beta /= total
	bp.Gamma /= total
	return bp
}

// WindowSamples returns the configured window length.
func (a *Analyzer) WindowSamples() int { return a.winLen }
