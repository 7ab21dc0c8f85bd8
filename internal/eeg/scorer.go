package eeg

import (
	"math"
	"math/rand"
	"sync"
)

// Score derives the three mental-state scores from measured band power.
// It is a pure function of (BandPower, Mode): no hidden state, reproducible
// from recorded inputs.
//
// calm rewards alpha dominance (up to 50 points at alpha >= 40%) plus
// beta+gamma suppression (up to 50 points as beta+gamma falls below 50%).
// stressed mirrors it: beta+gamma elevation plus alpha suppression.
// normal measures closeness to an even quarter split across the bands,
// scaled by the worst-case mean absolute deviation (37.5, reached when one
// band holds all power).
func Score(bp BandPower, mode Mode) MentalState {
	alpha := bp.Alpha * 100
	bg := (bp.Beta + bp.Gamma) * 100

	calm := clamp(alpha/40*50, 0, 50) + clamp((1-bg/50)*50, 0, 50)
	stressed := clamp(bg/40*50, 0, 50) + clamp((1-alpha/30)*50, 0, 50)

	mad := (math.Abs(bp.Theta*100-25) +
		math.Abs(bp.Alpha*100-25) +
		math.Abs(bp.Beta*100-25) +
		math.Abs(bp.Gamma*100-25)) / 4
	normal := (1 - mad/37.5) * 100

	return MentalState{
		Calm:     clamp(calm, 0, 100),
		Stressed: clamp(stressed, 0, 100),
		Normal:   clamp(normal, 0, 100),
		Mode:     mode,
	}
}

// scoreRange bounds one synthetic score's wander.
type scoreRange struct {
	lo, hi float64
}

func (r scoreRange) mid() float64 { return (r.lo + r.hi) / 2 }

// Synthetic target ranges per mode: the mode's own score runs high, the
// opposing score low, normal in between.
var syntheticTargets = map[Mode]struct {
	calm, stressed, normal scoreRange
}{
	ModeCalm:     {calm: scoreRange{70, 85}, stressed: scoreRange{15, 30}, normal: scoreRange{30, 45}},
	ModeStressed: {calm: scoreRange{15, 30}, stressed: scoreRange{70, 85}, normal: scoreRange{30, 45}},
	ModeNormal:   {calm: scoreRange{40, 55}, stressed: scoreRange{15, 30}, normal: scoreRange{70, 85}},
}

// SyntheticScorer emulates natural score variability when no real signal is
// being interpreted. Each tick every score reverts a fraction of the way
// toward its range midpoint and takes a small random step, so consecutive
// scores are correlated rather than a pure random walk, and stay inside
// their mode's target range.
type SyntheticScorer struct {
	mu    sync.Mutex
	rng   *rand.Rand
	mode  Mode
	calm  float64
	strss float64
	norm  float64
	init  bool
}

func NewSyntheticScorer(seed int64) *SyntheticScorer {
	return &SyntheticScorer{rng: rand.New(rand.NewSource(seed))}
}

// Next produces the next correlated score triple for the given mode along
// with band fractions reverse-derived from those scores, keeping the two
// outputs mutually consistent.
func (s *SyntheticScorer) Next(mode Mode) (MentalState, BandPower) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := syntheticTargets[mode]
	if !s.init || mode != s.mode {
		s.calm = t.calm.mid()
		s.strss = t.stressed.mid()
		s.norm = t.normal.mid()
		s.mode = mode
		s.init = true
	}

	s.calm = s.drift(s.calm, t.calm)
	s.strss = s.drift(s.strss, t.stressed)
	s.norm = s.drift(s.norm, t.normal)

	ms := MentalState{
		Calm:     s.calm,
		Stressed: s.strss,
		Normal:   s.norm,
		Mode:     mode,
	}
	return ms, InverseBandPower(ms)
}

// drift moves v 15% of the way back toward the range midpoint, adds
// bounded noise, and clamps to the range.
func (s *SyntheticScorer) drift(v float64, r scoreRange) float64 {
	v += 0.15 * (r.mid() - v)
	v += s.rng.NormFloat64() * 1.5
	return clamp(v, r.lo, r.hi)
}

// InverseBandPower derives band fractions from a score triple so synthetic
// scores and the band power reported alongside them agree. It inverts the
// measured-path relationships loosely: alpha tracks half the calm score
// (calm 80 -> alpha 40%), beta+gamma tracks 0.4x the stressed score, beta
// takes 70% of that, and theta absorbs the remainder. Inputs are clamped
// so the fractions stay positive, then renormalized to sum to 1.
func InverseBandPower(ms MentalState) BandPower {
	alpha := clamp(ms.Calm*0.5, 5, 60)
	bg := clamp(ms.Stressed*0.4, 5, 60)
	beta := bg * 0.7
	gamma := bg * 0.3
	theta := math.Max(100-alpha-bg, 5)

	total := theta + alpha + beta + gamma
	return BandPower{
		Theta: theta / total,
		Alpha: alpha / total,
		Beta:  beta / total,
		Gamma: gamma / total,
	}
}
