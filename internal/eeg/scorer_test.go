package eeg

import (
	"math"
	"math/rand"
	"testing"
)

func TestScoreMeasuredPath(t *testing.T) {
	tests := []struct {
		name         string
		bp           BandPower
		wantCalm     float64
		wantStressed float64
		wantNormal   float64
	}{
		{
			// All power in alpha: both calm terms saturate, stressed
			// collapses, normal is at max deviation from the quarter split.
			name:         "AllAlpha",
			bp:           BandPower{Alpha: 1},
			wantCalm:     100,
			wantStressed: 0,
			wantNormal:   0,
		},
		{
			name:         "AllGamma",
			bp:           BandPower{Gamma: 1},
			wantCalm:     0,
			wantStressed: 100,
			wantNormal:   0,
		},
		{
			// Ideal quarter split maximizes normal.
			name:         "QuarterSplit",
			bp:           BandPower{Theta: 0.25, Alpha: 0.25, Beta: 0.25, Gamma: 0.25},
			wantCalm:     31.25,
			wantStressed: 58.333333,
			wantNormal:   100,
		},
		{
			// Calm-mode synthetic target distribution.
			name:         "CalmProfile",
			bp:           BandPower{Theta: 0.30, Alpha: 0.40, Beta: 0.20, Gamma: 0.10},
			wantCalm:     70,
			wantStressed: 37.5,
			wantNormal:   73.333333,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.bp, ModeNormal)
			if math.Abs(got.Calm-tt.wantCalm) > 1e-4 {
				t.Errorf("calm = %v, want %v", got.Calm, tt.wantCalm)
			}
			if math.Abs(got.Stressed-tt.wantStressed) > 1e-4 {
				t.Errorf("stressed = %v, want %v", got.Stressed, tt.wantStressed)
			}
			if math.Abs(got.Normal-tt.wantNormal) > 1e-4 {
				t.Errorf("normal = %v, want %v", got.Normal, tt.wantNormal)
			}
		})
	}
}

func TestScoreBoundsForArbitraryInput(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		w := [4]float64{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
		total := w[0] + w[1] + w[2] + w[3]
		bp := BandPower{Theta: w[0] / total, Alpha: w[1] / total, Beta: w[2] / total, Gamma: w[3] / total}

		ms := Score(bp, ModeNormal)
		for _, v := range []float64{ms.Calm, ms.Stressed, ms.Normal} {
			if v < 0 || v > 100 {
				t.Fatalf("score %v out of [0,100] for %+v", v, bp)
			}
		}
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	bp := BandPower{Theta: 0.1, Alpha: 0.5, Beta: 0.3, Gamma: 0.1}
	a := Score(bp, ModeCalm)
	b := Score(bp, ModeCalm)
	if a != b {
		t.Errorf("Score is not reproducible: %+v vs %+v", a, b)
	}
}

func TestSyntheticScorerStaysInTargetRanges(t *testing.T) {
	tests := []struct {
		mode                                             Mode
		calmLo, calmHi, strLo, strHi, normalLo, normalHi float64
	}{
		{ModeCalm, 70, 85, 15, 30, 30, 45},
		{ModeStressed, 15, 30, 70, 85, 30, 45},
		{ModeNormal, 40, 55, 15, 30, 70, 85},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			s := NewSyntheticScorer(42)
			for i := 0; i < 200; i++ {
				ms, bp := s.Next(tt.mode)
				if ms.Calm < tt.calmLo || ms.Calm > tt.calmHi {
					t.Fatalf("tick %d: calm = %v, want [%v,%v]", i, ms.Calm, tt.calmLo, tt.calmHi)
				}
				if ms.Stressed < tt.strLo || ms.Stressed > tt.strHi {
					t.Fatalf("tick %d: stressed = %v, want [%v,%v]", i, ms.Stressed, tt.strLo, tt.strHi)
				}
				if ms.Normal < tt.normalLo || ms.Normal > tt.normalHi {
					t.Fatalf("tick %d: normal = %v, want [%v,%v]", i, ms.Normal, tt.normalLo, tt.normalHi)
				}
				if ms.Mode != tt.mode {
					t.Fatalf("tick %d: mode = %v, want %v", i, ms.Mode, tt.mode)
				}
				if diff := math.Abs(bp.Total() - 1.0); diff > 1e-9 {
					t.Fatalf("tick %d: derived fractions sum to %v", i, bp.Total())
				}
			}
		})
	}
}

func TestSyntheticScoresAreCorrelated(t *testing.T) {
	s := NewSyntheticScorer(7)
	prev, _ := s.Next(ModeCalm)
	var sum float64
	const n = 500
	for i := 0; i < n; i++ {
		ms, _ := s.Next(ModeCalm)
		sum += math.Abs(ms.Calm - prev.Calm)
		prev = ms
	}
	// Bounded drift: average step far below the range width, so
	// consecutive scores track each other instead of jumping around.
	if avg := sum / n; avg > 5 {
		t.Errorf("average consecutive calm delta = %v, want <= 5", avg)
	}
}

func TestInverseBandPowerMatchesCalmScenario(t *testing.T) {
	// Scores in the calm-mode target range must reverse-derive an alpha
	// fraction inside the scenario window.
	for _, calm := range []float64{65, 70, 75, 80, 85} {
		ms := MentalState{Calm: calm, Stressed: 20, Normal: 38, Mode: ModeCalm}
		bp := InverseBandPower(ms)
		if diff := math.Abs(bp.Total() - 1.0); diff > 1e-9 {
			t.Fatalf("fractions sum to %v", bp.Total())
		}
		if bp.Alpha < 0.30 || bp.Alpha > 0.50 {
			t.Errorf("calm=%v: derived alpha = %v, want [0.30,0.50]", calm, bp.Alpha)
		}
	}
}
