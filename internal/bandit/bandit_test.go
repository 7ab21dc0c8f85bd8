package bandit

import (
	"math"
	"testing"
)

func TestUpdateMovesEstimateTowardReward(t *testing.T) {
	b := New([]string{"breathing"}, 0, 0.3, 1)

	b.Update("breathing", 1.0)
	if got := b.Rankings()[0].Score; math.Abs(got-0.3) > 1e-9 {
		t.Errorf("after one reward of 1.0: score = %v, want 0.3", got)
	}

	b.Update("breathing", 1.0)
	// (1-0.3)*0.3 + 0.3*1.0 = 0.51
	if got := b.Rankings()[0].Score; math.Abs(got-0.51) > 1e-9 {
		t.Errorf("after two rewards of 1.0: score = %v, want 0.51", got)
	}
}

func TestUpdateAdmitsUnknownTechnique(t *testing.T) {
	b := New([]string{"breathing"}, 0, 0.3, 1)
	b.Update("meeting", 0.8)

	rankings := b.Rankings()
	if len(rankings) != 2 {
		t.Fatalf("len(rankings) = %d, want 2", len(rankings))
	}
	if rankings[0].Technique != "meeting" || rankings[0].Score != 0.8 {
		t.Errorf("top ranking = %+v, want meeting at 0.8", rankings[0])
	}
}

func TestSelectGreedyPicksBest(t *testing.T) {
	b := New([]string{"breathing", "meditation", "music"}, 0, DefaultAlpha, 1)
	b.Update("meditation", 0.9)
	b.Update("breathing", 0.4)

	for i := 0; i < 20; i++ {
		if got := b.Select(); got != "meditation" {
			t.Fatalf("epsilon=0 Select() = %q, want meditation", got)
		}
	}
}

func TestSelectExploresWithinKnownSet(t *testing.T) {
	techniques := map[string]bool{"breathing": true, "meditation": true, "music": true}
	b := New([]string{"breathing", "meditation", "music"}, 1, DefaultAlpha, 7)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		pick := b.Select()
		if !techniques[pick] {
			t.Fatalf("Select() = %q, not a known technique", pick)
		}
		seen[pick] = true
	}
	if len(seen) < 2 {
		t.Errorf("epsilon=1 over 200 draws visited only %d techniques", len(seen))
	}
}

func TestSelectEmptyBandit(t *testing.T) {
	b := New(nil, DefaultEpsilon, DefaultAlpha, 1)
	if got := b.Select(); got != "" {
		t.Errorf("Select() on empty bandit = %q, want empty", got)
	}
	if got := b.Rankings(); len(got) != 0 {
		t.Errorf("Rankings() on empty bandit has %d entries", len(got))
	}
}

func TestCalibrateSeedsKnownOnly(t *testing.T) {
	b := New([]string{"breathing", "music"}, 0, DefaultAlpha, 1)
	b.Calibrate(map[string]float64{
		"breathing": 0.6,
		"hypnosis":  0.9, // not registered, must be dropped
	})

	rankings := b.Rankings()
	if len(rankings) != 2 {
		t.Fatalf("len(rankings) = %d, want 2", len(rankings))
	}
	if rankings[0].Technique != "breathing" || rankings[0].Score != 0.6 {
		t.Errorf("top ranking = %+v, want breathing at 0.6", rankings[0])
	}
}

func TestRankingsOrderAndTieBreak(t *testing.T) {
	b := New([]string{"c", "a", "b"}, 0, DefaultAlpha, 1)
	b.Calibrate(map[string]float64{"a": 0.5, "b": 0.5, "c": 0.7})

	rankings := b.Rankings()
	want := []string{"c", "a", "b"}
	for i, ts := range rankings {
		if ts.Technique != want[i] {
			t.Errorf("rankings[%d] = %q, want %q", i, ts.Technique, want[i])
		}
	}
}
