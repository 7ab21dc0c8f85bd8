// Package bandit implements an epsilon-greedy recommender over relaxation
// techniques. Each completed analysis window feeds a reward (the normalized
// calm score) for the technique label active at the time; Select then
// exploits the best-known technique while still exploring with probability
// epsilon.
package bandit

import (
	"math/rand"
	"sort"
	"sync"
)

const (
	// DefaultEpsilon is the exploration probability.
	DefaultEpsilon = 0.2
	// DefaultAlpha is the exponential-moving-average step size for reward
	// updates. Recent windows dominate older ones.
	DefaultAlpha = 0.3
)

// TechniqueScore pairs a technique label with its learned reward estimate.
type TechniqueScore struct {
	Technique string  `json:"technique"`
	Score     float64 `json:"score"`
}

// Bandit is safe for concurrent use: the pipeline updates it per window
// while command handlers read recommendations.
type Bandit struct {
	mu      sync.Mutex
	epsilon float64
	alpha   float64
	rng     *rand.Rand
	q       map[string]float64
	n       map[string]int
}

// New builds a bandit over the given initial technique labels. Labels not
// listed here are admitted on first Update, so opaque UI context tags
// (meeting, study, lecture, ...) rank without prior registration.
func New(techniques []string, epsilon, alpha float64, seed int64) *Bandit {
	b := &Bandit{
		epsilon: epsilon,
		alpha:   alpha,
		rng:     rand.New(rand.NewSource(seed)),
		q:       make(map[string]float64),
		n:       make(map[string]int),
	}
	for _, t := range techniques {
		b.q[t] = 0
		b.n[t] = 0
	}
	return b
}

// Calibrate seeds reward estimates, e.g. from a baseline measurement pass.
// Unknown techniques are ignored.
func (b *Bandit) Calibrate(initial map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, v := range initial {
		if _, ok := b.q[t]; ok {
			b.q[t] = v
			b.n[t] = 1
		}
	}
}

// Select returns a technique: the current best with probability 1-epsilon,
// otherwise a uniformly random one. Returns "" when nothing is known yet.
func (b *Bandit) Select() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.q) == 0 {
		return ""
	}
	names := b.sortedNames()
	if b.rng.Float64() < b.epsilon {
		return names[b.rng.Intn(len(names))]
	}
	best := names[0]
	for _, t := range names[1:] {
		if b.q[t] > b.q[best] {
			best = t
		}
	}
	return best
}

// Update folds a reward observation into the technique's estimate using an
// exponential moving average. A technique seen for the first time is
// admitted with the reward as its initial estimate.
func (b *Bandit) Update(technique string, reward float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	old, ok := b.q[technique]
	if !ok {
		b.q[technique] = reward
		b.n[technique] = 1
		return
	}
	b.q[technique] = (1-b.alpha)*old + b.alpha*reward
	b.n[technique]++
}

// Rankings returns all techniques ordered by descending reward estimate.
func (b *Bandit) Rankings() []TechniqueScore {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TechniqueScore, 0, len(b.q))
	for t, v := range b.q {
		out = append(out, TechniqueScore{Technique: t, Score: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Technique < out[j].Technique
	})
	return out
}

// sortedNames returns technique labels in stable order so Select's
// tie-breaks are deterministic for a given seed. Callers hold mu.
func (b *Bandit) sortedNames() []string {
	names := make([]string, 0, len(b.q))
	for t := range b.q {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}
