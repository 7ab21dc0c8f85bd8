package eeg

import (
	"encoding/json"
	"fmt"
)

// DefaultChannels matches the 4-channel OpenBCI Ganglion layout.
const DefaultChannels = 4

// Mode is the operator-selected interpretation/simulation target. It is a
// setting, not a measurement: the synthetic source and scorer shape their
// output around it, while the measured path only reports it alongside scores.
type Mode int

const (
	ModeNormal Mode = iota
	ModeCalm
	ModeStressed
)

var modeNames = map[Mode]string{
	ModeNormal:   "normal",
	ModeCalm:     "calm",
	ModeStressed: "stressed",
}

var modeFromName = map[string]Mode{
	"normal":   ModeNormal,
	"calm":     ModeCalm,
	"stressed": ModeStressed,
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := modeFromName[s]
	if !ok {
		return fmt.Errorf("unknown mode %q", s)
	}
	*m = v
	return nil
}

// ParseMode maps a wire-level mode string to a Mode.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeFromName[s]; ok {
		return m, nil
	}
	return ModeNormal, fmt.Errorf("unknown mode %q", s)
}

// Sample is one multi-channel voltage reading. Timestamp is in milliseconds
// and strictly increases between consecutive samples from the same source.
// Channel values are in microvolts. A Sample is never mutated after it is
// produced.
type Sample struct {
	Timestamp int64     `json:"ts"`
	Channels  []float64 `json:"channels"`
}

// BandPower holds fractional power per EEG frequency band, averaged across
// channels and normalized over in-band (4-100 Hz) power, so the four
// fractions sum to 1 within floating-point tolerance. Recomputed per window,
// never mutated in place.
type BandPower struct {
	Theta float64 `json:"theta"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Total returns the sum of the four band fractions.
func (b BandPower) Total() float64 {
	return b.Theta + b.Alpha + b.Beta + b.Gamma
}

// MentalState carries the three derived scores, each independently clamped
// to [0,100] (they are not complementary and need not sum to 100), plus the
// Mode they were computed under.
type MentalState struct {
	Calm     float64 `json:"calm_score"`
	Stressed float64 `json:"stressed_score"`
	Normal   float64 `json:"normal_score"`
	Mode     Mode    `json:"mode"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
