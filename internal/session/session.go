package session

import (
	"time"

	"github.com/neurocalm/backend/internal/eeg"
)

// Snapshot is a point-in-time copy of the single process-wide recording
// session. The controller replaces the whole value atomically on every
// transition; readers always observe a consistent (never torn) state.
type Snapshot struct {
	Recording bool      `json:"is_recording"`
	Mode      eeg.Mode  `json:"mode"`
	Context   string    `json:"context,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
}

// Sink receives everything the engine emits: control transitions, analysis
// output and advisory messages. The websocket hub implements it; tests use
// a recording fake.
type Sink interface {
	RecordingStarted()
	RecordingStopped()
	ModeChanged(mode eeg.Mode, context string)

	// Data delivers one completed analysis window: the most recent raw
	// sample, the window's band-power fractions and the derived scores.
	Data(sample eeg.Sample, bp eeg.BandPower, ms eeg.MentalState)

	Info(message string)
	Error(message string)
}
