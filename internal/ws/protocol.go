package ws

import (
	"github.com/neurocalm/backend/internal/bandit"
	"github.com/neurocalm/backend/internal/eeg"
)

type EventType string

const (
	// Control events. Never dropped by the hub's backpressure policy.
	EvtStateSync          EventType = "state_sync"
	EvtRecordingStarted   EventType = "recording_started"
	EvtRecordingStopped   EventType = "recording_stopped"
	EvtMentalStateChanged EventType = "mental_state_changed"
	EvtInfo               EventType = "info"
	EvtError              EventType = "error"
	EvtRecommendation     EventType = "recommendation"

	// Data event. The only type the hub may drop under backpressure.
	EvtEEGData EventType = "eeg_data"
)

// Event is the outbound wire envelope. Timestamp is Unix milliseconds,
// strictly increasing across all events from one process.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp int64       `json:"ts"`
	Payload   interface{} `json:"payload,omitempty"`
}

// control reports whether this event must survive backpressure.
func (e Event) control() bool {
	return e.Type != EvtEEGData
}

// StateSyncPayload is sent to every new subscriber before anything else,
// so a reconnecting client never infers state from absence of messages.
type StateSyncPayload struct {
	IsRecording bool     `json:"is_recording"`
	Mode        eeg.Mode `json:"mode"`
}

// ModePayload confirms a mode change. Context is an opaque UI label
// (meeting, study, lecture, background, ...) passed through unchanged.
type ModePayload struct {
	Mode    eeg.Mode `json:"mode"`
	Context string   `json:"context,omitempty"`
}

// EEGDataPayload carries one completed analysis window.
type EEGDataPayload struct {
	RawChannels []float64        `json:"raw_channels"`
	BandPower   eeg.BandPower    `json:"band_power"`
	MentalState *eeg.MentalState `json:"mental_state,omitempty"`
}

// MessagePayload backs info and error events.
type MessagePayload struct {
	Message string `json:"message"`
}

type RecommendationPayload struct {
	Technique string                  `json:"technique"`
	Rankings  []bandit.TechniqueScore `json:"rankings"`
}

// Command is the inbound message shape from clients.
type Command struct {
	Type    string `json:"type"`
	Mode    string `json:"mode,omitempty"`
	Context string `json:"context,omitempty"`
}

// Inbound command types.
const (
	CmdStartRecording    = "start_recording"
	CmdStopRecording     = "stop_recording"
	CmdSetMode           = "set_mode"
	CmdSetMentalState    = "set_mental_state" // alias kept for older dashboards
	CmdGetRecommendation = "get_recommendation"
)
