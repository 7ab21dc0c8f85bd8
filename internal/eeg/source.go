package eeg

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/time/rate"
)

// ErrSourceUnavailable indicates the acquisition hardware could not be
// opened or read. It is fatal to the current recording session: the
// controller stops the session and emits an error event rather than
// retrying.
var ErrSourceUnavailable = errors.New("eeg source unavailable")

// Source produces one multi-channel voltage sample per tick.
//
// Start activates acquisition for the given mode; Next blocks until the
// next sample is due (or ctx is cancelled); Stop deactivates acquisition.
// Implementations are driven from a single pipeline goroutine and do not
// need to be safe for concurrent use, except SetMode which may be called
// from the command path while the pipeline runs.
type Source interface {
	Start(mode Mode) error
	Stop()
	SetMode(mode Mode)
	Next(ctx context.Context) (Sample, error)

	// SampleRate returns the nominal sampling rate in Hz.
	SampleRate() float64
	// Channels returns the fixed channel count.
	Channels() int
	// Synthetic reports whether this source simulates its data.
	Synthetic() bool
}

// Board is the only surface through which acquisition hardware (vendor SDK,
// serial driver) is consumed. Read returns one sample's worth of channel
// voltages in microvolts.
type Board interface {
	Open() error
	Read() ([]float64, error)
	Close() error
}

// boardSource adapts a Board into a Source, pacing reads at the board's
// nominal rate and guarding the strictly-increasing timestamp invariant.
type boardSource struct {
	board   Board
	rateHz  float64
	chans   int
	limiter *rate.Limiter
	clock   *Clock
	open    bool
}

// NewBoardSource wraps hardware behind the Source contract. rateHz is the
// board's nominal sampling rate (200 Hz for the Ganglion), channels its
// fixed EEG channel count.
func NewBoardSource(board Board, rateHz float64, channels int) Source {
	return &boardSource{
		board:   board,
		rateHz:  rateHz,
		chans:   channels,
		limiter: rate.NewLimiter(rate.Limit(rateHz), 1),
		clock:   NewClock(),
	}
}

func (s *boardSource) Start(Mode) error {
	if s.open {
		return nil
	}
	if err := s.board.Open(); err != nil {
		return fmt.Errorf("%w: open: %v", ErrSourceUnavailable, err)
	}
	s.open = true
	return nil
}

func (s *boardSource) Stop() {
	if !s.open {
		return
	}
	s.board.Close()
	s.open = false
}

// SetMode is a no-op: hardware does not simulate, the mode only affects
// interpretation downstream.
func (s *boardSource) SetMode(Mode) {}

func (s *boardSource) Next(ctx context.Context) (Sample, error) {
	if !s.open {
		return Sample{}, fmt.Errorf("%w: not open", ErrSourceUnavailable)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return Sample{}, err
	}
	raw, err := s.board.Read()
	if err != nil {
		return Sample{}, fmt.Errorf("%w: read: %v", ErrSourceUnavailable, err)
	}
	channels := make([]float64, s.chans)
	copy(channels, raw)
	return Sample{Timestamp: s.clock.Now(), Channels: channels}, nil
}

func (s *boardSource) SampleRate() float64 { return s.rateHz }
func (s *boardSource) Channels() int       { return s.chans }
func (s *boardSource) Synthetic() bool     { return false }

// UnavailableBoard is a Board whose driver is not linked into this build.
// Open always fails, so an "auto" source configuration falls through to
// the synthetic generator with an advisory event.
type UnavailableBoard struct {
	Reason string
}

func (b UnavailableBoard) Open() error {
	if b.Reason != "" {
		return errors.New(b.Reason)
	}
	return errors.New("no eeg board driver linked")
}

func (b UnavailableBoard) Read() ([]float64, error) {
	return nil, errors.New("board not open")
}

func (b UnavailableBoard) Close() error { return nil }

// finite reports whether every voltage is a finite number. The analyzer
// rejects non-finite samples so one corrupt reading cannot poison a full
// analysis window.
func finite(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
