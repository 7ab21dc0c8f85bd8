package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/neurocalm/backend/internal/bandit"
	"github.com/neurocalm/backend/internal/eeg"
)

// ErrAlreadyRecording and ErrNotRecording mark idempotent no-op commands:
// the session is already in the requested state. Callers acknowledge these
// as success.
var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// Controller is the state machine owning the single recording session.
// States are Idle and Recording; it starts Idle with mode normal and lives
// for the process lifetime. At most one producer pipeline runs at a time,
// enforced here.
//
// All transitions are serialized by mu. The session snapshot itself is kept
// in an atomic pointer so the hub and HTTP handlers read it without locks.
type Controller struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]

	source   eeg.Source // configured source
	fallback eeg.Source // optional synthetic fallback when hardware fails to open
	active   eeg.Source // source driving the current/last recording

	winLen   int
	analyzer *eeg.Analyzer
	synth    *eeg.SyntheticScorer
	rec      *bandit.Bandit
	sink     Sink

	cancel context.CancelFunc
	done   chan struct{}
}

// NewController wires the engine. fallback may be nil; when non-nil it is
// used (with an advisory info event) if source fails to open.
func NewController(source, fallback eeg.Source, winLen int, rec *bandit.Bandit, sink Sink) *Controller {
	c := &Controller{
		source:   source,
		fallback: fallback,
		winLen:   winLen,
		synth:    eeg.NewSyntheticScorer(time.Now().UnixNano()),
		rec:      rec,
		sink:     sink,
	}
	c.snap.Store(&Snapshot{Mode: eeg.ModeNormal})
	return c
}

// Snapshot returns the current session state as a point-in-time copy.
func (c *Controller) Snapshot() Snapshot {
	return *c.snap.Load()
}

// Start transitions Idle -> Recording: clears the analyzer window,
// activates the source and spawns the producer pipeline. While already
// Recording it returns ErrAlreadyRecording and changes nothing. A source
// that cannot be opened (and has no fallback) emits one error event and
// leaves the session Idle.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap.Load().Recording {
		return ErrAlreadyRecording
	}

	mode := c.snap.Load().Mode
	src := c.source
	if err := src.Start(mode); err != nil {
		if c.fallback == nil {
			c.sink.Error(fmt.Sprintf("failed to start recording: %v", err))
			return err
		}
		log.Printf("source unavailable (%v), falling back to synthetic", err)
		c.sink.Info("hardware unavailable, using simulated source")
		src = c.fallback
		if err := src.Start(mode); err != nil {
			c.sink.Error(fmt.Sprintf("failed to start recording: %v", err))
			return err
		}
	} else if src.Synthetic() {
		c.sink.Info("using simulated source")
	}

	c.active = src
	c.analyzer = eeg.NewAnalyzer(src.SampleRate(), src.Channels(), c.winLen)

	snap := *c.snap.Load()
	snap.Recording = true
	snap.StartedAt = time.Now()
	c.snap.Store(&snap)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	log.Printf("recording started (mode=%s, source=%s)", mode, sourceName(src))
	c.sink.RecordingStarted()
	go c.run(ctx, src, c.analyzer, c.done)
	return nil
}

// Stop transitions Recording -> Idle. The pipeline observes the
// cancellation within one tick interval; Stop waits for it to exit before
// publishing recording_stopped, so no data event can follow that control
// event. While Idle it returns ErrNotRecording.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.snap.Load().Recording {
		c.mu.Unlock()
		return ErrNotRecording
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.snap.Load().Recording {
		// The pipeline tore down first (source failure raced with Stop).
		return nil
	}
	c.teardownLocked()
	return nil
}

// SetMode updates the interpretation mode and its opaque context label.
// While Recording the change takes effect on the next analysis window
// without interrupting the stream; while Idle it applies to the next
// recording and emits no data. Both paths confirm via mental_state_changed.
func (c *Controller) SetMode(mode eeg.Mode, contextLabel string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := *c.snap.Load()
	snap.Mode = mode
	snap.Context = contextLabel
	c.snap.Store(&snap)

	if snap.Recording && c.active != nil {
		c.active.SetMode(mode)
	}
	c.sink.ModeChanged(mode, contextLabel)
}

// Recommend returns the technique with the highest learned reward, with
// the full rankings snapshot. ok is false before any feedback has arrived.
func (c *Controller) Recommend() (string, []bandit.TechniqueScore, bool) {
	if c.rec == nil {
		return "", nil, false
	}
	rankings := c.rec.Rankings()
	if len(rankings) == 0 {
		return "", nil, false
	}
	return c.rec.Select(), rankings, true
}

// teardownLocked flips the session to Idle, stops the source and publishes
// recording_stopped. Callers hold mu.
func (c *Controller) teardownLocked() {
	snap := *c.snap.Load()
	snap.Recording = false
	snap.StartedAt = time.Time{}
	c.snap.Store(&snap)

	if c.active != nil {
		c.active.Stop()
	}
	log.Printf("recording stopped")
	c.sink.RecordingStopped()
}

// run is the producer pipeline: one dedicated goroutine per active
// recording. Samples flow source -> analyzer -> scorer -> sink, tagged
// with the live session snapshot. A source read failure emits exactly one
// error event, tears the session down and exits; it is never retried.
func (c *Controller) run(ctx context.Context, src eeg.Source, analyzer *eeg.Analyzer, done chan struct{}) {
	defer close(done)

	for {
		sample, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Stop() owns the teardown.
				return
			}
			log.Printf("source read failed: %v", err)
			c.sink.Error(fmt.Sprintf("eeg source failed: %v", err))
			c.mu.Lock()
			if c.snap.Load().Recording {
				c.teardownLocked()
			}
			c.mu.Unlock()
			return
		}

		bp, ok := analyzer.Ingest(sample)
		if !ok {
			continue // window still filling, or between hops
		}

		snap := c.Snapshot()
		if !snap.Recording {
			return
		}

		var ms eeg.MentalState
		if src.Synthetic() {
			// Simulated interpretation: correlated scores drawn around the
			// mode's targets, band power reverse-derived to match.
			ms, bp = c.synth.Next(snap.Mode)
		} else {
			ms = eeg.Score(bp, snap.Mode)
		}

		c.sink.Data(sample, bp, ms)

		if c.rec != nil {
			label := snap.Context
			if label == "" {
				label = snap.Mode.String()
			}
			c.rec.Update(label, ms.Calm/100)
		}
	}
}

func sourceName(src eeg.Source) string {
	if src.Synthetic() {
		return "synthetic"
	}
	return "hardware"
}
