package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/neurocalm/backend/internal/eeg"
	"github.com/neurocalm/backend/internal/session"
)

// Hub fans engine events out to every connected subscriber. Each
// subscriber owns a bounded queue drained by its own writePump goroutine,
// so one stalled client never slows the producer pipeline or its peers.
//
// Backpressure policy: when a subscriber's queue is full, the oldest
// data-bearing event queued for that subscriber is dropped to make room.
// Control events are never dropped; they may push the queue past capacity
// transiently.
//
// Hub implements session.Sink, so the controller publishes through it
// without knowing the transport.
type Hub struct {
	mu       sync.RWMutex
	subs     map[*Subscriber]bool
	capacity int
	clock    *eeg.Clock
	snapshot func() session.Snapshot
}

func NewHub(queueCapacity int) *Hub {
	return &Hub{
		subs:     make(map[*Subscriber]bool),
		capacity: queueCapacity,
		clock:    eeg.NewClock(),
	}
}

// SetSession provides the live session snapshot used for state_sync on
// subscribe. Must be called before the first Subscribe.
func (h *Hub) SetSession(snapshot func() session.Snapshot) {
	h.snapshot = snapshot
}

// Subscriber is one connected client handle. It never outlives its
// connection: the server unsubscribes it when the read side fails.
type Subscriber struct {
	ID   string
	conn *websocket.Conn
	hub  *Hub

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Event
	dropped int
	closed  bool
}

// Subscribe registers a connection. The new subscriber's first queued
// event is a state_sync carrying the current session snapshot, so it is
// guaranteed to precede any data event delivered to that subscriber.
func (h *Hub) Subscribe(conn *websocket.Conn) *Subscriber {
	s := &Subscriber{
		ID:   uuid.NewString(),
		conn: conn,
		hub:  h,
	}
	s.cond = sync.NewCond(&s.mu)

	// Queue the state sync before the subscriber is visible to Publish,
	// so no concurrently published event can precede it.
	if h.snapshot != nil {
		snap := h.snapshot()
		s.enqueue(h.stamp(Event{
			Type:    EvtStateSync,
			Payload: StateSyncPayload{IsRecording: snap.Recording, Mode: snap.Mode},
		}), h.capacity)
	}

	h.mu.Lock()
	h.subs[s] = true
	h.mu.Unlock()

	go s.writePump()
	return s
}

// Unsubscribe removes a subscriber and discards its queue. Safe to call
// concurrently with Publish and safe to call twice.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
	}
	h.mu.Unlock()
	s.close()
}

// Publish stamps the event and pushes it to every live subscriber's queue.
func (h *Hub) Publish(evt Event) {
	evt = h.stamp(evt)

	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.enqueue(evt, h.capacity)
	}
}

// SendTo delivers an event to a single subscriber, e.g. a command
// rejection that must not reach its peers.
func (h *Hub) SendTo(s *Subscriber, evt Event) {
	s.enqueue(h.stamp(evt), h.capacity)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) stamp(evt Event) Event {
	evt.Timestamp = h.clock.Now()
	return evt
}

// session.Sink implementation: the controller's output surface.

func (h *Hub) RecordingStarted() {
	h.Publish(Event{Type: EvtRecordingStarted})
}

func (h *Hub) RecordingStopped() {
	h.Publish(Event{Type: EvtRecordingStopped})
}

func (h *Hub) ModeChanged(mode eeg.Mode, context string) {
	h.Publish(Event{Type: EvtMentalStateChanged, Payload: ModePayload{Mode: mode, Context: context}})
}

func (h *Hub) Data(sample eeg.Sample, bp eeg.BandPower, ms eeg.MentalState) {
	h.Publish(Event{Type: EvtEEGData, Payload: EEGDataPayload{
		RawChannels: sample.Channels,
		BandPower:   bp,
		MentalState: &ms,
	}})
}

func (h *Hub) Info(message string) {
	h.Publish(Event{Type: EvtInfo, Payload: MessagePayload{Message: message}})
}

func (h *Hub) Error(message string) {
	h.Publish(Event{Type: EvtError, Payload: MessagePayload{Message: message}})
}

// enqueue appends evt to the subscriber's queue, applying the drop policy
// when the queue is at capacity.
func (s *Subscriber) enqueue(evt Event, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if len(s.queue) >= capacity {
		if evt.control() {
			// Control events always get through: evict the oldest data
			// event when one exists, otherwise let the queue grow.
			s.evictOldestData()
		} else if !s.evictOldestData() {
			// Backlog is all control and the incoming event is data:
			// the new event is the one dropped.
			s.dropped++
			return
		}
	}

	s.queue = append(s.queue, evt)
	s.cond.Signal()
}

// evictOldestData removes the oldest data-bearing event from the queue.
// Callers hold s.mu.
func (s *Subscriber) evictOldestData() bool {
	for i, e := range s.queue {
		if !e.control() {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			s.dropped++
			return true
		}
	}
	return false
}

// writePump drains the queue onto the connection. A write error removes
// the subscriber from the hub.
func (s *Subscriber) writePump() {
	defer s.conn.Close()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		evt := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		data, err := json.Marshal(evt)
		if err != nil {
			log.Printf("event marshal error: %v", err)
			continue
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.hub.Unsubscribe(s)
			return
		}
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.queue = nil
		s.cond.Broadcast()
	}
	s.mu.Unlock()
}

// queuedData reports how many data events are buffered for this
// subscriber.
func (s *Subscriber) queuedData() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.queue {
		if !e.control() {
			n++
		}
	}
	return n
}
