package events

import (
	"sync"

	"htlcnet/core/types"
)

// Event represents a structured state change emitted by the swap engine.
type Event interface {
	EventType() string
}

// Payloader is implemented by events that can render themselves as a canonical
// attribute payload for RPC consumers.
type Payloader interface {
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MemoryEmitter buffers emitted events in order so the RPC surface can expose
// them to external monitoring. The buffer is bounded; the oldest events are
// dropped once the cap is reached.
type MemoryEmitter struct {
	mu     sync.Mutex
	cap    int
	events []*types.Event
}

// NewMemoryEmitter returns a buffering emitter retaining at most cap events.
// A non-positive cap falls back to a default of 1024.
func NewMemoryEmitter(cap int) *MemoryEmitter {
	if cap <= 0 {
		cap = 1024
	}
	return &MemoryEmitter{cap: cap}
}

// Emit implements the Emitter interface.
func (m *MemoryEmitter) Emit(evt Event) {
	if m == nil || evt == nil {
		return
	}
	payloader, ok := evt.(Payloader)
	if !ok {
		return
	}
	payload := payloader.Event()
	if payload == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) >= m.cap {
		m.events = m.events[1:]
	}
	m.events = append(m.events, payload)
}

// Publish appends already rendered payloads in order, honouring the cap.
// The node uses it to move an operation's staged events into the shared
// buffer once the operation has committed.
func (m *MemoryEmitter) Publish(payloads []*types.Event) {
	if m == nil || len(payloads) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, payload := range payloads {
		if payload == nil {
			continue
		}
		if len(m.events) >= m.cap {
			m.events = m.events[1:]
		}
		m.events = append(m.events, payload)
	}
}

// Events returns a snapshot of the buffered event payloads in emission order.
func (m *MemoryEmitter) Events() []*types.Event {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Event, len(m.events))
	copy(out, m.events)
	return out
}
