package stream

import "sync"

// Captures events in memory.
//
// Used by the simulation harness and by tests to assert on the normalized
// event sequence.
type Recorder struct {
	events []Event
}

// Creates a new recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Appends the event.
func (r *Recorder) Emit(ev Event) error {
	r.events = append(r.events, ev)
	return nil
}

// No-op; recorded events remain readable after close.
func (r *Recorder) Close() error {
	return nil
}

// Returns the recorded events in emission order.
func (r *Recorder) Events() []Event {
	return append([]Event(nil), r.events...)
}

// Fans events out to several sinks.
//
// The first emit error stops the fan-out for that event; later events are
// still attempted so a broken UI stream does not silence the others.
type Multi struct {
	sinks []Sink
}

// Creates a sink that forwards to all given sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Forwards the event to every sink.
func (m *Multi) Emit(ev Event) error {
	var first error
	for _, s := range m.sinks {
		if err := s.Emit(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Closes every sink.
func (m *Multi) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Serializes emits from concurrent output pumps.
//
// The engine itself is single-threaded, but a real step's stdout and
// stderr are pumped by separate goroutines while other futures hold the
// token. Wrapping the sink keeps each event atomic; ordering across
// concurrent steps is whatever the engine observes.
type Synced struct {
	mu   sync.Mutex
	sink Sink
}

// Wraps a sink for concurrent emission.
func NewSynced(sink Sink) *Synced {
	return &Synced{sink: sink}
}

// Forwards the event under the lock.
func (s *Synced) Emit(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Emit(ev)
}

// Closes the underlying sink.
func (s *Synced) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Close()
}

// Discards all events.
type Discard struct{}

func (Discard) Emit(Event) error { return nil }
func (Discard) Close() error     { return nil }
