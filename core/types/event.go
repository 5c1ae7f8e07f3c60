package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EventSink receives events emitted by the engines. Implementations must not
// retain the event past the call.
type EventSink interface {
	Emit(evt *Event)
}

// EventRecorder is an in-memory sink buffering emitted events until drained.
type EventRecorder struct {
	events []*Event
}

func (r *EventRecorder) Emit(evt *Event) {
	if r == nil || evt == nil {
		return
	}
	r.events = append(r.events, evt)
}

// Drain returns the buffered events and resets the recorder.
func (r *EventRecorder) Drain() []*Event {
	if r == nil {
		return nil
	}
	out := r.events
	r.events = nil
	return out
}
