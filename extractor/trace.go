package extractor

import "sync"

// Event is one recorded extraction step.
type Event map[string]any

// Trace records extraction events for debugging. A nil *Trace records
// nothing, so callers can pass it unconditionally.
type Trace struct {
	mu     sync.Mutex
	events []Event
}

// NewTrace returns an empty, enabled trace.
func NewTrace() *Trace { return &Trace{} }

// Record appends an event. kv holds alternating keys and values; a trailing
// key without a value is recorded as nil.
func (t *Trace) Record(event string, kv ...any) {
	if t == nil {
		return
	}
	e := Event{"event": event}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		var val any
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		e[key] = val
	}
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

// Events returns a copy of the recorded events in order.
func (t *Trace) Events() []Event {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Enabled reports whether t records events.
func (t *Trace) Enabled() bool { return t != nil }
