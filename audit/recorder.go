package audit

import (
	"sync"

	"github.com/rony4d/go-veledger/inter"
)

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []inter.Event
}

// Emit implements ledger.Emitter.
func (r *Recorder) Emit(ev inter.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []inter.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]inter.Event(nil), r.events...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
