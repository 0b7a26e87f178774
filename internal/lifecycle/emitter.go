// Package lifecycle delivers host environment signals (page unload, user
// activity) to the tracking client.
//
// The host feeds signals into an Emitter; components subscribe through the
// Source interface. Once builds the one-shot subscription used for humanity
// promotion: subscribe to several events and, on the first firing of any,
// drop every subscription and run the callback exactly once.
package lifecycle

import "sync"

// Environment signals understood by the tracking client
const (
	BeforeUnload = "beforeunload"
)

// HumanEvents are the activity signals that prove a human is present
var HumanEvents = []string{
	"scroll",
	"resize",
	"touchmove",
	"mouseover",
	"mousemove",
	"keydown",
	"keypress",
	"keyup",
	"focus",
}

// Source registers handlers for named events
type Source interface {
	// On registers fn for event and returns a function that removes it
	On(event string, fn func()) (off func())
}

type handler struct {
	id uint64
	fn func()
}

// Emitter is an in-process Source fed by the host
type Emitter struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]handler
}

// NewEmitter creates an emitter with no handlers
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]handler)}
}

// On registers fn for event
func (e *Emitter) On(event string, fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.handlers[event] = append(e.handlers[event], handler{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.off(event, id) })
	}
}

// Emit runs the handlers registered for event, in registration order.
// Handlers run outside the emitter lock and may unsubscribe themselves.
func (e *Emitter) Emit(event string) {
	e.mu.Lock()
	handlers := make([]handler, len(e.handlers[event]))
	copy(handlers, e.handlers[event])
	e.mu.Unlock()

	for _, h := range handlers {
		h.fn()
	}
}

// Count returns the number of handlers registered for event
func (e *Emitter) Count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}

func (e *Emitter) off(event string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	hs := e.handlers[event]
	for i, h := range hs {
		if h.id == id {
			e.handlers[event] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(e.handlers[event]) == 0 {
		delete(e.handlers, event)
	}
}
