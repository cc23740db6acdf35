package sequence

import (
	"sync"

	"github.com/goliatone/go-formsequence/pkg/fetch"
)

// Lifecycle event names.
const (
	EventStart   = "start"
	EventDone    = "done"
	EventSuccess = "success"
	EventError   = "error"
	EventReturn  = "return"
	// EventClose is emitted when Close abandons a sequence that was loading
	// or showing remote content.
	EventClose = "close"
)

// Event is a lifecycle notification. Payload is an error for error, a
// ReturnPayload for return, and nil otherwise.
type Event struct {
	Name       string
	Controller *Controller
	Payload    any
}

// Err returns the payload of an error event.
func (e Event) Err() error {
	err, _ := e.Payload.(error)
	return err
}

// ReturnPayload is carried by the return event.
type ReturnPayload struct {
	Response *fetch.Response
	URL      string
}

// Handler receives lifecycle events.
type Handler func(Event)

type subscription struct {
	id   uint64
	name string
	fn   Handler
}

type emitter struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

func (e *emitter) on(name string, fn Handler) func() {
	if fn == nil {
		return func() {}
	}
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription{id: id, name: name, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, sub := range e.subs {
				if sub.id == id {
					e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	subs := append([]subscription(nil), e.subs...)
	e.mu.Unlock()

	for _, sub := range subs {
		if sub.name == "" || sub.name == ev.Name {
			sub.fn(ev)
		}
	}
}
