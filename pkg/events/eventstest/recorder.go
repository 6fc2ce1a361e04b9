// Package eventstest records published events for assertions.
package eventstest

import (
	"context"
	"sync"

	"query-responder-be/pkg/events"
)

type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

var _ events.Publisher = &Recorder{}

func (r *Recorder) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// OfType returns recorded events with the given type, oldest first.
func (r *Recorder) OfType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}
