package eventbus

import (
	"context"
	"sync"

	"github.com/fast-shipment/matching-api/internal/ports/out/eventbus"
)

// Recorder is an in-memory eventbus.Publisher that keeps every published
// event. It backs tests and the default (no-broker) runtime configuration.
type Recorder struct {
	mu     sync.Mutex
	events []eventbus.MatchEvent
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(ctx context.Context, ev eventbus.MatchEvent) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a snapshot of everything published so far.
func (r *Recorder) Events() []eventbus.MatchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]eventbus.MatchEvent(nil), r.events...)
}
