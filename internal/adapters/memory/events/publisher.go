package events

import (
	"context"
	"sync"

	"github.com/groupventure/booking-api/internal/ports/out/events"
)

// Publisher is an in-memory events.Publisher that records everything it is
// handed. It backs tests and broker-less deployments.
// It is safe for concurrent use.
type Publisher struct {
	mu        sync.Mutex
	published []events.BookingEvent
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(ctx context.Context, ev events.BookingEvent) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, ev)
	return nil
}

// Published returns a copy of every event published so far.
func (p *Publisher) Published() []events.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.BookingEvent(nil), p.published...)
}
