// Package sink provides the per-session event queue implementing the push
// half of the protocol adapter boundary.
package sink

import (
	"context"

	"nojschat/domain/event"
)

// SessionSink is a bounded queue between the broadcaster and one connection.
// The owning front end drains Events; the broadcaster feeds it via Consume.
type SessionSink struct {
	Events chan event.DomainEvent
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume queues one event for the connection. It blocks no longer than the
// deadline carried by ctx: when the queue stays saturated past it, the error
// tells the broadcaster to drop this subscriber instead of stalling the
// publisher.
func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
