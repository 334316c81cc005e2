// Package contract defines the boundaries between the chat core and the
// transport front ends. A front end never reaches into the core's state; it
// implements EventSink for push delivery and reads history through the
// repositories for snapshot delivery.
package contract

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"

	"nojschat/domain"
	"nojschat/domain/event"
)

// EventSink is the push half of the protocol adapter boundary. Consume must
// return once the event is queued for the connection, or fail within the
// deadline carried by ctx. A sink that cannot keep up is dropped by the
// broadcaster rather than allowed to block the publisher.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

type WorkerName string

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need for
// manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// IRegistry tracks currently connected sessions and resolves handle
// collisions. ListActive returns a snapshot that may be immediately stale.
type IRegistry interface {
	Join(transport domain.Transport, handle string) (*domain.Session, error)
	Leave(sessionID uuid.UUID) bool
	Rename(sessionID uuid.UUID, handle string) (*domain.Session, error)
	Get(sessionID uuid.UUID) (*domain.Session, bool)
	ListActive() []*domain.Session
}

// IBroadcaster accepts newly authored messages, persists them in sequence
// order, and fans them out to every subscribed session.
type IBroadcaster interface {
	Publish(ctx context.Context, sessionID uuid.UUID, content string) (domain.Message, error)
	Subscribe(sessionID uuid.UUID, sink EventSink) error
	Unsubscribe(sessionID uuid.UUID)
	Announce(e event.DomainEvent)
	WaitSince(ctx context.Context, seq uint64, timeout time.Duration) bool
}
