// Package event defines the notifications the broadcaster fans out to
// subscribed sessions.
package event

import (
	"time"

	"nojschat/domain"
)

type DomainEvent interface {
	OccurredAt() time.Time
}

// MessagePosted carries one durably committed message. Delivery to active
// subscribers follows sequence order with no duplication and no gap.
type MessagePosted struct {
	Message domain.Message
}

func (e MessagePosted) OccurredAt() time.Time {
	return e.Message.CreatedAt
}

// ParticipantJoined and ParticipantLeft are presence notifications. They are
// not persisted and their delivery is best effort.
type ParticipantJoined struct {
	Handle string
	At     time.Time
}

func (e ParticipantJoined) OccurredAt() time.Time { return e.At }

type ParticipantLeft struct {
	Handle string
	At     time.Time
}

func (e ParticipantLeft) OccurredAt() time.Time { return e.At }
