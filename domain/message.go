// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event. Seq is the global sequence
// number: strictly increasing, gapless within a process run, and assigned
// atomically with the durable commit. It defines the total order used both
// for persistence and for broadcast.
type Message struct {
	ID        uuid.UUID
	Seq       uint64
	Author    string
	Content   string
	CreatedAt time.Time
}
