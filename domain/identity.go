// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is a chat participant as recorded in storage. It is created on
// the first successful join with a given handle and never mutated afterwards.
// A returning visitor presenting the same handle reattaches to it.
type Identity struct {
	ID        uuid.UUID
	Handle    string
	CreatedAt time.Time
}

// NormalizeHandle lowers and trims a handle. Uniqueness checks, both in the
// registry and in storage keys, operate on the normalized form.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
