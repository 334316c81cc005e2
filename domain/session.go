package domain

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Transport identifies which front end a session arrived on.
type Transport string

const (
	TransportHTTP Transport = "http"
	TransportSSH  Transport = "ssh"
)

// SessionState is the lifecycle of one connected participant.
// Connecting -> Joined -> Active -> Closed. Closed is terminal.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateJoined
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one logical connected participant on one transport, bound to an
// Identity. A session owns no messages; it only observes them. State, the
// identity binding, and the activity clock are atomics because the registry,
// the broadcaster, and the owning connection goroutine all touch them; a
// rename swaps the identity while publishes read it.
type Session struct {
	ID        uuid.UUID
	Transport Transport
	JoinedAt  time.Time

	identity   atomic.Pointer[Identity]
	state      atomic.Int32
	lastSeq    atomic.Uint64
	lastActive atomic.Int64 // unix nanoseconds
}

func NewSession(transport Transport, identity Identity) *Session {
	s := &Session{
		ID:        uuid.New(),
		Transport: transport,
		JoinedAt:  time.Now().UTC(),
	}
	s.identity.Store(&identity)
	s.state.Store(int32(StateJoined))
	s.Touch()
	return s
}

// Identity returns the current identity binding. Never torn: a concurrent
// rename swaps the whole value.
func (s *Session) Identity() Identity {
	return *s.identity.Load()
}

// SetIdentity rebinds the session. Only the registry calls this, under its
// lock, so handle bookkeeping stays consistent with the binding.
func (s *Session) SetIdentity(identity Identity) {
	s.identity.Store(&identity)
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Activate moves a Joined session to Active on its first successful
// subscription. Reports whether the transition happened.
func (s *Session) Activate() bool {
	return s.state.CompareAndSwap(int32(StateJoined), int32(StateActive))
}

// Close is terminal and idempotent. Reports whether this call performed the
// transition, so teardown side effects run exactly once.
func (s *Session) Close() bool {
	for {
		cur := s.state.Load()
		if SessionState(cur) == StateClosed {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(StateClosed)) {
			return true
		}
	}
}

func (s *Session) Closed() bool {
	return s.State() == StateClosed
}

// LastSeq is the highest sequence number delivered to this session.
func (s *Session) LastSeq() uint64 {
	return s.lastSeq.Load()
}

// ObserveSeq records a delivered sequence number, keeping the high-water mark.
func (s *Session) ObserveSeq(seq uint64) {
	for {
		cur := s.lastSeq.Load()
		if seq <= cur || s.lastSeq.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// Touch refreshes the activity clock. Polling clients have no connection to
// drop, so the registry janitor uses this to expire abandoned sessions.
func (s *Session) Touch() {
	s.TouchAt(time.Now())
}

func (s *Session) TouchAt(at time.Time) {
	s.lastActive.Store(at.UnixNano())
}

func (s *Session) IdleSince() time.Time {
	return time.Unix(0, s.lastActive.Load())
}
