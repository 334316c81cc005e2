package workers

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"nojschat/domain"
)

// fakeRegistry is the minimal registry surface the janitor sweeps over.
type fakeRegistry struct {
	sessions []*domain.Session
	left     []uuid.UUID
}

func (f *fakeRegistry) Join(domain.Transport, string) (*domain.Session, error) {
	panic("not used")
}

func (f *fakeRegistry) Rename(uuid.UUID, string) (*domain.Session, error) {
	panic("not used")
}

func (f *fakeRegistry) Get(id uuid.UUID) (*domain.Session, bool) {
	for _, s := range f.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

func (f *fakeRegistry) Leave(id uuid.UUID) bool {
	session, ok := f.Get(id)
	if !ok {
		return false
	}
	f.left = append(f.left, id)
	return session.Close()
}

func (f *fakeRegistry) ListActive() []*domain.Session {
	return f.sessions
}

func newIdleSession(transport domain.Transport, handle string, idle time.Duration) *domain.Session {
	session := domain.NewSession(transport, domain.Identity{
		ID:        uuid.New(),
		Handle:    handle,
		CreatedAt: time.Now(),
	})
	if idle > 0 {
		session.TouchAt(time.Now().Add(-idle))
	}
	return session
}

func TestJanitor_ExpiresIdleHTTPSessions(t *testing.T) {
	req := require.New(t)

	idle := newIdleSession(domain.TransportHTTP, "alice", time.Hour)
	fresh := newIdleSession(domain.TransportHTTP, "bob", 0)
	registry := &fakeRegistry{sessions: []*domain.Session{idle, fresh}}

	var expired []uuid.UUID
	janitor := NewJanitorWorker(slog.Default(), registry,
		func(s *domain.Session) { expired = append(expired, s.ID) },
		10*time.Minute, time.Minute)

	janitor.sweep()

	req.Equal([]uuid.UUID{idle.ID}, registry.left)
	req.Equal([]uuid.UUID{idle.ID}, expired)
	req.True(idle.Closed())
	req.False(fresh.Closed())
}

func TestJanitor_IgnoresSSHSessions(t *testing.T) {
	req := require.New(t)

	// SSH sessions tear down with their connection, however idle.
	stale := newIdleSession(domain.TransportSSH, "carol", time.Hour)
	registry := &fakeRegistry{sessions: []*domain.Session{stale}}

	janitor := NewJanitorWorker(slog.Default(), registry, nil,
		10*time.Minute, time.Minute)
	janitor.sweep()

	req.Empty(registry.left)
	req.False(stale.Closed())
}
