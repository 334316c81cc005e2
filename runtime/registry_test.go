package runtime

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"nojschat/domain"
	"nojschat/errors"
)

// memIdentities is an in-memory stand-in for the badger-backed repository.
type memIdentities struct {
	byHandle map[string]domain.Identity
}

func newMemIdentities() *memIdentities {
	return &memIdentities{byHandle: make(map[string]domain.Identity)}
}

func (m *memIdentities) Create(handle string) (domain.Identity, error) {
	norm := domain.NormalizeHandle(handle)
	if _, ok := m.byHandle[norm]; ok {
		return domain.Identity{}, errors.ErrDuplicateHandle
	}
	identity := domain.Identity{ID: uuid.New(), Handle: handle, CreatedAt: time.Now().UTC()}
	m.byHandle[norm] = identity
	return identity, nil
}

func (m *memIdentities) Find(handle string) (*domain.Identity, error) {
	if identity, ok := m.byHandle[domain.NormalizeHandle(handle)]; ok {
		return &identity, nil
	}
	return nil, nil
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.Default(), newMemIdentities())
}

func TestRegistry_Join_CreatesSessionAndIdentity(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()

	session, err := registry.Join(domain.TransportSSH, "alice")
	req.NoError(err)
	req.Equal("alice", session.Identity().Handle)
	req.Equal(domain.StateJoined, session.State())

	got, ok := registry.Get(session.ID)
	req.True(ok)
	req.Equal(session, got)
	req.Len(registry.ListActive(), 1)
}

func TestRegistry_GetByHandle(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()

	session, err := registry.Join(domain.TransportHTTP, "Alice")
	req.NoError(err)

	got, ok := registry.GetByHandle("alice")
	req.True(ok)
	req.Equal(session.ID, got.ID)

	registry.Leave(session.ID)
	_, ok = registry.GetByHandle("alice")
	req.False(ok)
}

func TestRegistry_Join_RejectsActiveHandleCaseInsensitive(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()

	_, err := registry.Join(domain.TransportSSH, "Alice")
	req.NoError(err)

	_, err = registry.Join(domain.TransportHTTP, "alice")
	req.ErrorIs(err, errors.ErrDuplicateHandle)
}

func TestRegistry_Join_ReattachesIdentityAfterLeave(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()

	first, err := registry.Join(domain.TransportSSH, "alice")
	req.NoError(err)

	// A second concurrent join with the active handle is rejected.
	_, err = registry.Join(domain.TransportHTTP, "alice")
	req.ErrorIs(err, errors.ErrDuplicateHandle)

	// After the first connection leaves, the handle joins again and
	// reattaches to the same stored identity.
	registry.Leave(first.ID)
	second, err := registry.Join(domain.TransportHTTP, "alice")
	req.NoError(err)
	req.Equal(first.Identity().ID, second.Identity().ID)
	req.NotEqual(first.ID, second.ID)
}

func TestRegistry_Join_RejectsInvalidHandles(t *testing.T) {
	registry := newTestRegistry()

	for _, handle := range []string{"", "   ", "two words", "ctrl\x01char", "/slash",
		"waaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaay-too-long"} {
		_, err := registry.Join(domain.TransportSSH, handle)
		require.ErrorIs(t, err, errors.ErrInvalidHandle, "handle %q", handle)
	}
}

func TestRegistry_Leave_IsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()

	session, err := registry.Join(domain.TransportSSH, "alice")
	req.NoError(err)

	// Network drop followed by explicit leave changes state exactly once.
	req.True(registry.Leave(session.ID))
	req.False(registry.Leave(session.ID))
	req.False(registry.Leave(uuid.New()))

	req.True(session.Closed())
	req.Empty(registry.ListActive())
}

func TestRegistry_Rename_SwapsHandleBinding(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()

	session, err := registry.Join(domain.TransportSSH, "alice")
	req.NoError(err)
	other, err := registry.Join(domain.TransportSSH, "bob")
	req.NoError(err)

	// Renaming onto an active handle is a collision.
	_, err = registry.Rename(session.ID, "Bob")
	req.ErrorIs(err, errors.ErrDuplicateHandle)

	renamed, err := registry.Rename(session.ID, "carol")
	req.NoError(err)
	req.Equal("carol", renamed.Identity().Handle)

	// The old handle is free again.
	registry.Leave(other.ID)
	_, err = registry.Join(domain.TransportHTTP, "alice")
	req.NoError(err)
}
