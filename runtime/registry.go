// Package runtime hosts the protocol-agnostic core: the session registry,
// the message broadcaster, and the bounded-wait primitive shared by both
// front ends. It contains no transport logic.
package runtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"nojschat/domain"
	"nojschat/errors"
	"nojschat/repositories"
)

// Registry is the single owner of live session state. Every connected
// participant, regardless of transport, is registered here exactly once.
type Registry struct {
	mu         sync.RWMutex
	log        *slog.Logger
	identities repositories.IIdentityRepository
	sessions   map[uuid.UUID]*domain.Session
	byHandle   map[string]uuid.UUID // normalized handle -> active session
}

func NewRegistry(log *slog.Logger, identities repositories.IIdentityRepository) *Registry {
	return &Registry{
		log:        log,
		identities: identities,
		sessions:   make(map[uuid.UUID]*domain.Session),
		byHandle:   make(map[string]uuid.UUID),
	}
}

// Join binds a handle to a new session. A handle held by a currently active
// session is rejected; a handle seen in a previous visit reattaches to the
// stored identity. This is how returning users are recognized without
// authentication.
func (r *Registry) Join(transport domain.Transport, handle string) (*domain.Session, error) {
	if err := domain.ValidateHandle(handle); err != nil {
		return nil, err
	}
	norm := domain.NormalizeHandle(handle)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byHandle[norm]; taken {
		return nil, errors.ErrDuplicateHandle
	}

	identity, err := r.findOrCreateIdentity(handle)
	if err != nil {
		return nil, err
	}

	session := domain.NewSession(transport, identity)
	r.sessions[session.ID] = session
	r.byHandle[norm] = session.ID

	r.log.Info("session joined",
		"session_id", session.ID,
		"handle", identity.Handle,
		"transport", transport)
	return session, nil
}

// Rename rebinds an active session to a new handle, keeping the session
// alive. The new handle follows the same collision policy as Join.
func (r *Registry) Rename(sessionID uuid.UUID, handle string) (*domain.Session, error) {
	if err := domain.ValidateHandle(handle); err != nil {
		return nil, err
	}
	norm := domain.NormalizeHandle(handle)

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, errors.ErrUnknownSession
	}
	if session.Closed() {
		return nil, errors.ErrSessionClosed
	}

	oldNorm := domain.NormalizeHandle(session.Identity().Handle)
	if norm == oldNorm {
		return session, nil
	}
	if _, taken := r.byHandle[norm]; taken {
		return nil, errors.ErrDuplicateHandle
	}

	identity, err := r.findOrCreateIdentity(handle)
	if err != nil {
		return nil, err
	}

	session.SetIdentity(identity)
	delete(r.byHandle, oldNorm)
	r.byHandle[norm] = session.ID

	r.log.Info("session renamed",
		"session_id", session.ID,
		"handle", identity.Handle)
	return session, nil
}

// Leave closes a session and frees its handle. Idempotent: unknown ids and
// repeated calls are no-ops. Reports whether this call closed the session.
func (r *Registry) Leave(sessionID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return false
	}

	closed := session.Close()
	delete(r.sessions, sessionID)

	norm := domain.NormalizeHandle(session.Identity().Handle)
	if owner, ok := r.byHandle[norm]; ok && owner == sessionID {
		delete(r.byHandle, norm)
	}

	if closed {
		r.log.Info("session left",
			"session_id", sessionID,
			"handle", session.Identity().Handle,
			"transport", session.Transport)
	}
	return closed
}

func (r *Registry) Get(sessionID uuid.UUID) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	return session, ok
}

// GetByHandle resolves the active session holding a handle, if any. Lookup is
// case-insensitive like the collision check.
func (r *Registry) GetByHandle(handle string) (*domain.Session, bool) {
	norm := domain.NormalizeHandle(handle)

	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byHandle[norm]
	if !ok {
		return nil, false
	}
	session, ok := r.sessions[id]
	return session, ok
}

// ListActive returns a snapshot of live sessions. It may be immediately
// stale; consumers must tolerate that.
func (r *Registry) ListActive() []*domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*domain.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		active = append(active, session)
	}
	return active
}

// CloseAll tears down every live session, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.sessions {
		session.Close()
		delete(r.sessions, id)
	}
	r.byHandle = make(map[string]uuid.UUID)
}

// findOrCreateIdentity must run under the registry lock so a join and a
// rename cannot race on first-time identity creation.
func (r *Registry) findOrCreateIdentity(handle string) (domain.Identity, error) {
	existing, err := r.identities.Find(handle)
	if err != nil {
		return domain.Identity{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	return r.identities.Create(handle)
}
