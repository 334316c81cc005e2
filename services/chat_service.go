// Package services exposes the chat core to the front ends as one facade.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"nojschat/contract"
	"nojschat/domain"
	"nojschat/domain/event"
	"nojschat/repositories"
	"nojschat/runtime"
)

type IChatService interface {
	Join(transport domain.Transport, handle string) (*domain.Session, error)
	Leave(sessionID uuid.UUID)
	Rename(sessionID uuid.UUID, handle string) (*domain.Session, error)
	Session(sessionID uuid.UUID) (*domain.Session, bool)
	SessionByHandle(handle string) (*domain.Session, bool)
	Active() []*domain.Session

	Post(ctx context.Context, sessionID uuid.UUID, content string) (domain.Message, error)
	Subscribe(sessionID uuid.UUID, sink contract.EventSink) error
	Unsubscribe(sessionID uuid.UUID)

	History(limit int) ([]domain.Message, error)
	Poll(ctx context.Context, since uint64, limit int, timeout time.Duration) ([]domain.Message, error)
	LastSeq() (uint64, error)
}

type ChatService struct {
	registry    *runtime.Registry
	broadcaster *runtime.Broadcaster
	messages    repositories.IMessageRepository
}

func NewChatService(registry *runtime.Registry, broadcaster *runtime.Broadcaster,
	messages repositories.IMessageRepository) *ChatService {
	return &ChatService{
		registry:    registry,
		broadcaster: broadcaster,
		messages:    messages,
	}
}

// Join creates a session for the handle and announces the arrival to live
// subscribers.
func (s *ChatService) Join(transport domain.Transport, handle string) (*domain.Session, error) {
	session, err := s.registry.Join(transport, handle)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Announce(event.ParticipantJoined{
		Handle: session.Identity().Handle,
		At:     time.Now().UTC(),
	})
	return session, nil
}

// Leave tears down the session's registry entry and subscriber slot. Safe to
// call from any teardown path, any number of times; the departure is
// announced only for the call that actually closed the session.
func (s *ChatService) Leave(sessionID uuid.UUID) {
	session, ok := s.registry.Get(sessionID)
	s.broadcaster.Unsubscribe(sessionID)
	if !s.registry.Leave(sessionID) {
		return
	}
	if ok {
		s.broadcaster.Announce(event.ParticipantLeft{
			Handle: session.Identity().Handle,
			At:     time.Now().UTC(),
		})
	}
}

func (s *ChatService) Rename(sessionID uuid.UUID, handle string) (*domain.Session, error) {
	return s.registry.Rename(sessionID, handle)
}

func (s *ChatService) Session(sessionID uuid.UUID) (*domain.Session, bool) {
	return s.registry.Get(sessionID)
}

func (s *ChatService) SessionByHandle(handle string) (*domain.Session, bool) {
	return s.registry.GetByHandle(handle)
}

func (s *ChatService) Active() []*domain.Session {
	return s.registry.ListActive()
}

func (s *ChatService) Post(ctx context.Context, sessionID uuid.UUID, content string) (domain.Message, error) {
	return s.broadcaster.Publish(ctx, sessionID, content)
}

func (s *ChatService) Subscribe(sessionID uuid.UUID, sink contract.EventSink) error {
	return s.broadcaster.Subscribe(sessionID, sink)
}

func (s *ChatService) Unsubscribe(sessionID uuid.UUID) {
	s.broadcaster.Unsubscribe(sessionID)
}

// History returns the newest limit messages in chronological order.
func (s *ChatService) History(limit int) ([]domain.Message, error) {
	return s.messages.Recent(limit)
}

// Poll is the long-poll path: it waits, bounded by timeout, for a message
// with a sequence above since, then reads whatever has arrived. An empty
// slice after the timeout is a normal outcome, never an error.
func (s *ChatService) Poll(ctx context.Context, since uint64, limit int, timeout time.Duration) ([]domain.Message, error) {
	if !s.broadcaster.WaitSince(ctx, since, timeout) {
		return []domain.Message{}, nil
	}
	return s.messages.Since(since, limit)
}

func (s *ChatService) LastSeq() (uint64, error) {
	return s.messages.LastSeq()
}
