package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"nojschat/contract"
	"nojschat/domain"
	"nojschat/domain/event"
	"nojschat/errors"
	"nojschat/moderation"
	"nojschat/repositories"
)

// Broadcaster is the central hub: it validates and moderates newly authored
// messages, persists them (which assigns the sequence number), and fans them
// out to every subscribed session.
//
// A dedicated publish mutex covers persistence and fan-out together, so all
// subscribers observe messages in the one global sequence order. Fan-out to
// an individual sink is bounded by the delivery timeout; a sink that cannot
// keep up is dropped and its session closed, isolating slow consumers from
// the publisher and from each other.
type Broadcaster struct {
	pub sync.Mutex // serializes publish: sequence assignment + fan-out

	mu   sync.RWMutex // guards subs
	subs map[uuid.UUID]contract.EventSink

	log             *slog.Logger
	registry        *Registry
	messages        repositories.IMessageRepository
	moderator       *moderation.Moderator
	waiter          *Waiter
	deliveryTimeout time.Duration
	maxContentLen   int
}

func NewBroadcaster(log *slog.Logger, registry *Registry,
	messages repositories.IMessageRepository, moderator *moderation.Moderator,
	waiter *Waiter, deliveryTimeout time.Duration, maxContentLen int) *Broadcaster {
	return &Broadcaster{
		subs:            make(map[uuid.UUID]contract.EventSink),
		log:             log,
		registry:        registry,
		messages:        messages,
		moderator:       moderator,
		waiter:          waiter,
		deliveryTimeout: deliveryTimeout,
		maxContentLen:   maxContentLen,
	}
}

// Prime seeds the waiter with the last durable sequence so long-polls issued
// right after a restart compare against the persisted high-water mark.
func (b *Broadcaster) Prime() error {
	last, err := b.messages.LastSeq()
	if err != nil {
		return err
	}
	b.waiter.Advance(last)
	return nil
}

// Publish validates, persists, and fans out one message. On a storage fault
// nothing is broadcast and the caller is told the message was not sent.
func (b *Broadcaster) Publish(ctx context.Context, sessionID uuid.UUID, content string) (domain.Message, error) {
	session, ok := b.registry.Get(sessionID)
	if !ok {
		return domain.Message{}, errors.ErrUnknownSession
	}
	if session.Closed() {
		return domain.Message{}, errors.ErrSessionClosed
	}
	if err := domain.ValidateContent(content, b.maxContentLen); err != nil {
		return domain.Message{}, err
	}
	session.Touch()

	clean := content
	if b.moderator != nil {
		clean = b.moderator.Censor(content)
	}

	b.pub.Lock()
	defer b.pub.Unlock()

	message, err := b.messages.Append(session.Identity().Handle, clean)
	if err != nil {
		return domain.Message{}, err
	}

	b.fanout(ctx, event.MessagePosted{Message: message})
	b.waiter.Advance(message.Seq)
	return message, nil
}

// Subscribe registers the push sink for a session. The first subscription
// moves the session from Joined to Active.
func (b *Broadcaster) Subscribe(sessionID uuid.UUID, sink contract.EventSink) error {
	session, ok := b.registry.Get(sessionID)
	if !ok {
		return errors.ErrUnknownSession
	}
	if session.Closed() {
		return errors.ErrSessionClosed
	}

	b.mu.Lock()
	b.subs[sessionID] = sink
	b.mu.Unlock()

	session.Activate()
	return nil
}

// Unsubscribe releases the subscriber slot. Idempotent.
func (b *Broadcaster) Unsubscribe(sessionID uuid.UUID) {
	b.mu.Lock()
	delete(b.subs, sessionID)
	b.mu.Unlock()
}

// Announce fans out a presence event without persisting it. Best effort.
func (b *Broadcaster) Announce(e event.DomainEvent) {
	b.pub.Lock()
	defer b.pub.Unlock()
	b.fanout(context.Background(), e)
}

// WaitSince blocks until a message with a sequence above seq exists, the
// timeout lapses, or ctx is done.
func (b *Broadcaster) WaitSince(ctx context.Context, seq uint64, timeout time.Duration) bool {
	return b.waiter.Wait(ctx, seq, timeout)
}

// fanout delivers one event to a consistent snapshot of current subscribers.
// Runs under the publish mutex; a subscriber added mid-fan-out sees only
// later events, one removed mid-fan-out is skipped by its sink having been
// closed by its owner.
func (b *Broadcaster) fanout(ctx context.Context, e event.DomainEvent) {
	b.mu.RLock()
	targets := make(map[uuid.UUID]contract.EventSink, len(b.subs))
	for id, sink := range b.subs {
		targets[id] = sink
	}
	b.mu.RUnlock()

	var saturated []uuid.UUID
	for id, sink := range targets {
		deliverCtx, cancel := context.WithTimeout(ctx, b.deliveryTimeout)
		err := sink.Consume(deliverCtx, e)
		cancel()
		if err != nil {
			saturated = append(saturated, id)
			continue
		}
		if posted, ok := e.(event.MessagePosted); ok {
			if session, found := b.registry.Get(id); found {
				session.ObserveSeq(posted.Message.Seq)
			}
		}
	}

	// Isolation over completeness: a saturated subscriber loses its
	// connection instead of stalling everyone else.
	for _, id := range saturated {
		b.log.Warn("subscriber queue saturated, dropping session", "session_id", id)
		b.Unsubscribe(id)
		b.registry.Leave(id)
	}
}
