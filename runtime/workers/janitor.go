package workers

import (
	"context"
	"log/slog"
	"time"

	"nojschat/contract"
	"nojschat/domain"
)

// JanitorWorker expires abandoned HTTP sessions. Polling clients have no
// connection whose drop could trigger teardown, so a session that stops
// touching the server past idleTTL is closed and its handle freed.
type JanitorWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	onExpire func(session *domain.Session)
	idleTTL  time.Duration
	interval time.Duration
}

func NewJanitorWorker(log *slog.Logger, registry contract.IRegistry,
	onExpire func(session *domain.Session), idleTTL, interval time.Duration) *JanitorWorker {
	return &JanitorWorker{
		log:      log,
		registry: registry,
		onExpire: onExpire,
		idleTTL:  idleTTL,
		interval: interval,
	}
}

func (w *JanitorWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *JanitorWorker) sweep() {
	cutoff := time.Now().Add(-w.idleTTL)
	for _, session := range w.registry.ListActive() {
		// SSH sessions tear down with their connection.
		if session.Transport != domain.TransportHTTP {
			continue
		}
		if session.IdleSince().After(cutoff) {
			continue
		}
		if w.registry.Leave(session.ID) {
			w.log.Info("expired idle session",
				"session_id", session.ID,
				"handle", session.Identity().Handle)
			if w.onExpire != nil {
				w.onExpire(session)
			}
		}
	}
}
