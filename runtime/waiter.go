package runtime

import (
	"context"
	"sync"
	"time"
)

// Waiter is the shared bounded-wait primitive behind HTTP long-poll and any
// other "block until the sequence advances, but never indefinitely" need.
// Advance closes the current generation channel, waking every waiter at once.
type Waiter struct {
	mu  sync.Mutex
	seq uint64
	ch  chan struct{}
}

func NewWaiter() *Waiter {
	return &Waiter{ch: make(chan struct{})}
}

// Advance publishes a new high-water sequence. Regressions are ignored.
func (w *Waiter) Advance(seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq <= w.seq {
		return
	}
	w.seq = seq
	close(w.ch)
	w.ch = make(chan struct{})
}

// Seq returns the current high-water mark.
func (w *Waiter) Seq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

// Wait blocks until the sequence exceeds since, the timeout lapses, or ctx is
// done. Reports whether new data is available.
func (w *Waiter) Wait(ctx context.Context, since uint64, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		w.mu.Lock()
		current, generation := w.seq, w.ch
		w.mu.Unlock()

		if current > since {
			return true
		}
		select {
		case <-generation:
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
