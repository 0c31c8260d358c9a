package service

import (
	"context"
	"sync"
)

// sequenceQueue runs functions one at a time per chat target, in arrival
// order, so the lines of two reply sequences never interleave.
type sequenceQueue struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newSequenceQueue() *sequenceQueue {
	return &sequenceQueue{tails: map[string]chan struct{}{}}
}

func (q *sequenceQueue) Run(ctx context.Context, targetID string, fn func(context.Context) error) error {
	q.mu.Lock()
	previous := q.tails[targetID]
	done := make(chan struct{})
	q.tails[targetID] = done
	q.mu.Unlock()

	defer func() {
		close(done)
		q.mu.Lock()
		if q.tails[targetID] == done {
			delete(q.tails, targetID)
		}
		q.mu.Unlock()
	}()

	if previous != nil {
		select {
		case <-previous:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fn(ctx)
}

func (q *sequenceQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tails)
}
