package repo

import (
	"context"
	"sync"
)

// Feed is a live query over an ordered result set. Every change publishes a
// full snapshot; a reader that falls behind only sees the latest one, so
// snapshots are never applied out of order.
type Feed[T any] struct {
	ch     chan T
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	err    error
}

// NewFeed creates a feed bound to ctx. Cancelling ctx closes the feed.
func NewFeed[T any](ctx context.Context) *Feed[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Feed[T]{
		ch:     make(chan T, 1),
		ctx:    ctx,
		cancel: cancel,
	}

	go func() {
		<-ctx.Done()
		f.Close()
	}()

	return f
}

// Updates returns the snapshot channel. It is closed when the feed ends.
func (f *Feed[T]) Updates() <-chan T {
	return f.ch
}

// Context is done once the feed is closed. Producers stop on it.
func (f *Feed[T]) Context() context.Context {
	return f.ctx
}

// Publish replaces any unread snapshot with v. Returns false once closed.
func (f *Feed[T]) Publish(v T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}

	select {
	case <-f.ch:
	default:
	}
	f.ch <- v
	return true
}

// Fail ends the feed with err. The reader observes it through Err after
// the channel closes.
func (f *Feed[T]) Fail(err error) {
	f.mu.Lock()
	if !f.closed {
		f.err = err
	}
	f.mu.Unlock()
	f.Close()
}

// Close unsubscribes. No snapshot is published afterwards.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
	f.cancel()
}

// Err returns the error the feed failed with, if any.
func (f *Feed[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
