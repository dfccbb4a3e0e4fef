// Package memory holds process-local implementations of the repo
// interfaces. They back the "memory" store driver and the tests.
package memory

import (
	"Campus/internal/repo"
	"time"
)

type options struct {
	now func() time.Time
}

// Option configures an in-memory repository.
type Option func(*options)

// WithClock replaces the server clock used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// subscribers fans snapshots out to the feeds open on a key. Callers hold
// the owning repository's lock, which keeps snapshots in order per feed.
type subscribers[T any] map[string][]*repo.Feed[T]

func (s subscribers[T]) add(key string, feed *repo.Feed[T]) {
	s[key] = append(s[key], feed)
}

// publish delivers v to every live feed on key and drops closed ones.
func (s subscribers[T]) publish(key string, v T) {
	feeds := s[key]
	live := feeds[:0]
	for _, f := range feeds {
		if f.Publish(v) {
			live = append(live, f)
		}
	}
	if len(live) == 0 {
		delete(s, key)
		return
	}
	s[key] = live
}
