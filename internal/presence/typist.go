package presence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultQuietInterval is how long after the last keystroke the flag drops.
const DefaultQuietInterval = 1750 * time.Millisecond

// Typist is the writer side of one user's typing flag in one conversation.
// A keystroke raises the flag and re-arms a quiet timer; when the timer
// fires the flag is cleared.
type Typist struct {
	tracker        *Tracker
	userID         string
	conversationID string
	quiet          time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	typing bool
	closed bool

	// writeMu orders tracker writes; written is the last flag stored
	writeMu sync.Mutex
	written bool
}

func NewTypist(tracker *Tracker, userID, conversationID string, quiet time.Duration) *Typist {
	if quiet <= 0 {
		quiet = DefaultQuietInterval
	}
	return &Typist{
		tracker:        tracker,
		userID:         userID,
		conversationID: conversationID,
		quiet:          quiet,
	}
}

// Keystroke raises the flag if needed and pushes the quiet deadline out.
func (t *Typist) Keystroke(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	raise := !t.typing
	t.typing = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.quiet, t.expire)
	t.mu.Unlock()

	if raise {
		t.flush(ctx)
	}
}

// Set writes the flag directly, for callers that track keystrokes themselves.
func (t *Typist) Set(ctx context.Context, typing bool) {
	if typing {
		t.Keystroke(ctx)
		return
	}
	t.clear(ctx)
}

// Stop clears the flag and disarms the timer. Later keystrokes are ignored.
func (t *Typist) Stop(ctx context.Context) {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.clear(ctx)
}

func (t *Typist) expire() {
	t.clear(context.Background())
}

func (t *Typist) clear(ctx context.Context) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	wasTyping := t.typing
	t.typing = false
	t.mu.Unlock()

	if wasTyping {
		t.flush(ctx)
	}
}

// flush stores the flag as it is now, not as it was when the caller changed
// it, so a slow raise can never land after the clear that followed it.
func (t *Typist) flush(ctx context.Context) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	typing := t.typing
	t.mu.Unlock()
	if typing == t.written {
		return
	}

	if err := t.tracker.SetTyping(ctx, t.userID, t.conversationID, typing); err != nil {
		t.tracker.logger.Debug("typing write dropped",
			zap.String("conversation_id", t.conversationID),
			zap.Bool("typing", typing),
		)
		return
	}
	t.written = typing
}
