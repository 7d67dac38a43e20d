package store

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/healthdesk/assistant/internal/model/chat"
)

// Transcript is the append-only ordered turn log for one session. Turns
// are immutable once appended and are never reordered.
type Transcript struct {
	mu    sync.RWMutex
	turns []chat.Turn
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{turns: make([]chat.Turn, 0, 16)}
}

// Append inserts a turn at the end and returns it. Content is never
// rejected.
func (t *Transcript) Append(role chat.Role, text string) chat.Turn {
	turn := chat.Turn{Role: role, Text: text, CreatedAt: time.Now().UTC()}
	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
	return turn
}

// Len reports the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Recent returns the last n turns in original order. n = 0 yields an empty
// slice; n beyond the transcript length yields the whole transcript.
func (t *Transcript) Recent(n int) []chat.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n > len(t.turns) {
		n = len(t.turns)
	}
	out := make([]chat.Turn, n)
	copy(out, t.turns[len(t.turns)-n:])
	return out
}

// Snapshot returns a copy of all turns in insertion order.
func (t *Transcript) Snapshot() []chat.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]chat.Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// All returns a restartable iterator over a snapshot of the transcript in
// insertion order. Appends made after the call are not observed.
func (t *Transcript) All() iter.Seq[chat.Turn] {
	snapshot := t.Snapshot()
	return func(yield func(chat.Turn) bool) {
		for _, turn := range snapshot {
			if !yield(turn) {
				return
			}
		}
	}
}

// Persist writes the full transcript to the sink.
func (t *Transcript) Persist(ctx context.Context, sessionID string, sink Sink) error {
	return sink.WriteAll(ctx, sessionID, t.Snapshot())
}

// Restore replaces the in-memory turns with the stored sequence. On any
// error the prior turns are left untouched.
func (t *Transcript) Restore(ctx context.Context, sessionID string, source Source) error {
	turns, err := source.ReadAll(ctx, sessionID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.turns = turns
	t.mu.Unlock()
	return nil
}
