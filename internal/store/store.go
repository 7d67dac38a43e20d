package store

import (
	"context"
	"errors"

	"github.com/healthdesk/assistant/internal/model/chat"
)

// ErrMalformedTranscript reports stored data that cannot be decoded into an
// ordered list of turns. Restores never partially apply.
var ErrMalformedTranscript = errors.New("malformed stored transcript")

// Sink receives the full ordered turn sequence of one session. Writes are
// whole-transcript replace, not append-in-place.
type Sink interface {
	WriteAll(ctx context.Context, sessionID string, turns []chat.Turn) error
}

// Source yields the previously persisted turn sequence for a session. A
// session with no stored transcript yields an empty slice, not an error.
type Source interface {
	ReadAll(ctx context.Context, sessionID string) ([]chat.Turn, error)
}

// Store combines both directions of transcript durability.
type Store interface {
	Sink
	Source
}
