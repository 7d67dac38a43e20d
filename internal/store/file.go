package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/healthdesk/assistant/internal/model/chat"
)

// FileStore persists each session transcript as a human-readable JSON
// array of [role, text] pairs, one file per session. Every write replaces
// the whole file via a temp file and rename.
type FileStore struct {
	dir string
}

// NewFileStore creates the transcript directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// WriteAll replaces the stored transcript for the session.
func (s *FileStore) WriteAll(_ context.Context, sessionID string, turns []chat.Turn) error {
	pairs := make([][2]string, 0, len(turns))
	for _, turn := range turns {
		pairs = append(pairs, [2]string{string(turn.Role), turn.Text})
	}

	data, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	tmp := s.path(sessionID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return os.Rename(tmp, s.path(sessionID))
}

// ReadAll loads the stored transcript. A missing file is an empty
// transcript, not an error.
func (s *FileStore) ReadAll(_ context.Context, sessionID string) ([]chat.Turn, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return decodeTurns(data)
}

func decodeTurns(data []byte) ([]chat.Turn, error) {
	var pairs [][]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTranscript, err)
	}

	turns := make([]chat.Turn, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: record %d has %d fields, want 2", ErrMalformedTranscript, i, len(pair))
		}
		// Older history files capitalized the role names.
		role := chat.Role(strings.ToLower(pair[0]))
		if !role.Valid() {
			return nil, fmt.Errorf("%w: record %d has unknown role %q", ErrMalformedTranscript, i, pair[0])
		}
		turns = append(turns, chat.Turn{Role: role, Text: pair[1]})
	}
	return turns, nil
}
