package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "embed"

	"github.com/healthdesk/assistant/internal/model/chat"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore keeps transcripts in a turns table keyed by session ID.
// WriteAll replaces the stored sequence inside one transaction so a
// concurrent ReadAll always observes a consistent transcript.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore applies the embedded schema and wraps the connection.
// The caller owns the *sql.DB lifecycle.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to apply transcript schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// WriteAll replaces the stored transcript for the session.
func (s *PostgresStore) WriteAll(ctx context.Context, sessionID string, turns []chat.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transcript write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transcript_turns WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	for i, turn := range turns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transcript_turns (session_id, seq, role, content, created_at)
             VALUES ($1, $2, $3, $4, $5)`,
			sessionID, i, string(turn.Role), turn.Text, turn.CreatedAt.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReadAll loads the stored transcript in insertion order.
func (s *PostgresStore) ReadAll(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at
         FROM transcript_turns
         WHERE session_id = $1
         ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var (
			role      string
			content   string
			createdAt time.Time
		)
		if err := rows.Scan(&role, &content, &createdAt); err != nil {
			return nil, err
		}
		r := chat.Role(role)
		if !r.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrMalformedTranscript, role)
		}
		turns = append(turns, chat.Turn{Role: r, Text: content, CreatedAt: createdAt})
	}
	return turns, rows.Err()
}
