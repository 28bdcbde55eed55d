package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/crateguide/crateguide/pkg/models"
)

// PostgresStore persists conversations in the conversations table with
// the transcript serialized as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Conversation, error) {
	var (
		conv       Conversation
		transcript []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, portrait_id, user_id, state, transcript, question_count, version, created_at, updated_at
		FROM conversations
		WHERE id = $1`, id).Scan(
		&conv.ID, &conv.PortraitID, &conv.UserID, &conv.State,
		&transcript, &conv.QuestionCount, &conv.Version,
		&conv.CreatedAt, &conv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	if !conv.State.Valid() {
		return nil, fmt.Errorf("conversation %s has unknown state %q", id, conv.State)
	}

	if err := json.Unmarshal(transcript, &conv.Transcript); err != nil {
		return nil, fmt.Errorf("failed to decode transcript for %s: %w", id, err)
	}
	if conv.Transcript == nil {
		conv.Transcript = []models.Message{}
	}
	return &conv, nil
}

func (s *PostgresStore) Put(ctx context.Context, conv *Conversation) error {
	transcript, err := json.Marshal(conv.Transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	// The WHERE clause on the upsert enforces the optimistic version
	// check: a stale writer matches zero rows.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, portrait_id, user_id, state, transcript, question_count, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7 + 1, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			transcript = EXCLUDED.transcript,
			question_count = EXCLUDED.question_count,
			version = conversations.version + 1,
			updated_at = EXCLUDED.updated_at
		WHERE conversations.version = $7`,
		conv.ID, conv.PortraitID, conv.UserID, conv.State,
		transcript, conv.QuestionCount, conv.Version,
		conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store conversation %s: %w", conv.ID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check conversation write: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	conv.Version++
	return nil
}
