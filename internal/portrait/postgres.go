package portrait

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/crateguide/crateguide/pkg/models"
)

// PostgresStore persists portraits in the portraits table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed portrait store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, portraitID string) (*models.Portrait, error) {
	query := `
	SELECT id, user_id, primary_genres, geographic_centers, key_eras, noteworthy_gaps, summary, created_at
	FROM portraits
	WHERE id = $1
	`

	var p models.Portrait
	err := s.db.QueryRowContext(ctx, query, portraitID).Scan(
		&p.ID, &p.UserID,
		pq.Array(&p.PrimaryGenres), pq.Array(&p.GeographicCenters),
		pq.Array(&p.KeyEras), pq.Array(&p.NoteworthyGaps),
		&p.Summary, &p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get portrait: %w", err)
	}

	p.Normalize()
	return &p, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, portrait *models.Portrait) error {
	query := `
	INSERT INTO portraits (id, user_id, primary_genres, geographic_centers, key_eras, noteworthy_gaps, summary, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	ON CONFLICT (id) DO UPDATE SET
		primary_genres = EXCLUDED.primary_genres,
		geographic_centers = EXCLUDED.geographic_centers,
		key_eras = EXCLUDED.key_eras,
		noteworthy_gaps = EXCLUDED.noteworthy_gaps,
		summary = EXCLUDED.summary
	`

	_, err := s.db.ExecContext(ctx, query,
		portrait.ID, portrait.UserID,
		pq.Array(portrait.PrimaryGenres), pq.Array(portrait.GeographicCenters),
		pq.Array(portrait.KeyEras), pq.Array(portrait.NoteworthyGaps),
		portrait.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to store portrait: %w", err)
	}
	return nil
}
