package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asotbz/fuzzbin/internal/domain"
)

// ArtistRepositoryPG implements domain.ArtistRepository.
type ArtistRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewArtistRepository creates a new artist repository backed by PostgreSQL.
func NewArtistRepository(pool *pgxpool.Pool) *ArtistRepositoryPG {
	return &ArtistRepositoryPG{pool: pool}
}

// Get fetches an artist by its identifier.
func (r *ArtistRepositoryPG) Get(ctx context.Context, id uuid.UUID) (*domain.Artist, error) {
	query := `
SELECT id, name, created_at
FROM artists
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var a domain.Artist
	if err := row.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetOrCreate returns the artist with the given name, inserting it when
// absent. The upsert keys on the case-insensitive unique index on name,
// so concurrent imports of the same artist converge on one row.
func (r *ArtistRepositoryPG) GetOrCreate(ctx context.Context, name string) (*domain.Artist, error) {
	query := `
INSERT INTO artists (id, name)
VALUES ($1, $2)
ON CONFLICT (lower(name)) DO UPDATE SET name = artists.name
RETURNING id, name, created_at;
`
	row := r.pool.QueryRow(ctx, query, uuid.New(), name)
	var a domain.Artist
	if err := row.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
