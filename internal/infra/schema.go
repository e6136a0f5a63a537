package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements is the idempotent DDL applied at startup. The upsert
// in the artist repository relies on the expression index on
// lower(name).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS artists (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS artists_name_lower_idx ON artists (lower(name))`,
	`CREATE TABLE IF NOT EXISTS videos (
	id UUID PRIMARY KEY,
	artist_id UUID NOT NULL REFERENCES artists(id),
	title TEXT NOT NULL,
	youtube_id TEXT NOT NULL,
	imvdb_id INT NOT NULL DEFAULT 0,
	year INT NOT NULL DEFAULT 0,
	directors TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	temp_path TEXT NOT NULL DEFAULT '',
	library_path TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS videos_youtube_idx ON videos (youtube_id)`,
}

// EnsureSchema applies the catalog schema. Every statement is safe to
// re-run, so startup is the only migration step this service needs.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
