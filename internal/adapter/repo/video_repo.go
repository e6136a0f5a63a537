package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asotbz/fuzzbin/internal/domain"
)

// VideoRepositoryPG implements domain.VideoRepository.
type VideoRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a new video repository backed by PostgreSQL.
func NewVideoRepository(pool *pgxpool.Pool) *VideoRepositoryPG {
	return &VideoRepositoryPG{pool: pool}
}

// Create inserts a new video record.
func (r *VideoRepositoryPG) Create(ctx context.Context, video *domain.Video) error {
	query := `
INSERT INTO videos (id, artist_id, title, youtube_id, imvdb_id, year, directors, status, temp_path, library_path)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	_, err := r.pool.Exec(ctx, query,
		video.ID,
		video.ArtistID,
		video.Title,
		video.YoutubeID,
		video.IMVDbID,
		video.Year,
		video.Directors,
		video.Status,
		video.TempPath,
		video.LibraryPath,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateVideo
	}
	return err
}

// Get fetches a video by its identifier.
func (r *VideoRepositoryPG) Get(ctx context.Context, id uuid.UUID) (*domain.Video, error) {
	query := `
SELECT id, artist_id, title, youtube_id, imvdb_id, year, directors, status, temp_path, library_path, created_at, updated_at
FROM videos
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	return scanVideo(row)
}

// Update rewrites the mutable columns of a video.
func (r *VideoRepositoryPG) Update(ctx context.Context, video *domain.Video) error {
	query := `
UPDATE videos
SET title = $2,
    imvdb_id = $3,
    year = $4,
    directors = $5,
    status = $6,
    temp_path = $7,
    library_path = $8,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query,
		video.ID,
		video.Title,
		video.IMVDbID,
		video.Year,
		video.Directors,
		video.Status,
		video.TempPath,
		video.LibraryPath,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus updates only the pipeline status column.
func (r *VideoRepositoryPG) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.VideoStatus) error {
	query := `
UPDATE videos
SET status = $2,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all videos, newest first.
func (r *VideoRepositoryPG) List(ctx context.Context) ([]domain.Video, error) {
	query := `
SELECT id, artist_id, title, youtube_id, imvdb_id, year, directors, status, temp_path, library_path, created_at, updated_at
FROM videos
ORDER BY created_at DESC;
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

func scanVideo(row pgx.Row) (*domain.Video, error) {
	var v domain.Video
	if err := row.Scan(
		&v.ID,
		&v.ArtistID,
		&v.Title,
		&v.YoutubeID,
		&v.IMVDbID,
		&v.Year,
		&v.Directors,
		&v.Status,
		&v.TempPath,
		&v.LibraryPath,
		&v.CreatedAt,
		&v.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// isUniqueViolation reports a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
