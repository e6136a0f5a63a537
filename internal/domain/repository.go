package domain

import (
	"context"

	"github.com/google/uuid"
)

// VideoRepository defines persistence for video entities. Implementations
// may fail on any call; workflow handlers surface such failures as job
// failures.
type VideoRepository interface {
	Create(ctx context.Context, video *Video) error
	Get(ctx context.Context, id uuid.UUID) (*Video, error)
	Update(ctx context.Context, video *Video) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status VideoStatus) error
	List(ctx context.Context) ([]Video, error)
}

// ArtistRepository defines persistence for artists.
type ArtistRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Artist, error)
	GetOrCreate(ctx context.Context, name string) (*Artist, error)
}
