// Package workflow implements the multi-stage import pipeline as chained
// background jobs: download, organize into the library layout, write the
// NFO sidecar. Each stage is its own job so a failure at stage N keeps
// the completed work of stages 1..N-1, visible through a stage-specific
// video status, and retryable in isolation.
package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/asotbz/fuzzbin/internal/domain"
	"github.com/asotbz/fuzzbin/internal/infra"
	"github.com/asotbz/fuzzbin/internal/providers/imvdb"
	"github.com/asotbz/fuzzbin/internal/providers/ytdlp"
	"github.com/asotbz/fuzzbin/internal/queue"
	"github.com/asotbz/fuzzbin/internal/storage"
)

// MetadataSearcher is the slice of the IMVDb client the enrich stage needs.
type MetadataSearcher interface {
	SearchVideos(ctx context.Context, artist, title string) ([]imvdb.Video, error)
}

// VideoDownloader is the slice of the yt-dlp wrapper the download stage needs.
type VideoDownloader interface {
	Probe(ctx context.Context, youtubeID string) (*ytdlp.Metadata, error)
	Download(ctx context.Context, youtubeID, destDir string) (string, error)
}

// Config wires the collaborators every stage shares.
type Config struct {
	Videos     domain.VideoRepository
	Artists    domain.ArtistRepository
	Library    *storage.Library
	Searcher   MetadataSearcher
	Downloader VideoDownloader
	TempDir    string
	Logger     infra.Logger
}

// Handlers holds the per-stage job handlers.
type Handlers struct {
	videos     domain.VideoRepository
	artists    domain.ArtistRepository
	library    *storage.Library
	searcher   MetadataSearcher
	downloader VideoDownloader
	tempDir    string
	logger     infra.Logger
}

// New builds the stage handlers.
func New(cfg Config) *Handlers {
	return &Handlers{
		videos:     cfg.Videos,
		artists:    cfg.Artists,
		library:    cfg.Library,
		searcher:   cfg.Searcher,
		downloader: cfg.Downloader,
		tempDir:    cfg.TempDir,
		logger:     cfg.Logger,
	}
}

// Register binds every stage to its job type.
func (h *Handlers) Register(q *queue.Queue) {
	q.RegisterHandler(queue.TypeImportDownload, h.Download)
	q.RegisterHandler(queue.TypeImportOrganize, h.Organize)
	q.RegisterHandler(queue.TypeImportNFO, h.WriteNFO)
	q.RegisterHandler(queue.TypeMetadataEnrich, h.Enrich)
	q.RegisterHandler(queue.TypeBackup, h.Backup)
}

// stageFailure records a stage-specific failure status on the video and
// passes the cause through as the job failure. The status write uses a
// detached context so it survives job cancellation and deadlines.
func (h *Handlers) stageFailure(ctx context.Context, videoID uuid.UUID, status domain.VideoStatus, cause error) error {
	if err := h.videos.UpdateStatus(context.WithoutCancel(ctx), videoID, status); err != nil {
		h.logger.Error().Err(err).
			Str("video_id", videoID.String()).
			Str("status", string(status)).
			Msg("workflow: failed to record stage failure")
	}
	return cause
}

// setStatus writes a video status on a detached context, for cleanup
// paths that run after the job context was cancelled.
func (h *Handlers) setStatus(ctx context.Context, videoID uuid.UUID, status domain.VideoStatus) {
	if err := h.videos.UpdateStatus(context.WithoutCancel(ctx), videoID, status); err != nil {
		h.logger.Error().Err(err).
			Str("video_id", videoID.String()).
			Str("status", string(status)).
			Msg("workflow: failed to update video status")
	}
}

func badPayload(job *queue.Job) error {
	return fmt.Errorf("workflow: job %s carries unexpected payload %T", job.ID(), job.Payload())
}
