package workflow

import (
	"context"
	"fmt"

	"github.com/asotbz/fuzzbin/internal/domain"
	"github.com/asotbz/fuzzbin/internal/nfo"
	"github.com/asotbz/fuzzbin/internal/queue"
)

// WriteNFO is the final import stage: write the musicvideo.nfo sidecar
// next to the placed file and mark the video ready.
func (h *Handlers) WriteNFO(ctx context.Context, job *queue.Job) (queue.Payload, error) {
	p, ok := job.Payload().(queue.NFOPayload)
	if !ok {
		return nil, badPayload(job)
	}
	video, err := h.videos.Get(ctx, p.VideoID)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", err)
	}
	if video.LibraryPath == "" {
		return nil, h.stageFailure(ctx, video.ID, domain.VideoStatusNFOFailed,
			fmt.Errorf("video %s has no library path", video.ID))
	}
	artist, err := h.artists.Get(ctx, video.ArtistID)
	if err != nil {
		return nil, fmt.Errorf("load artist: %w", err)
	}

	_ = job.UpdateProgress(1, 2, "writing sidecar")
	if job.CancelRequested() {
		return nil, nil
	}
	sidecar := nfo.SidecarPath(video.LibraryPath)
	doc := &nfo.MusicVideo{
		Title:    video.Title,
		Artist:   artist.Name,
		Year:     video.Year,
		Director: video.Directors,
		Source:   video.YoutubeID,
		IMVDbID:  video.IMVDbID,
	}
	if err := nfo.Write(sidecar, doc); err != nil {
		return nil, h.stageFailure(ctx, video.ID, domain.VideoStatusNFOFailed, err)
	}

	_ = job.UpdateProgress(2, 2, "marking video ready")
	if err := h.videos.UpdateStatus(ctx, video.ID, domain.VideoStatusReady); err != nil {
		return nil, h.stageFailure(ctx, video.ID, domain.VideoStatusNFOFailed, fmt.Errorf("mark ready: %w", err))
	}
	return nil, job.SetResult(map[string]any{"nfo_path": sidecar})
}
