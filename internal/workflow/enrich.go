package workflow

import (
	"context"
	"fmt"

	"github.com/asotbz/fuzzbin/internal/queue"
)

// Enrich looks the video up on IMVDb and folds the best match into the
// stored record. A miss is not a failure, the job completes with
// matched=false and the video is left untouched.
func (h *Handlers) Enrich(ctx context.Context, job *queue.Job) (queue.Payload, error) {
	p, ok := job.Payload().(queue.EnrichPayload)
	if !ok {
		return nil, badPayload(job)
	}
	video, err := h.videos.Get(ctx, p.VideoID)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", err)
	}
	artist, err := h.artists.Get(ctx, video.ArtistID)
	if err != nil {
		return nil, fmt.Errorf("load artist: %w", err)
	}

	_ = job.UpdateProgress(1, 2, "searching imvdb")
	results, err := h.searcher.SearchVideos(ctx, artist.Name, video.Title)
	if err != nil {
		return nil, fmt.Errorf("search imvdb: %w", err)
	}
	if len(results) == 0 {
		h.logger.Info().
			Str("video_id", video.ID.String()).
			Str("artist", artist.Name).
			Str("title", video.Title).
			Msg("workflow: no imvdb match")
		return nil, job.SetResult(map[string]any{"matched": false})
	}
	if job.CancelRequested() {
		return nil, nil
	}

	_ = job.UpdateProgress(2, 2, "applying metadata")
	best := results[0]
	video.IMVDbID = best.ID
	if best.Year != 0 {
		video.Year = best.Year
	}
	if best.Directors != "" {
		video.Directors = best.Directors
	}
	if err := h.videos.Update(ctx, video); err != nil {
		return nil, fmt.Errorf("apply metadata: %w", err)
	}
	return nil, job.SetResult(map[string]any{"matched": true, "imvdb_id": best.ID})
}
