package workflow

import (
	"context"
	"fmt"

	"github.com/asotbz/fuzzbin/internal/domain"
	"github.com/asotbz/fuzzbin/internal/queue"
)

// Organize moves a downloaded temp file into the library layout and
// chains the NFO stage. Cancellation before the move leaves the temp
// file in place and the video in downloaded, so a new organize job can
// pick it up without re-downloading.
func (h *Handlers) Organize(ctx context.Context, job *queue.Job) (queue.Payload, error) {
	p, ok := job.Payload().(queue.OrganizePayload)
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
	if err := h.videos.UpdateStatus(ctx, video.ID, domain.VideoStatusOrganizing); err != nil {
		return nil, fmt.Errorf("mark organizing: %w", err)
	}

	_ = job.UpdateProgress(1, 3, "computing library path")
	if job.CancelRequested() {
		h.setStatus(ctx, video.ID, domain.VideoStatusDownloaded)
		return nil, nil
	}

	_ = job.UpdateProgress(2, 3, "moving file into library")
	// The move commits this stage; a cancellation arriving after this
	// point is observed too late and the file stays placed.
	dest, err := h.library.Place(p.TempPath, artist.Name, video.Title)
	if err != nil {
		return nil, h.stageFailure(ctx, video.ID, domain.VideoStatusOrganizeFailed, fmt.Errorf("place file: %w", err))
	}

	video.Status = domain.VideoStatusOrganized
	video.LibraryPath = dest
	video.TempPath = ""
	if err := h.videos.Update(ctx, video); err != nil {
		return nil, h.stageFailure(ctx, video.ID, domain.VideoStatusOrganizeFailed, fmt.Errorf("record library path: %w", err))
	}

	_ = job.UpdateProgress(3, 3, "queueing nfo stage")
	if err := job.SetResult(map[string]any{"library_path": dest}); err != nil {
		return nil, err
	}
	return queue.NFOPayload{VideoID: video.ID}, nil
}
