package workflow

import (
	"context"
	"fmt"
	"os"

	"github.com/asotbz/fuzzbin/internal/domain"
	"github.com/asotbz/fuzzbin/internal/queue"
)

// Download is the first import stage: probe the source, fetch the file
// into the temp directory, then chain the organize stage. On
// cancellation it removes its own partial download and puts the video
// back to wanted so a later import can resume from scratch.
func (h *Handlers) Download(ctx context.Context, job *queue.Job) (queue.Payload, error) {
	p, ok := job.Payload().(queue.DownloadPayload)
	if !ok {
		return nil, badPayload(job)
	}
	video, err := h.videos.Get(ctx, p.VideoID)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", err)
	}
	if err := h.videos.UpdateStatus(ctx, video.ID, domain.VideoStatusDownloading); err != nil {
		return nil, fmt.Errorf("mark downloading: %w", err)
	}

	_ = job.UpdateProgress(1, 4, "probing source metadata")
	meta, err := h.downloader.Probe(ctx, p.YoutubeID)
	if err != nil {
		if job.CancelRequested() {
			h.setStatus(ctx, video.ID, domain.VideoStatusWanted)
			return nil, nil
		}
		return nil, h.stageFailure(ctx, video.ID, domain.VideoStatusDownloadFailed, fmt.Errorf("probe source: %w", err))
	}
	if video.Title == "" {
		video.Title = meta.Title
	}

	// Last cheap exit before the expensive, externally-visible work.
	if job.CancelRequested() {
		h.setStatus(ctx, video.ID, domain.VideoStatusWanted)
		return nil, nil
	}

	_ = job.UpdateProgress(2, 4, "downloading video file")
	tempPath, err := h.downloader.Download(ctx, p.YoutubeID, h.tempDir)
	if job.CancelRequested() {
		if tempPath != "" {
			if rmErr := os.Remove(tempPath); rmErr != nil && !os.IsNotExist(rmErr) {
				h.logger.Warn().Err(rmErr).Str("path", tempPath).Msg("workflow: failed to remove partial download")
			}
		}
		h.setStatus(ctx, video.ID, domain.VideoStatusWanted)
		return nil, nil
	}
	if err != nil {
		return nil, h.stageFailure(ctx, video.ID, domain.VideoStatusDownloadFailed, fmt.Errorf("download: %w", err))
	}

	_ = job.UpdateProgress(3, 4, "recording download")
	video.Status = domain.VideoStatusDownloaded
	video.TempPath = tempPath
	if err := h.videos.Update(ctx, video); err != nil {
		return nil, h.stageFailure(ctx, video.ID, domain.VideoStatusDownloadFailed, fmt.Errorf("record download: %w", err))
	}

	_ = job.UpdateProgress(4, 4, "queueing organize stage")
	if err := job.SetResult(map[string]any{"temp_path": tempPath}); err != nil {
		return nil, err
	}
	return queue.OrganizePayload{VideoID: video.ID, TempPath: tempPath}, nil
}
