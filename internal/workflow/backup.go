package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/asotbz/fuzzbin/internal/nfo"
	"github.com/asotbz/fuzzbin/internal/queue"
	"github.com/asotbz/fuzzbin/internal/storage"
	"github.com/asotbz/fuzzbin/pkg/zip"
)

// Backup exports a zip archive of the catalog: a JSON snapshot of every
// video plus the NFO sidecars of the ones already placed in the library.
// The media files themselves are deliberately not archived, the sidecars
// and snapshot are enough to rebuild the catalog.
func (h *Handlers) Backup(ctx context.Context, job *queue.Job) (queue.Payload, error) {
	p, ok := job.Payload().(queue.BackupPayload)
	if !ok {
		return nil, badPayload(job)
	}
	store, err := storage.NewFileStore(p.TargetDir)
	if err != nil {
		return nil, err
	}

	_ = job.UpdateProgress(1, 3, "collecting catalog")
	videos, err := h.videos.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	snapshot, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	entries := []zip.Entry{{Name: "videos.json", Data: snapshot}}
	for _, v := range videos {
		if v.LibraryPath == "" {
			continue
		}
		sidecar := nfo.SidecarPath(v.LibraryPath)
		data, err := os.ReadFile(sidecar)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read sidecar %s: %w", sidecar, err)
		}
		entries = append(entries, zip.Entry{Name: "nfo/" + v.ID.String() + ".nfo", Data: data})
	}
	if job.CancelRequested() {
		return nil, nil
	}

	_ = job.UpdateProgress(2, 3, "building archive")
	archive, err := zip.Build(entries)
	if err != nil {
		return nil, err
	}

	_ = job.UpdateProgress(3, 3, "writing archive")
	name := fmt.Sprintf("fuzzbin-backup-%s.zip", time.Now().UTC().Format("20060102-150405"))
	path, err := store.Write(ctx, name, archive)
	if err != nil {
		return nil, err
	}
	h.logger.Info().Str("path", path).Int("videos", len(videos)).Msg("workflow: backup written")
	return nil, job.SetResult(map[string]any{"archive_path": path, "videos": len(videos)})
}
