package domain

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus tracks a video through the import pipeline. Each workflow
// stage has its own failure status so an operator can see exactly where
// a multi-step import stopped, and retry it without replaying the stages
// that already finished.
type VideoStatus string

const (
	VideoStatusWanted         VideoStatus = "wanted"
	VideoStatusDownloading    VideoStatus = "downloading"
	VideoStatusDownloadFailed VideoStatus = "download_failed"
	VideoStatusDownloaded     VideoStatus = "downloaded"
	VideoStatusOrganizing     VideoStatus = "organizing"
	VideoStatusOrganizeFailed VideoStatus = "organize_failed"
	VideoStatusOrganized      VideoStatus = "organized"
	VideoStatusNFOFailed      VideoStatus = "nfo_failed"
	VideoStatusReady          VideoStatus = "ready"
)

// Video is one music video in the library.
type Video struct {
	ID          uuid.UUID
	ArtistID    uuid.UUID
	Title       string
	YoutubeID   string
	IMVDbID     int
	Year        int
	Directors   string
	Status      VideoStatus
	TempPath    string
	LibraryPath string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Artist is a music-video performer.
type Artist struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}
