package queue

import (
	"errors"

	"github.com/google/uuid"
)

// Payload is the typed parameter set for one job type. Each workflow
// stage defines its own variant and validates its required fields at
// construction rather than deep inside the handler body.
type Payload interface {
	Kind() Type
	Validate() error
}

// DownloadPayload drives an import-download job.
type DownloadPayload struct {
	VideoID   uuid.UUID
	YoutubeID string
}

func (p DownloadPayload) Kind() Type { return TypeImportDownload }

func (p DownloadPayload) Validate() error {
	if p.VideoID == uuid.Nil {
		return errors.New("queue: download payload requires video id")
	}
	if p.YoutubeID == "" {
		return errors.New("queue: download payload requires youtube id")
	}
	return nil
}

// OrganizePayload drives an import-organize job. TempPath is the file
// the download stage left behind.
type OrganizePayload struct {
	VideoID  uuid.UUID
	TempPath string
}

func (p OrganizePayload) Kind() Type { return TypeImportOrganize }

func (p OrganizePayload) Validate() error {
	if p.VideoID == uuid.Nil {
		return errors.New("queue: organize payload requires video id")
	}
	if p.TempPath == "" {
		return errors.New("queue: organize payload requires temp path")
	}
	return nil
}

// NFOPayload drives an import-nfo job.
type NFOPayload struct {
	VideoID uuid.UUID
}

func (p NFOPayload) Kind() Type { return TypeImportNFO }

func (p NFOPayload) Validate() error {
	if p.VideoID == uuid.Nil {
		return errors.New("queue: nfo payload requires video id")
	}
	return nil
}

// EnrichPayload drives a metadata-enrich job.
type EnrichPayload struct {
	VideoID uuid.UUID
}

func (p EnrichPayload) Kind() Type { return TypeMetadataEnrich }

func (p EnrichPayload) Validate() error {
	if p.VideoID == uuid.Nil {
		return errors.New("queue: enrich payload requires video id")
	}
	return nil
}

// BackupPayload drives a backup job.
type BackupPayload struct {
	TargetDir string
}

func (p BackupPayload) Kind() Type { return TypeBackup }

func (p BackupPayload) Validate() error {
	if p.TargetDir == "" {
		return errors.New("queue: backup payload requires target dir")
	}
	return nil
}
