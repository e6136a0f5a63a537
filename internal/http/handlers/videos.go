package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/asotbz/fuzzbin/internal/domain"
	"github.com/asotbz/fuzzbin/internal/queue"
)

type importVideoRequest struct {
	Artist    string `json:"artist"`
	Title     string `json:"title"`
	YoutubeID string `json:"youtube_id"`
}

type videoResponse struct {
	ID          uuid.UUID `json:"id"`
	ArtistID    uuid.UUID `json:"artist_id"`
	Artist      string    `json:"artist,omitempty"`
	Title       string    `json:"title"`
	YoutubeID   string    `json:"youtube_id"`
	IMVDbID     int       `json:"imvdb_id,omitempty"`
	Year        int       `json:"year,omitempty"`
	Directors   string    `json:"directors,omitempty"`
	Status      string    `json:"status"`
	LibraryPath string    `json:"library_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toVideoResponse(v *domain.Video, artistName string) videoResponse {
	return videoResponse{
		ID:          v.ID,
		ArtistID:    v.ArtistID,
		Artist:      artistName,
		Title:       v.Title,
		YoutubeID:   v.YoutubeID,
		IMVDbID:     v.IMVDbID,
		Year:        v.Year,
		Directors:   v.Directors,
		Status:      string(v.Status),
		LibraryPath: v.LibraryPath,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

// ImportVideo registers a wanted video and queues the download stage of
// the import pipeline. The response carries both the video and the head
// job of the chain.
func (a *App) ImportVideo(w http.ResponseWriter, r *http.Request) {
	var req importVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Artist = strings.TrimSpace(req.Artist)
	req.Title = strings.TrimSpace(req.Title)
	req.YoutubeID = strings.TrimSpace(req.YoutubeID)
	if req.Artist == "" || req.Title == "" || req.YoutubeID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "artist, title and youtube_id are required")
		return
	}

	artist, err := a.Artists.GetOrCreate(r.Context(), req.Artist)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to resolve artist")
		return
	}
	video := &domain.Video{
		ID:        uuid.New(),
		ArtistID:  artist.ID,
		Title:     req.Title,
		YoutubeID: req.YoutubeID,
		Status:    domain.VideoStatusWanted,
	}
	if err := a.Videos.Create(r.Context(), video); err != nil {
		if errors.Is(err, domain.ErrDuplicateVideo) {
			a.error(w, http.StatusConflict, "conflict", "video already in the library")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to create video")
		return
	}

	job, err := queue.NewJob(queue.DownloadPayload{VideoID: video.ID, YoutubeID: video.YoutubeID})
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build import job")
		return
	}
	jobID, err := a.Queue.Submit(job)
	if err != nil {
		a.Logger.Error().Err(err).Str("video_id", video.ID.String()).Msg("http: import submission rejected")
		a.error(w, http.StatusServiceUnavailable, "unavailable", "import queue is not accepting jobs")
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"video":  toVideoResponse(video, artist.Name),
		"job_id": jobID,
	})
}

func (a *App) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := a.Videos.List(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list videos")
		return
	}
	names := make(map[uuid.UUID]string)
	items := make([]videoResponse, 0, len(videos))
	for i := range videos {
		items = append(items, toVideoResponse(&videos[i], a.artistName(r, videos[i].ArtistID, names)))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid video id")
		return
	}
	video, err := a.Videos.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "video not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load video")
		return
	}
	a.json(w, http.StatusOK, toVideoResponse(video, a.artistName(r, video.ArtistID, nil)))
}

// artistName resolves an artist id for display, best effort. The cache
// map may be nil; a lookup failure just leaves the field empty.
func (a *App) artistName(r *http.Request, id uuid.UUID, cache map[uuid.UUID]string) string {
	if cache != nil {
		if name, ok := cache[id]; ok {
			return name
		}
	}
	artist, err := a.Artists.Get(r.Context(), id)
	if err != nil {
		return ""
	}
	if cache != nil {
		cache[id] = artist.Name
	}
	return artist.Name
}

// EnrichVideo queues a metadata-enrich job for an existing video.
func (a *App) EnrichVideo(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid video id")
		return
	}
	if _, err := a.Videos.Get(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "video not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load video")
		return
	}
	job, err := queue.NewJob(queue.EnrichPayload{VideoID: id})
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build enrich job")
		return
	}
	jobID, err := a.Queue.Submit(job)
	if err != nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "queue is not accepting jobs")
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"job_id": jobID})
}
