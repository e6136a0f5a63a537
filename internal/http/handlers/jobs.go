package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/asotbz/fuzzbin/internal/queue"
)

func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": a.Queue.List()})
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}
	snap, err := a.Queue.Get(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, snap)
}

// CancelJob requests best-effort cancellation. A job that already
// reached a terminal state cannot be cancelled any more.
func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}
	switch err := a.Queue.Cancel(id); {
	case err == nil:
		a.json(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
	case errors.Is(err, queue.ErrJobNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
	case errors.Is(err, queue.ErrJobFinished):
		a.error(w, http.StatusConflict, "conflict", "job already finished")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "failed to cancel job")
	}
}

type backupRequest struct {
	TargetDir string `json:"target_dir"`
}

// CreateBackup queues a catalog backup. The archive lands in the
// configured backup directory unless the request names another one.
func (a *App) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	target := strings.TrimSpace(req.TargetDir)
	if target == "" {
		target = a.BackupDir
	}
	if target == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "no backup target configured")
		return
	}
	job, err := queue.NewJob(queue.BackupPayload{TargetDir: target})
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	jobID, err := a.Queue.Submit(job)
	if err != nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "queue is not accepting jobs")
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"job_id": jobID})
}
