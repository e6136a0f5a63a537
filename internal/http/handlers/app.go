package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/asotbz/fuzzbin/internal/domain"
	"github.com/asotbz/fuzzbin/internal/infra"
	"github.com/asotbz/fuzzbin/internal/queue"
)

// App bundles the dependencies the HTTP handlers share.
type App struct {
	Queue     *queue.Queue
	Videos    domain.VideoRepository
	Artists   domain.ArtistRepository
	BackupDir string
	Logger    infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
