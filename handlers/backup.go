package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"reelnight/models"
	"reelnight/services/library"
)

type backupService interface {
	ExportBackup() (models.Backup, string)
	Restore(backup models.Backup) error
}

var _ backupService = (*library.Service)(nil)

type BackupHandler struct {
	Service backupService
}

func NewBackupHandler(service backupService) *BackupHandler {
	return &BackupHandler{Service: service}
}

// Export streams the whole library as a JSON download with a timestamped
// filename.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	backup, filename := h.Service.ExportBackup()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(backup)
}

type importResponse struct {
	Movies     int `json:"movies"`
	Challenges int `json:"challenges"`
}

// Import replaces the library with an uploaded snapshot. Both the export
// object shape and a bare entry array are accepted.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	backup, err := library.ParseBackup(data)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, library.ErrInvalidBackup) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	if err := h.Service.Restore(backup); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(importResponse{
		Movies:     len(backup.Movies),
		Challenges: len(backup.Challenges),
	})
}

func (h *BackupHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
