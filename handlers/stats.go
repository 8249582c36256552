package handlers

import (
	"encoding/json"
	"net/http"

	"reelnight/models"
	"reelnight/utils/selection"
)

type statsLibrary interface {
	Entries() []models.Entry
}

type StatsHandler struct {
	Service statsLibrary
}

func NewStatsHandler(service statsLibrary) *StatsHandler {
	return &StatsHandler{Service: service}
}

type statsResponse struct {
	Total     int                         `json:"total"`
	Watched   int                         `json:"watched"`
	Unwatched int                         `json:"unwatched"`
	Average   float64                     `json:"average"`
	Histogram []selection.HistogramBucket `json:"histogram"`
}

// Stats reports the diary roll-up: counts, the average rating over watched
// entries and the five-to-one rating histogram.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	entries := h.Service.Entries()
	watched, unwatched := selection.Partition(entries)

	resp := statsResponse{
		Total:     len(entries),
		Watched:   len(watched),
		Unwatched: len(unwatched),
		Average:   selection.AverageRating(entries),
		Histogram: selection.Histogram(entries),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *StatsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
