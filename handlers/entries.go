package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"reelnight/models"
	"reelnight/services/library"
	"reelnight/utils/selection"

	"github.com/gorilla/mux"
)

type libraryService interface {
	Create(candidate models.Candidate) (models.Entry, error)
	Update(id string, upd models.EntryUpdate) (models.Entry, error)
	Remove(id string) (bool, error)
	MarkWatched(id string, rating int, review string) (models.Entry, error)
	CyclePickedBy(id string) (models.Entry, error)
	Entries() []models.Entry
	Genres() []string
}

var _ libraryService = (*library.Service)(nil)

type EntriesHandler struct {
	Service libraryService
}

func NewEntriesHandler(service libraryService) *EntriesHandler {
	return &EntriesHandler{Service: service}
}

type entriesResponse struct {
	Entries []models.Entry `json:"entries"`
	Total   int            `json:"total"`
}

// List returns a filtered, sorted page of entries. The list parameter picks
// the view: watchlist (unwatched, the default), rated (watched) or all.
func (h *EntriesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := selection.Options{
		Platform: q.Get("platform"),
		Genre:    q.Get("genre"),
	}
	mode := selection.SortMode(q.Get("sort"))

	watched, unwatched := selection.Partition(h.Service.Entries())

	var entries []models.Entry
	switch strings.ToLower(q.Get("list")) {
	case "", "watchlist":
		entries = selection.SortWatchlist(selection.Filter(unwatched, opts), mode)
	case "rated":
		entries = selection.SortRated(selection.Filter(watched, opts), mode)
	case "all":
		entries = selection.SortWatchlist(selection.Filter(h.Service.Entries(), opts), mode)
	default:
		http.Error(w, "unknown list: "+q.Get("list"), http.StatusBadRequest)
		return
	}

	total := len(entries)
	entries = page(entries, q.Get("offset"), q.Get("limit"))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entriesResponse{Entries: entries, Total: total})
}

// page slices a load-more window out of entries. Absent or malformed
// parameters mean the whole list.
func page(entries []models.Entry, rawOffset, rawLimit string) []models.Entry {
	offset, err := strconv.Atoi(rawOffset)
	if err != nil || offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []models.Entry{}
	}
	entries = entries[offset:]

	limit, err := strconv.Atoi(rawLimit)
	if err != nil || limit <= 0 {
		return entries
	}
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

func (h *EntriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var candidate models.Candidate
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&candidate); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.Service.Create(candidate)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, library.ErrTitleRequired) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

func (h *EntriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := requireEntryID(w, r)
	if !ok {
		return
	}

	var upd models.EntryUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.Service.Update(id, upd)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, library.ErrEntryNotFound):
			status = http.StatusNotFound
		case errors.Is(err, library.ErrTitleRequired),
			errors.Is(err, library.ErrInvalidRating),
			errors.Is(err, library.ErrInvalidPlatform),
			errors.Is(err, library.ErrInvalidPickedBy):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// Remove deletes an entry. Removing an id that is already gone is still a
// success.
func (h *EntriesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := requireEntryID(w, r)
	if !ok {
		return
	}

	if _, err := h.Service.Remove(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type markWatchedPayload struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (h *EntriesHandler) MarkWatched(w http.ResponseWriter, r *http.Request) {
	id, ok := requireEntryID(w, r)
	if !ok {
		return
	}

	var payload markWatchedPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.Service.MarkWatched(id, payload.Rating, payload.Review)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, library.ErrEntryNotFound):
			status = http.StatusNotFound
		case errors.Is(err, library.ErrInvalidRating):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

func (h *EntriesHandler) CyclePickedBy(w http.ResponseWriter, r *http.Request) {
	id, ok := requireEntryID(w, r)
	if !ok {
		return
	}

	entry, err := h.Service.CyclePickedBy(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, library.ErrEntryNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// Genres returns the distinct genres present in the library, for the filter
// dropdown.
func (h *EntriesHandler) Genres(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Service.Genres())
}

// Platforms returns the fixed platform enum.
func (h *EntriesHandler) Platforms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.Platforms())
}

func (h *EntriesHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func requireEntryID(w http.ResponseWriter, r *http.Request) (string, bool) {
	vars := mux.Vars(r)
	id := strings.TrimSpace(vars["id"])
	if id == "" {
		http.Error(w, "entry id is required", http.StatusBadRequest)
		return "", false
	}
	return id, true
}
