package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"reelnight/models"
	"reelnight/services/games"
	"reelnight/utils/selection"
)

type gamesService interface {
	RandomPick(opts selection.Options) (models.Entry, error)
	StartBattle(opts selection.Options) (games.BattleState, error)
	AdvanceBattle(winnerID string) (games.BattleState, error)
	CurrentBattle() (games.BattleState, error)
	AbandonBattle()
}

var _ gamesService = (*games.Service)(nil)

type GamesHandler struct {
	Service gamesService
}

func NewGamesHandler(service gamesService) *GamesHandler {
	return &GamesHandler{Service: service}
}

type gameFiltersPayload struct {
	Platform string `json:"platform"`
	Genre    string `json:"genre"`
}

func decodeGameFilters(r *http.Request) (selection.Options, error) {
	var payload gameFiltersPayload
	if r.Body != http.NoBody {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&payload); err != nil {
			return selection.Options{}, err
		}
	}
	return selection.Options{Platform: payload.Platform, Genre: payload.Genre}, nil
}

func (h *GamesHandler) RandomPick(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeGameFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.Service.RandomPick(opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, games.ErrNoCandidates) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

func (h *GamesHandler) StartBattle(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeGameFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := h.Service.StartBattle(opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, selection.ErrTooFewCandidates) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(state)
}

func (h *GamesHandler) CurrentBattle(w http.ResponseWriter, r *http.Request) {
	state, err := h.Service.CurrentBattle()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, games.ErrNoBattle) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

type advanceBattlePayload struct {
	WinnerID string `json:"winnerId"`
}

func (h *GamesHandler) AdvanceBattle(w http.ResponseWriter, r *http.Request) {
	var payload advanceBattlePayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := h.Service.AdvanceBattle(payload.WinnerID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, games.ErrNoBattle):
			status = http.StatusNotFound
		case errors.Is(err, selection.ErrNotInPair):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

func (h *GamesHandler) AbandonBattle(w http.ResponseWriter, r *http.Request) {
	h.Service.AbandonBattle()
	w.WriteHeader(http.StatusNoContent)
}

func (h *GamesHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
