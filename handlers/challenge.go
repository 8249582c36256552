package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"reelnight/models"
	"reelnight/services/challenge"
	"reelnight/services/library"
)

type challengeService interface {
	Start() (models.Entry, error)
	State() models.ChallengeState
	Cancel(confirm bool) error
	Complete(rating int, review string) (models.ChallengeRecord, error)
	History() []models.ChallengeRecord
}

var _ challengeService = (*challenge.Service)(nil)

type ChallengeHandler struct {
	Service challengeService
}

func NewChallengeHandler(service challengeService) *ChallengeHandler {
	return &ChallengeHandler{Service: service}
}

func (h *ChallengeHandler) State(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Service.State())
}

func (h *ChallengeHandler) Start(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Service.Start()
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, challenge.ErrChallengeActive):
			status = http.StatusConflict
		case errors.Is(err, challenge.ErrNoCandidates):
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

type completeChallengePayload struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (h *ChallengeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var payload completeChallengePayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.Service.Complete(payload.Rating, payload.Review)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, challenge.ErrNoActiveChallenge):
			status = http.StatusConflict
		case errors.Is(err, library.ErrInvalidRating):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

type cancelChallengePayload struct {
	Confirm bool `json:"confirm"`
}

func (h *ChallengeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var payload cancelChallengePayload
	if r.Body != http.NoBody {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := h.Service.Cancel(payload.Confirm); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, challenge.ErrNoActiveChallenge):
			status = http.StatusConflict
		case errors.Is(err, challenge.ErrConfirmationRequired):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChallengeHandler) History(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Service.History())
}

func (h *ChallengeHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
