package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"reelnight/models"
	"reelnight/services/metadata"
)

type metadataService interface {
	Search(context.Context, string) ([]models.Candidate, error)
	Suggestions(context.Context) ([]models.Candidate, error)
	SetCredential(apiKey string) error
	HasCredential() bool
}

var _ metadataService = (*metadata.Service)(nil)

type MetadataHandler struct {
	Service metadataService
}

func NewMetadataHandler(service metadataService) *MetadataHandler {
	return &MetadataHandler{Service: service}
}

// candidatesResponse always carries a non-nil candidate list. needsKey tells
// the client the provider credential is missing or rejected.
type candidatesResponse struct {
	Candidates []models.Candidate `json:"candidates"`
	NeedsKey   bool               `json:"needsKey"`
}

// Search proxies a free-text provider search. Provider failures degrade to an
// empty result set rather than an error status.
func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "query parameter q is required", http.StatusBadRequest)
		return
	}

	resp := candidatesResponse{Candidates: []models.Candidate{}}
	candidates, err := h.Service.Search(r.Context(), query)
	if err != nil {
		log.Printf("[handlers] metadata search %q failed: %v", query, err)
		resp.NeedsKey = errors.Is(err, metadata.ErrNoCredential)
	} else if candidates != nil {
		resp.Candidates = candidates
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *MetadataHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	resp := candidatesResponse{Candidates: []models.Candidate{}}
	candidates, err := h.Service.Suggestions(r.Context())
	if err != nil {
		log.Printf("[handlers] metadata suggestions failed: %v", err)
		resp.NeedsKey = errors.Is(err, metadata.ErrNoCredential)
	} else if candidates != nil {
		resp.Candidates = candidates
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type credentialStatusResponse struct {
	Configured bool `json:"configured"`
}

func (h *MetadataHandler) GetCredential(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(credentialStatusResponse{Configured: h.Service.HasCredential()})
}

type credentialPayload struct {
	APIKey string `json:"apiKey"`
}

// SetCredential stores the provider api key. An empty key clears it.
func (h *MetadataHandler) SetCredential(w http.ResponseWriter, r *http.Request) {
	var payload credentialPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.SetCredential(payload.APIKey); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MetadataHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
