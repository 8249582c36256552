// Package metadata talks to the OMDb-style movie catalogue. It resolves
// free-text searches into candidate entries and derives watch suggestions
// from the library's rating history.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"reelnight/internal/kvstore"
	"reelnight/models"
	"reelnight/utils/selection"
	"reelnight/utils/similarity"
)

const (
	credentialKey = "omdb_api_key"

	maxGenres        = 3
	maxSearchResults = 10
	maxSuggestions   = 6
	maxSeeds         = 3
	detailWorkers    = 4

	// Titles scoring at or above this are the same film for suggestion
	// purposes.
	duplicateTitleScore = 0.92
)

var (
	ErrStoreRequired   = errors.New("store is required")
	ErrLibraryRequired = errors.New("library is required")

	// ErrNoCredential covers both a missing api key and one the provider
	// rejected.
	ErrNoCredential = errors.New("omdb api key not configured")
)

type entryLister interface {
	Entries() []models.Entry
}

// inflightSearch lets concurrent identical queries share one provider round
// trip. Results are handed to each waiter through its own call, so a slow
// response can never clobber the results of a newer, different query.
type inflightSearch struct {
	done    chan struct{}
	results []models.Candidate
	err     error
}

type Service struct {
	store   kvstore.Store
	client  *omdbClient
	library entryLister

	mu     sync.Mutex
	apiKey string

	searchMu sync.Mutex
	inflight map[string]*inflightSearch
}

// NewService builds the provider adapter. baseURL and httpc may be zero
// values; the client then falls back to the public OMDb endpoint with a 10s
// timeout.
func NewService(store kvstore.Store, library entryLister, baseURL string, httpc *http.Client) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if library == nil {
		return nil, ErrLibraryRequired
	}

	s := &Service{
		store:    store,
		client:   newOMDBClient(baseURL, httpc),
		library:  library,
		inflight: make(map[string]*inflightSearch),
	}
	if err := s.loadCredential(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) loadCredential() error {
	data, ok, err := s.store.Get(credentialKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var key string
	if err := json.Unmarshal(data, &key); err != nil {
		// Legacy installs stored the key as a plain string.
		key = string(data)
	}
	s.apiKey = strings.TrimSpace(key)
	return nil
}

// SetCredential stores the provider api key. An empty key clears the stored
// credential.
func (s *Service) SetCredential(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	if apiKey == "" {
		if err := s.store.Remove(credentialKey); err != nil {
			return err
		}
		s.apiKey = ""
		return nil
	}

	data, err := json.Marshal(apiKey)
	if err != nil {
		return err
	}
	if err := s.store.Set(credentialKey, data); err != nil {
		return err
	}
	s.apiKey = apiKey
	return nil
}

func (s *Service) HasCredential() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey != ""
}

func (s *Service) credential() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apiKey == "" {
		return "", ErrNoCredential
	}
	return s.apiKey, nil
}

// Search resolves a free-text query into candidates with genres, description
// and year filled from the detail endpoint. Candidates without an image are
// dropped. Identical queries already in flight share a single provider round
// trip.
func (s *Service) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Candidate{}, nil
	}
	key := strings.ToLower(query)

	s.searchMu.Lock()
	if flight, ok := s.inflight[key]; ok {
		s.searchMu.Unlock()
		select {
		case <-flight.done:
			return flight.results, flight.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	flight := &inflightSearch{done: make(chan struct{})}
	s.inflight[key] = flight
	s.searchMu.Unlock()

	apiKey, err := s.credential()
	if err == nil {
		flight.results, flight.err = s.fetchCandidates(ctx, apiKey, query, maxSearchResults)
	} else {
		flight.err = err
	}

	s.searchMu.Lock()
	delete(s.inflight, key)
	s.searchMu.Unlock()
	close(flight.done)

	return flight.results, flight.err
}

// fetchCandidates runs one provider search and fills each hit from the detail
// endpoint with a bounded worker pool. Provider result order is preserved.
func (s *Service) fetchCandidates(ctx context.Context, apiKey, query string, limit int) ([]models.Candidate, error) {
	items, err := s.client.search(ctx, apiKey, query)
	if err != nil {
		return nil, err
	}
	if len(items) > limit {
		items = items[:limit]
	}

	candidates := make([]models.Candidate, len(items))
	p := pool.New().WithMaxGoroutines(detailWorkers)
	for idx, item := range items {
		p.Go(func() {
			candidate := models.Candidate{
				ExternalID: strings.TrimSpace(item.IMDBID),
				Title:      strings.TrimSpace(item.Title),
				Year:       normalizeField(item.Year),
				Genres:     []string{},
				Image:      normalizeField(item.Poster),
			}

			detail, err := s.client.detail(ctx, apiKey, item.IMDBID)
			if err != nil {
				// Degrade to the search-level fields for this hit.
				log.Printf("[metadata] detail lookup for %s failed: %v", item.IMDBID, err)
			} else {
				candidate.Genres = splitGenres(detail.Genre)
				candidate.Description = normalizeField(detail.Plot)
				if candidate.Image == "" {
					candidate.Image = normalizeField(detail.Poster)
				}
				if year := normalizeField(detail.Year); year != "" {
					candidate.Year = year
				}
			}

			candidates[idx] = candidate
		})
	}
	p.Wait()

	out := make([]models.Candidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if candidate.Image == "" {
			continue
		}
		if candidate.ExternalID != "" {
			if _, dup := seen[candidate.ExternalID]; dup {
				continue
			}
			seen[candidate.ExternalID] = struct{}{}
		}
		out = append(out, candidate)
	}
	return out, nil
}

// Suggestions proposes up to six candidates seeded from the couple's
// favourite watched titles. Anything already in the library is excluded,
// whether matched by provider id or by a near-identical title.
func (s *Service) Suggestions(ctx context.Context) ([]models.Candidate, error) {
	apiKey, err := s.credential()
	if err != nil {
		return nil, err
	}

	entries := s.library.Entries()
	seeds := suggestionSeeds(entries)
	if len(seeds) == 0 {
		return []models.Candidate{}, nil
	}

	existing := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.ExternalID != "" {
			existing[entry.ExternalID] = struct{}{}
		}
	}

	// One search per seed, fetched in parallel, merged in seed order.
	seedResults := make([][]models.Candidate, len(seeds))
	p := pool.New().WithMaxGoroutines(maxSeeds)
	for idx, seed := range seeds {
		p.Go(func() {
			candidates, err := s.fetchCandidates(ctx, apiKey, seed, maxSuggestions)
			if err != nil {
				log.Printf("[metadata] suggestion seed %q failed: %v", seed, err)
				return
			}
			seedResults[idx] = candidates
		})
	}
	p.Wait()

	suggestions := make([]models.Candidate, 0, maxSuggestions)
	picked := make(map[string]struct{}, maxSuggestions)
	for _, candidates := range seedResults {
		for _, candidate := range candidates {
			if candidate.ExternalID != "" {
				if _, have := existing[candidate.ExternalID]; have {
					continue
				}
				if _, dup := picked[candidate.ExternalID]; dup {
					continue
				}
			}
			if hasSimilarTitle(entries, candidate.Title) {
				continue
			}
			if candidate.ExternalID != "" {
				picked[candidate.ExternalID] = struct{}{}
			}
			suggestions = append(suggestions, candidate)
			if len(suggestions) == maxSuggestions {
				return suggestions, nil
			}
		}
	}
	return suggestions, nil
}

// hasSimilarTitle reports whether the library already holds the candidate's
// title. Entries added before they carried a provider id can only be matched
// this way.
func hasSimilarTitle(entries []models.Entry, title string) bool {
	for _, entry := range entries {
		if similarity.Score(entry.Title, title) >= duplicateTitleScore {
			return true
		}
	}
	return false
}

// suggestionSeeds picks up to three watched titles, best rated first, to use
// as related-title queries.
func suggestionSeeds(entries []models.Entry) []string {
	watched, _ := selection.Partition(entries)
	ranked := selection.SortRated(watched, selection.SortRating)

	seeds := make([]string, 0, maxSeeds)
	seen := make(map[string]struct{}, maxSeeds)
	for _, entry := range ranked {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		seeds = append(seeds, title)
		if len(seeds) == maxSeeds {
			break
		}
	}
	return seeds
}
