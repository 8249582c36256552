package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"reelnight/internal/kvstore"
	"reelnight/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type staticLibrary struct {
	entries []models.Entry
}

func (l *staticLibrary) Entries() []models.Entry {
	return l.entries
}

func jsonResponse(status int, v any) (*http.Response, error) {
	body, _ := json.Marshal(v)
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBuffer(body)), Header: make(http.Header)}, nil
}

func newTestService(t *testing.T, entries []models.Entry, rt roundTripFunc) *Service {
	t.Helper()

	store, err := kvstore.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	svc, err := NewService(store, &staticLibrary{entries: entries}, "https://omdb.test/", &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	svc.client.retryDelay = time.Millisecond
	if err := svc.SetCredential("test-key"); err != nil {
		t.Fatalf("failed to set credential: %v", err)
	}
	return svc
}

func TestSearchFillsDetailsAndDropsImageless(t *testing.T) {
	details := map[string]omdbDetailResponse{
		"tt0001": {
			Title:    "Alien",
			Year:     "1979",
			Genre:    "Horror, Sci-Fi, Thriller, Mystery",
			Plot:     "The crew of a commercial spacecraft encounters a deadly lifeform.",
			Poster:   "https://img.test/alien.jpg",
			IMDBID:   "tt0001",
			Response: "True",
		},
		"tt0003": {
			Title:    "Alien 3",
			Year:     "1992",
			Genre:    "Horror, Sci-Fi",
			Plot:     "Ripley crash-lands on a prison planet.",
			Poster:   "https://img.test/alien3.jpg",
			IMDBID:   "tt0003",
			Response: "True",
		},
	}

	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if q.Get("apikey") != "test-key" {
			t.Errorf("expected api key on request, got %q", q.Get("apikey"))
		}
		if search := q.Get("s"); search != "" {
			if search != "alien" {
				t.Errorf("unexpected search query %q", search)
			}
			return jsonResponse(http.StatusOK, omdbSearchResponse{
				Response:     "True",
				TotalResults: "4",
				Search: []omdbSearchItem{
					{Title: "Alien", Year: "1979", IMDBID: "tt0001", Poster: "https://img.test/alien.jpg"},
					{Title: "Aliens", Year: "1986", IMDBID: "tt0002", Poster: "N/A"},
					{Title: "Alien", Year: "1979", IMDBID: "tt0001", Poster: "https://img.test/alien.jpg"},
					{Title: "Alien 3", Year: "1992", IMDBID: "tt0003", Poster: "https://img.test/alien3.jpg"},
				},
			})
		}
		if id := q.Get("i"); id != "" {
			if detail, ok := details[id]; ok {
				return jsonResponse(http.StatusOK, detail)
			}
			return jsonResponse(http.StatusOK, omdbDetailResponse{Response: "False", Error: "Error getting data."})
		}
		t.Errorf("unhandled request: %s", req.URL.String())
		return jsonResponse(http.StatusNotFound, omdbDetailResponse{})
	})

	svc := newTestService(t, nil, httpc)

	got, err := svc.Search(context.Background(), "alien")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].ExternalID != "tt0001" || got[1].ExternalID != "tt0003" {
		t.Fatalf("expected provider order tt0001, tt0003, got %+v", got)
	}

	first := got[0]
	if len(first.Genres) != 3 {
		t.Fatalf("expected genres capped at 3, got %v", first.Genres)
	}
	if first.Genres[0] != "Horror" || first.Genres[1] != "Sci-Fi" || first.Genres[2] != "Thriller" {
		t.Fatalf("expected first three provider genres in order, got %v", first.Genres)
	}
	if first.Description == "" || first.Year != "1979" {
		t.Fatalf("expected detail fields filled, got %+v", first)
	}
}

func TestSearchToleratesDetailFailure(t *testing.T) {
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if q.Get("s") != "" {
			return jsonResponse(http.StatusOK, omdbSearchResponse{
				Response: "True",
				Search: []omdbSearchItem{
					{Title: "Heat", Year: "1995", IMDBID: "tt0010", Poster: "https://img.test/heat.jpg"},
				},
			})
		}
		return jsonResponse(http.StatusOK, omdbDetailResponse{Response: "False", Error: "Error getting data."})
	})

	svc := newTestService(t, nil, httpc)

	got, err := svc.Search(context.Background(), "heat")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the search-level candidate to survive, got %+v", got)
	}
	if got[0].Title != "Heat" || got[0].Year != "1995" || len(got[0].Genres) != 0 {
		t.Fatalf("expected bare search fields, got %+v", got[0])
	}
}

func TestSearchNoResultsIsNotAnError(t *testing.T) {
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, omdbSearchResponse{Response: "False", Error: "Movie not found!"})
	})

	svc := newTestService(t, nil, httpc)

	got, err := svc.Search(context.Background(), "zzzz")
	if err != nil {
		t.Fatalf("expected empty result, got error %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}
}

func TestSearchWithoutCredential(t *testing.T) {
	store, err := kvstore.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	hits := 0
	httpc := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		hits++
		return jsonResponse(http.StatusOK, omdbSearchResponse{Response: "True"})
	})}

	svc, err := NewService(store, &staticLibrary{}, "https://omdb.test/", httpc)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if _, err := svc.Search(context.Background(), "alien"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if _, err := svc.Suggestions(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("expected no provider requests without a credential, got %d", hits)
	}
}

func TestSearchRejectedKeyMapsToCredentialError(t *testing.T) {
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, omdbSearchResponse{Response: "False", Error: "Invalid API key!"})
	})

	svc := newTestService(t, nil, httpc)

	if _, err := svc.Search(context.Background(), "alien"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential for a rejected key, got %v", err)
	}
}

func TestSearchRetriesServerErrors(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
	)
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		attempts++
		failing := attempts <= 2
		mu.Unlock()

		if failing {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Status:     "500 Internal Server Error",
				Body:       io.NopCloser(bytes.NewBufferString("")),
				Header:     make(http.Header),
			}, nil
		}
		return jsonResponse(http.StatusOK, omdbSearchResponse{
			Response: "True",
			Search:   []omdbSearchItem{{Title: "Alien", IMDBID: "tt0001", Poster: "https://img.test/alien.jpg"}},
		})
	})

	svc := newTestService(t, nil, httpc)

	got, err := svc.Search(context.Background(), "alien")
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %+v", got)
	}

	mu.Lock()
	defer mu.Unlock()
	// Two failed search attempts, one successful, plus the detail lookup.
	if attempts != 4 {
		t.Fatalf("expected 4 requests, got %d", attempts)
	}
}

func TestSearchJoinsInflightQuery(t *testing.T) {
	hits := 0
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		hits++
		return jsonResponse(http.StatusOK, omdbSearchResponse{Response: "True"})
	})

	svc := newTestService(t, nil, httpc)

	flight := &inflightSearch{
		done:    make(chan struct{}),
		results: []models.Candidate{{ExternalID: "tt0001", Title: "Primed"}},
	}
	close(flight.done)
	svc.inflight["alien"] = flight

	got, err := svc.Search(context.Background(), "Alien")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Primed" {
		t.Fatalf("expected the in-flight result, got %+v", got)
	}
	if hits != 0 {
		t.Fatalf("expected no provider requests for a joined query, got %d", hits)
	}
}

func TestSuggestionsExcludeLibraryEntries(t *testing.T) {
	now := time.Now().UTC()
	entries := []models.Entry{
		{ID: "1", ExternalID: "tt0010", Title: "Heat", IsWatched: true, Rating: 4, WatchedAt: &now},
		{ID: "2", ExternalID: "tt0001", Title: "Alien", IsWatched: true, Rating: 5, WatchedAt: &now},
		{ID: "3", ExternalID: "tt0099", Title: "Dune", IsWatched: false},
	}

	var (
		mu      sync.Mutex
		queries []string
	)
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if search := q.Get("s"); search != "" {
			mu.Lock()
			queries = append(queries, search)
			mu.Unlock()

			switch search {
			case "Alien":
				return jsonResponse(http.StatusOK, omdbSearchResponse{
					Response: "True",
					Search: []omdbSearchItem{
						{Title: "Alien", IMDBID: "tt0001", Poster: "https://img.test/alien.jpg"},
						{Title: "Aliens", IMDBID: "tt0002", Poster: "https://img.test/aliens.jpg"},
						{Title: "Alien Nation", IMDBID: "tt0005", Poster: "N/A"},
					},
				})
			case "Heat":
				return jsonResponse(http.StatusOK, omdbSearchResponse{
					Response: "True",
					Search: []omdbSearchItem{
						{Title: "Heat", IMDBID: "tt0010", Poster: "https://img.test/heat.jpg"},
						{Title: "Aliens", IMDBID: "tt0002", Poster: "https://img.test/aliens.jpg"},
						{Title: "Dune", IMDBID: "tt0777", Poster: "https://img.test/dune.jpg"},
						{Title: "Ronin", IMDBID: "tt0006", Poster: "https://img.test/ronin.jpg"},
					},
				})
			}
			return jsonResponse(http.StatusOK, omdbSearchResponse{Response: "False", Error: "Movie not found!"})
		}
		if id := q.Get("i"); id != "" {
			return jsonResponse(http.StatusOK, omdbDetailResponse{
				Response: "True",
				IMDBID:   id,
				Genre:    "Action",
				Plot:     "Plot.",
			})
		}
		return jsonResponse(http.StatusNotFound, omdbDetailResponse{})
	})

	svc := newTestService(t, entries, httpc)

	got, err := svc.Suggestions(context.Background())
	if err != nil {
		t.Fatalf("suggestions failed: %v", err)
	}

	// tt0001 and tt0010 are already in the library by id, and the tt0777
	// Dune re-release duplicates a library title. Merge order follows seed
	// rank even though the seed fetches run concurrently.
	ids := make([]string, len(got))
	for i, candidate := range got {
		ids[i] = candidate.ExternalID
	}
	if len(ids) != 2 || ids[0] != "tt0002" || ids[1] != "tt0006" {
		t.Fatalf("expected suggestions [tt0002 tt0006], got %v", ids)
	}

	mu.Lock()
	defer mu.Unlock()
	sort.Strings(queries)
	if len(queries) != 2 || queries[0] != "Alien" || queries[1] != "Heat" {
		t.Fatalf("expected seed queries for both watched titles, got %v", queries)
	}
}

func TestSuggestionsWithNoWatchedHistory(t *testing.T) {
	hits := 0
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		hits++
		return jsonResponse(http.StatusOK, omdbSearchResponse{Response: "True"})
	})

	svc := newTestService(t, []models.Entry{{ID: "1", Title: "Dune"}}, httpc)

	got, err := svc.Suggestions(context.Background())
	if err != nil {
		t.Fatalf("suggestions failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no suggestions, got %+v", got)
	}
	if hits != 0 {
		t.Fatalf("expected no provider requests without watched history, got %d", hits)
	}
}

func TestCredentialPersistsAcrossReload(t *testing.T) {
	store, err := kvstore.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	library := &staticLibrary{}

	svc, err := NewService(store, library, "", nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if svc.HasCredential() {
		t.Fatal("expected no credential on a fresh store")
	}
	if err := svc.SetCredential("  secret  "); err != nil {
		t.Fatalf("failed to set credential: %v", err)
	}

	reloaded, err := NewService(store, library, "", nil)
	if err != nil {
		t.Fatalf("failed to reload service: %v", err)
	}
	if !reloaded.HasCredential() {
		t.Fatal("expected credential to survive a reload")
	}

	if err := reloaded.SetCredential(""); err != nil {
		t.Fatalf("failed to clear credential: %v", err)
	}
	cleared, err := NewService(store, library, "", nil)
	if err != nil {
		t.Fatalf("failed to reload service: %v", err)
	}
	if cleared.HasCredential() {
		t.Fatal("expected credential to stay cleared")
	}
}

func TestCredentialLegacyPlainString(t *testing.T) {
	store, err := kvstore.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Set("omdb_api_key", []byte("legacy-key")); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	svc, err := NewService(store, &staticLibrary{}, "", nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if !svc.HasCredential() {
		t.Fatal("expected a legacy plain-string key to load")
	}
}
