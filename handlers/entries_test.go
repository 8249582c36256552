package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"reelnight/handlers"
	"reelnight/internal/kvstore"
	"reelnight/models"
	"reelnight/services/library"
)

func newLibrary(t *testing.T) *library.Service {
	t.Helper()

	store, err := kvstore.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	svc, err := library.NewService(store)
	if err != nil {
		t.Fatalf("failed to create library service: %v", err)
	}
	return svc
}

func decodeEntries(t *testing.T, rec *httptest.ResponseRecorder) ([]models.Entry, int) {
	t.Helper()

	var resp struct {
		Entries []models.Entry `json:"entries"`
		Total   int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	return resp.Entries, resp.Total
}

func TestEntriesCreateAndList(t *testing.T) {
	svc := newLibrary(t)
	h := handlers.NewEntriesHandler(svc)

	body := models.Candidate{
		ExternalID:  "tt0078748",
		Title:       "Alien",
		Year:        "1979",
		Genres:      []string{"Horror", "Sci-Fi"},
		Description: "In space no one can hear you scream.",
		Image:       "https://img.test/alien.jpg",
	}
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/entries", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if created.ID == "" || created.IsWatched {
		t.Fatalf("unexpected created entry: %+v", created)
	}

	reqList := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	recList := httptest.NewRecorder()
	h.List(recList, reqList)

	if recList.Code != http.StatusOK {
		t.Fatalf("expected list status 200, got %d", recList.Code)
	}
	entries, total := decodeEntries(t, recList)
	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected 1 entry, got total=%d len=%d", total, len(entries))
	}
	if entries[0].Title != "Alien" || entries[0].ExternalID != "tt0078748" {
		t.Fatalf("unexpected entry returned: %+v", entries[0])
	}
}

func TestEntriesCreateRequiresTitle(t *testing.T) {
	h := handlers.NewEntriesHandler(newLibrary(t))

	payload, _ := json.Marshal(models.Candidate{Title: "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/entries", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestEntriesListViewsAndFilters(t *testing.T) {
	svc := newLibrary(t)
	h := handlers.NewEntriesHandler(svc)

	a, _ := svc.Create(models.Candidate{Title: "Alien", Genres: []string{"Horror"}})
	svc.Create(models.Candidate{Title: "Brazil", Genres: []string{"Comedy"}})
	if _, err := svc.MarkWatched(a.ID, 5, "classic"); err != nil {
		t.Fatalf("failed to mark watched: %v", err)
	}

	reqWatchlist := httptest.NewRequest(http.MethodGet, "/api/entries?list=watchlist", nil)
	recWatchlist := httptest.NewRecorder()
	h.List(recWatchlist, reqWatchlist)
	entries, _ := decodeEntries(t, recWatchlist)
	if len(entries) != 1 || entries[0].Title != "Brazil" {
		t.Fatalf("expected only unwatched entries, got %+v", entries)
	}

	reqRated := httptest.NewRequest(http.MethodGet, "/api/entries?list=rated", nil)
	recRated := httptest.NewRecorder()
	h.List(recRated, reqRated)
	entries, _ = decodeEntries(t, recRated)
	if len(entries) != 1 || entries[0].Title != "Alien" || entries[0].Rating != 5 {
		t.Fatalf("expected the rated entry, got %+v", entries)
	}

	reqGenre := httptest.NewRequest(http.MethodGet, "/api/entries?list=all&genre=Comedy", nil)
	recGenre := httptest.NewRecorder()
	h.List(recGenre, reqGenre)
	entries, _ = decodeEntries(t, recGenre)
	if len(entries) != 1 || entries[0].Title != "Brazil" {
		t.Fatalf("expected the genre filter to apply, got %+v", entries)
	}

	reqBad := httptest.NewRequest(http.MethodGet, "/api/entries?list=junk", nil)
	recBad := httptest.NewRecorder()
	h.List(recBad, reqBad)
	if recBad.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown list, got %d", recBad.Code)
	}
}

func TestEntriesListPaging(t *testing.T) {
	svc := newLibrary(t)
	h := handlers.NewEntriesHandler(svc)

	titles := []string{"A", "B", "C", "D", "E"}
	for _, title := range titles {
		if _, err := svc.Create(models.Candidate{Title: title}); err != nil {
			t.Fatalf("failed to seed entry: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/entries?sort=title&offset=1&limit=2", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	entries, total := decodeEntries(t, rec)
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(entries) != 2 || entries[0].Title != "B" || entries[1].Title != "C" {
		t.Fatalf("expected page [B C], got %+v", entries)
	}

	reqPast := httptest.NewRequest(http.MethodGet, "/api/entries?offset=99", nil)
	recPast := httptest.NewRecorder()
	h.List(recPast, reqPast)
	entries, total = decodeEntries(t, recPast)
	if total != 5 || len(entries) != 0 {
		t.Fatalf("expected empty page past the end, got total=%d len=%d", total, len(entries))
	}
}

func TestEntriesUpdateAndRemove(t *testing.T) {
	svc := newLibrary(t)
	h := handlers.NewEntriesHandler(svc)

	entry, err := svc.Create(models.Candidate{Title: "Brazil"})
	if err != nil {
		t.Fatalf("failed to seed entry: %v", err)
	}

	payload := []byte(`{"platform":"netflix","tags":["rewatch"]}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/entries/"+entry.ID, bytes.NewReader(payload))
	req = mux.SetURLVars(req, map[string]string{"id": entry.ID})
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to decode update response: %v", err)
	}
	if updated.Platform != models.PlatformNetflix || len(updated.Tags) != 1 {
		t.Fatalf("unexpected updated entry: %+v", updated)
	}

	reqBadPlatform := httptest.NewRequest(http.MethodPatch, "/api/entries/"+entry.ID, bytes.NewReader([]byte(`{"platform":"betamax"}`)))
	reqBadPlatform = mux.SetURLVars(reqBadPlatform, map[string]string{"id": entry.ID})
	recBadPlatform := httptest.NewRecorder()
	h.Update(recBadPlatform, reqBadPlatform)
	if recBadPlatform.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid platform, got %d", recBadPlatform.Code)
	}

	reqMissing := httptest.NewRequest(http.MethodPatch, "/api/entries/nope", bytes.NewReader([]byte(`{}`)))
	reqMissing = mux.SetURLVars(reqMissing, map[string]string{"id": "nope"})
	recMissing := httptest.NewRecorder()
	h.Update(recMissing, reqMissing)
	if recMissing.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for missing entry, got %d", recMissing.Code)
	}

	reqDelete := httptest.NewRequest(http.MethodDelete, "/api/entries/"+entry.ID, nil)
	reqDelete = mux.SetURLVars(reqDelete, map[string]string{"id": entry.ID})
	recDelete := httptest.NewRecorder()
	h.Remove(recDelete, reqDelete)
	if recDelete.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", recDelete.Code)
	}

	// Deleting again is still a success.
	reqAgain := httptest.NewRequest(http.MethodDelete, "/api/entries/"+entry.ID, nil)
	reqAgain = mux.SetURLVars(reqAgain, map[string]string{"id": entry.ID})
	recAgain := httptest.NewRecorder()
	h.Remove(recAgain, reqAgain)
	if recAgain.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 on repeat delete, got %d", recAgain.Code)
	}
}

func TestEntriesMarkWatched(t *testing.T) {
	svc := newLibrary(t)
	h := handlers.NewEntriesHandler(svc)

	entry, _ := svc.Create(models.Candidate{Title: "Alien"})

	req := httptest.NewRequest(http.MethodPost, "/api/entries/"+entry.ID+"/watched", bytes.NewReader([]byte(`{"rating":4,"review":"great"}`)))
	req = mux.SetURLVars(req, map[string]string{"id": entry.ID})
	rec := httptest.NewRecorder()
	h.MarkWatched(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var watched models.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &watched); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !watched.IsWatched || watched.Rating != 4 || watched.WatchedAt == nil {
		t.Fatalf("unexpected watched entry: %+v", watched)
	}

	reqBad := httptest.NewRequest(http.MethodPost, "/api/entries/"+entry.ID+"/watched", bytes.NewReader([]byte(`{"rating":9}`)))
	reqBad = mux.SetURLVars(reqBad, map[string]string{"id": entry.ID})
	recBad := httptest.NewRecorder()
	h.MarkWatched(recBad, reqBad)
	if recBad.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for out-of-range rating, got %d", recBad.Code)
	}
}

func TestEntriesCyclePickedBy(t *testing.T) {
	svc := newLibrary(t)
	h := handlers.NewEntriesHandler(svc)

	entry, _ := svc.Create(models.Candidate{Title: "Alien"})

	cycle := func() models.Entry {
		req := httptest.NewRequest(http.MethodPost, "/api/entries/"+entry.ID+"/picked-by/cycle", nil)
		req = mux.SetURLVars(req, map[string]string{"id": entry.ID})
		rec := httptest.NewRecorder()
		h.CyclePickedBy(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var e models.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		return e
	}

	if got := cycle(); got.PickedBy != models.PickedByPartner1 {
		t.Fatalf("expected partner1 after first cycle, got %q", got.PickedBy)
	}
	if got := cycle(); got.PickedBy != models.PickedByPartner2 {
		t.Fatalf("expected partner2 after second cycle, got %q", got.PickedBy)
	}
	if got := cycle(); got.PickedBy != models.PickedByNone {
		t.Fatalf("expected unset after third cycle, got %q", got.PickedBy)
	}
}

func TestEntriesGenresAndPlatforms(t *testing.T) {
	svc := newLibrary(t)
	h := handlers.NewEntriesHandler(svc)

	svc.Create(models.Candidate{Title: "Alien", Genres: []string{"Horror", "Sci-Fi"}})
	svc.Create(models.Candidate{Title: "Brazil", Genres: []string{"Comedy", "Sci-Fi"}})

	req := httptest.NewRequest(http.MethodGet, "/api/entries/genres", nil)
	rec := httptest.NewRecorder()
	h.Genres(rec, req)

	var genres []string
	if err := json.Unmarshal(rec.Body.Bytes(), &genres); err != nil {
		t.Fatalf("failed to decode genres: %v", err)
	}
	if len(genres) != 3 {
		t.Fatalf("expected 3 distinct genres, got %v", genres)
	}

	reqPlatforms := httptest.NewRequest(http.MethodGet, "/api/entries/platforms", nil)
	recPlatforms := httptest.NewRecorder()
	h.Platforms(recPlatforms, reqPlatforms)

	var platforms []models.Platform
	if err := json.Unmarshal(recPlatforms.Body.Bytes(), &platforms); err != nil {
		t.Fatalf("failed to decode platforms: %v", err)
	}
	if len(platforms) == 0 {
		t.Fatal("expected the platform enum to be returned")
	}
}
