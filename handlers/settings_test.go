package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"reelnight/config"
	"reelnight/handlers"
)

func newSettingsFixture(t *testing.T) (*handlers.SettingsHandler, *config.Manager) {
	t.Helper()
	manager := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	return handlers.NewSettingsHandler(manager), manager
}

func TestSettingsGetReturnsDefaults(t *testing.T) {
	h, _ := newSettingsFixture(t)

	rec := httptest.NewRecorder()
	h.GetSettings(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp config.Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Server.Port != 8480 {
		t.Fatalf("expected default port 8480, got %d", resp.Server.Port)
	}
	if resp.Storage.Driver != "file" {
		t.Fatalf("expected default driver file, got %q", resp.Storage.Driver)
	}
	if resp.Provider.BaseURL != "https://www.omdbapi.com/" {
		t.Fatalf("unexpected default provider url %q", resp.Provider.BaseURL)
	}
}

func TestSettingsPutPersists(t *testing.T) {
	h, manager := newSettingsFixture(t)

	updated := config.DefaultSettings()
	updated.Server.Port = 9000
	updated.Provider.TimeoutSeconds = 5
	payload, err := json.Marshal(updated)
	if err != nil {
		t.Fatalf("failed to encode settings: %v", err)
	}

	rec := httptest.NewRecorder()
	h.PutSettings(rec, httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(payload)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	reloaded, err := manager.Load()
	if err != nil {
		t.Fatalf("failed to reload settings: %v", err)
	}
	if reloaded.Server.Port != 9000 {
		t.Fatalf("expected persisted port 9000, got %d", reloaded.Server.Port)
	}
	if reloaded.Provider.TimeoutSeconds != 5 {
		t.Fatalf("expected persisted timeout 5, got %d", reloaded.Provider.TimeoutSeconds)
	}
}

func TestSettingsPutRejectsMalformedBody(t *testing.T) {
	h, manager := newSettingsFixture(t)

	rec := httptest.NewRecorder()
	h.PutSettings(rec, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader("not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	// The stored document is untouched.
	reloaded, err := manager.Load()
	if err != nil {
		t.Fatalf("failed to reload settings: %v", err)
	}
	if reloaded.Server.Port != config.DefaultSettings().Server.Port {
		t.Fatalf("malformed put must not change settings, port now %d", reloaded.Server.Port)
	}
}
