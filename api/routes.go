package api

import (
	"net/http"
	"net/http/pprof"

	"reelnight/handlers"

	"github.com/gorilla/mux"
)

// localhostOnlyMiddleware restricts access to localhost requests only
func localhostOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		// Strip port if present
		for i := len(host) - 1; i >= 0; i-- {
			if host[i] == ':' {
				host = host[:i]
				break
			}
		}
		// Allow localhost, 127.0.0.1, ::1
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			http.Error(w, "Debug endpoints only accessible from localhost", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth reports liveness for reverse proxies and uptime monitors.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	entriesHandler *handlers.EntriesHandler,
	statsHandler *handlers.StatsHandler,
	challengeHandler *handlers.ChallengeHandler,
	gamesHandler *handlers.GamesHandler,
	metadataHandler *handlers.MetadataHandler,
	backupHandler *handlers.BackupHandler,
	settingsHandler *handlers.SettingsHandler,
) {
	api := r.PathPrefix("/api").Subrouter()

	// Add CORS middleware to API subrouter
	api.Use(corsMiddleware)

	// Watchlist and rating diary
	api.HandleFunc("/entries", entriesHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/entries", entriesHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/entries", entriesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/entries/genres", entriesHandler.Genres).Methods(http.MethodGet)
	api.HandleFunc("/entries/genres", entriesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/entries/platforms", entriesHandler.Platforms).Methods(http.MethodGet)
	api.HandleFunc("/entries/platforms", entriesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/entries/{id}", entriesHandler.Update).Methods(http.MethodPatch)
	api.HandleFunc("/entries/{id}", entriesHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/entries/{id}", entriesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/entries/{id}/watched", entriesHandler.MarkWatched).Methods(http.MethodPost)
	api.HandleFunc("/entries/{id}/watched", entriesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/entries/{id}/picked-by/cycle", entriesHandler.CyclePickedBy).Methods(http.MethodPost)
	api.HandleFunc("/entries/{id}/picked-by/cycle", entriesHandler.Options).Methods(http.MethodOptions)

	api.HandleFunc("/stats", statsHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/stats", statsHandler.Options).Methods(http.MethodOptions)

	// Challenge flow
	api.HandleFunc("/challenge", challengeHandler.State).Methods(http.MethodGet)
	api.HandleFunc("/challenge", challengeHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/challenge/start", challengeHandler.Start).Methods(http.MethodPost)
	api.HandleFunc("/challenge/start", challengeHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/challenge/complete", challengeHandler.Complete).Methods(http.MethodPost)
	api.HandleFunc("/challenge/complete", challengeHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/challenge/cancel", challengeHandler.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/challenge/cancel", challengeHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/challenge/history", challengeHandler.History).Methods(http.MethodGet)
	api.HandleFunc("/challenge/history", challengeHandler.Options).Methods(http.MethodOptions)

	// Picker games
	api.HandleFunc("/games/pick", gamesHandler.RandomPick).Methods(http.MethodPost)
	api.HandleFunc("/games/pick", gamesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/games/battle", gamesHandler.StartBattle).Methods(http.MethodPost)
	api.HandleFunc("/games/battle", gamesHandler.CurrentBattle).Methods(http.MethodGet)
	api.HandleFunc("/games/battle", gamesHandler.AbandonBattle).Methods(http.MethodDelete)
	api.HandleFunc("/games/battle", gamesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/games/battle/advance", gamesHandler.AdvanceBattle).Methods(http.MethodPost)
	api.HandleFunc("/games/battle/advance", gamesHandler.Options).Methods(http.MethodOptions)

	// Provider search and suggestions
	api.HandleFunc("/metadata/search", metadataHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/metadata/search", metadataHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/metadata/suggestions", metadataHandler.Suggestions).Methods(http.MethodGet)
	api.HandleFunc("/metadata/suggestions", metadataHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/metadata/credential", metadataHandler.GetCredential).Methods(http.MethodGet)
	api.HandleFunc("/metadata/credential", metadataHandler.SetCredential).Methods(http.MethodPut)
	api.HandleFunc("/metadata/credential", metadataHandler.Options).Methods(http.MethodOptions)

	api.HandleFunc("/backup/export", backupHandler.Export).Methods(http.MethodGet)
	api.HandleFunc("/backup/export", backupHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/backup/import", backupHandler.Import).Methods(http.MethodPost)
	api.HandleFunc("/backup/import", backupHandler.Options).Methods(http.MethodOptions)

	api.HandleFunc("/settings", settingsHandler.GetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", settingsHandler.PutSettings).Methods(http.MethodPut)
	api.HandleFunc("/settings", settingsHandler.Options).Methods(http.MethodOptions)

	// Health endpoint (public)
	api.HandleFunc("/health", handleHealth).Methods(http.MethodGet, http.MethodOptions)

	// Pprof debug endpoints for profiling (localhost only)
	pprofRouter := api.PathPrefix("/debug/pprof").Subrouter()
	pprofRouter.Use(localhostOnlyMiddleware)
	pprofRouter.HandleFunc("/", pprof.Index)
	pprofRouter.HandleFunc("/cmdline", pprof.Cmdline)
	pprofRouter.HandleFunc("/profile", pprof.Profile)
	pprofRouter.HandleFunc("/symbol", pprof.Symbol)
	pprofRouter.HandleFunc("/trace", pprof.Trace)
	pprofRouter.HandleFunc("/allocs", pprof.Handler("allocs").ServeHTTP)
	pprofRouter.HandleFunc("/goroutine", pprof.Handler("goroutine").ServeHTTP)
	pprofRouter.HandleFunc("/heap", pprof.Handler("heap").ServeHTTP)
}
