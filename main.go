package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"reelnight/api"
	"reelnight/config"
	"reelnight/handlers"
	"reelnight/internal/kvstore"
	"reelnight/services/challenge"
	"reelnight/services/games"
	"reelnight/services/library"
	"reelnight/services/metadata"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configFlag := flag.String("config", "", "path to the settings file")
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🚀 reelnight Backend Starting...")

	// Determine config path (flag, env or default)
	configPath := *configFlag
	if configPath == "" {
		configPath = os.Getenv("REELNIGHT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join("data", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			// Redirect standard log to both console and file
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	// Apply port override if specified
	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	store, err := kvstore.Open(settings.Storage.Driver, settings.Storage.Directory, settings.Storage.Database)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}

	libraryService, err := library.NewService(store)
	if err != nil {
		log.Fatalf("failed to initialise library: %v", err)
	}
	challengeService, err := challenge.NewService(store, libraryService)
	if err != nil {
		log.Fatalf("failed to initialise challenge: %v", err)
	}
	// Removing an entry must also clear a challenge that targets it
	libraryService.SetChallengeNotifier(challengeService)

	providerClient := &http.Client{Timeout: time.Duration(settings.Provider.TimeoutSeconds) * time.Second}
	metadataService, err := metadata.NewService(store, libraryService, settings.Provider.BaseURL, providerClient)
	if err != nil {
		log.Fatalf("failed to initialise metadata: %v", err)
	}
	gamesService, err := games.NewService(libraryService)
	if err != nil {
		log.Fatalf("failed to initialise games: %v", err)
	}

	r := mux.NewRouter()
	api.Register(
		r,
		handlers.NewEntriesHandler(libraryService),
		handlers.NewStatsHandler(libraryService),
		handlers.NewChallengeHandler(challengeService),
		handlers.NewGamesHandler(gamesService),
		handlers.NewMetadataHandler(metadataService),
		handlers.NewBackupHandler(libraryService),
		handlers.NewSettingsHandler(cfgManager),
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if err := store.Close(); err != nil {
		log.Printf("Storage close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
