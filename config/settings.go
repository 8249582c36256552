package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Storage  StorageSettings  `json:"storage"`
	Provider ProviderSettings `json:"provider"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StorageSettings selects the key-value backend. The file driver keeps one
// JSON blob per key under Directory; the sqlite driver keeps everything in a
// single database file.
type StorageSettings struct {
	Driver    string `json:"driver"` // file | sqlite
	Directory string `json:"directory"`
	Database  string `json:"database"`
}

type ProviderSettings struct {
	BaseURL        string `json:"baseUrl"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 8480},
		Storage: StorageSettings{
			Driver:    "file",
			Directory: "data",
			Database:  "data/reelnight.db",
		},
		Provider: ProviderSettings{
			BaseURL:        "https://www.omdbapi.com/",
			TimeoutSeconds: 10,
		},
		Log: LogConfig{
			File:       "data/logs/reelnight.log",
			Level:      "info",
			MaxSize:    50, // 50 MB per file
			MaxBackups: 3,  // keep 3 old files
			MaxAge:     7,  // 7 days
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		// create with defaults
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	// First, try to decode into a raw map to check for old format
	var raw map[string]interface{}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return Settings{}, err
	}

	// Early installs stored storage as a bare directory string instead of an
	// object. Migrate to the object form with the file driver.
	if dir, ok := raw["storage"].(string); ok {
		raw["storage"] = map[string]interface{}{
			"driver":    "file",
			"directory": dir,
		}
	}

	// Same for provider: a bare string was the base URL.
	if baseURL, ok := raw["provider"].(string); ok {
		raw["provider"] = map[string]interface{}{
			"baseUrl": baseURL,
		}
	}

	// Re-encode and decode into Settings struct
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := json.Unmarshal(rawJSON, &s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for newly introduced settings when config predates them
	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = "0.0.0.0"
	}
	if s.Server.Port == 0 {
		s.Server.Port = 8480
	}

	if strings.TrimSpace(s.Storage.Driver) == "" {
		s.Storage.Driver = "file"
	}
	if strings.TrimSpace(s.Storage.Directory) == "" {
		s.Storage.Directory = "data"
	}
	if strings.TrimSpace(s.Storage.Database) == "" {
		s.Storage.Database = "data/reelnight.db"
	}

	if strings.TrimSpace(s.Provider.BaseURL) == "" {
		s.Provider.BaseURL = "https://www.omdbapi.com/"
	}
	if s.Provider.TimeoutSeconds == 0 {
		s.Provider.TimeoutSeconds = 10
	}

	if strings.TrimSpace(s.Log.File) == "" {
		s.Log.File = "data/logs/reelnight.log"
	}
	if strings.TrimSpace(s.Log.Level) == "" {
		s.Log.Level = "info"
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = 50
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = 3
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = 7
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
