package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// FileStore keeps one <key>.json file per key inside a directory. Writes go
// through a temp file and a rename so a crash never leaves a half-written
// document behind.
type FileStore struct {
	mu  sync.Mutex
	fs  afero.Fs
	dir string
}

// NewFileStore creates the storage directory if needed and returns a store
// backed by it.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrDirectoryRequired
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	if strings.TrimSpace(key) == "" {
		return nil, false, ErrKeyRequired
	}

	data, err := afero.ReadFile(s.fs, s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

func (s *FileStore) Set(key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return ErrKeyRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key)
	tmp := target + ".tmp"

	file, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s temp file: %w", key, err)
	}

	if _, err := file.Write(value); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("sync %s: %w", key, err)
	}

	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close %s temp file: %w", key, err)
	}

	if err := s.fs.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}

	return nil
}

func (s *FileStore) Remove(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrKeyRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.fs.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
