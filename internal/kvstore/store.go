// Package kvstore provides the durable key-value layer the services persist
// through: opaque JSON blobs under string keys, written synchronously.
package kvstore

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

var (
	ErrKeyRequired       = errors.New("key is required")
	ErrUnknownDriver     = errors.New("unknown storage driver")
	ErrDirectoryRequired = errors.New("storage directory not provided")
	ErrPathRequired      = errors.New("database path not provided")
)

// Store is a synchronous string-keyed blob store. Set and Remove are durable
// once they return.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Close() error
}

// Open constructs the store selected by driver: "file" (the default when
// empty) keeps one JSON document per key under dir, "sqlite" keeps all keys
// in a single database at dbPath.
func Open(driver, dir, dbPath string) (Store, error) {
	switch driver {
	case "", "file":
		return NewFileStore(afero.NewOsFs(), dir)
	case "sqlite":
		return NewSQLiteStore(dbPath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
