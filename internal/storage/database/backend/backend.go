// Package backend selects a database.Manager implementation by name.
package backend

import (
	"fmt"
	"strings"

	"github.com/LeJamon/goMarketd/internal/storage/database"
	"github.com/LeJamon/goMarketd/internal/storage/database/leveldb"
	"github.com/LeJamon/goMarketd/internal/storage/database/memory"
	"github.com/LeJamon/goMarketd/internal/storage/database/pebble"
)

const (
	Pebble  = "pebble"
	LevelDB = "leveldb"
	Memory  = "memory"
)

// Names lists the supported backends.
func Names() []string {
	return []string{Pebble, LevelDB, Memory}
}

// Supported reports whether name selects a backend.
func Supported(name string) bool {
	switch strings.ToLower(name) {
	case Pebble, LevelDB, Memory:
		return true
	}
	return false
}

// NewManager returns a Manager rooted at path. path is ignored for memory.
func NewManager(name, path string) (database.Manager, error) {
	switch strings.ToLower(name) {
	case Pebble:
		if path == "" {
			return nil, fmt.Errorf("%s backend requires a path", Pebble)
		}
		return pebble.NewManager(path), nil
	case LevelDB:
		if path == "" {
			return nil, fmt.Errorf("%s backend requires a path", LevelDB)
		}
		return leveldb.NewManager(path), nil
	case Memory:
		return memory.NewManager(), nil
	}
	return nil, fmt.Errorf("%w: %q", database.ErrUnknownBackend, name)
}
