package store

import (
	"fmt"
	"path/filepath"
)

// SqliteFileName is the database file the sqlite backend opens in dataDir.
const SqliteFileName = "habits.db"

// Backends lists the names accepted by New.
var Backends = []string{"json", "sqlite", "memory"}

// New creates a Backend based on the backend name.
//
// Supported backends:
//
//	"json"   - a single JSON object file in dataDir (default)
//	"sqlite" - SQLite database at dataDir/habits.db
//	"memory" - In-memory (ephemeral, for testing)
func New(backend, dataDir string) (Backend, error) {
	switch backend {
	case "json", "":
		return NewJsonFileStore(dataDir)
	case "sqlite":
		return NewSqliteStore(filepath.Join(dataDir, SqliteFileName))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, memory)", backend)
	}
}
