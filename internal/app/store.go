package app

import (
	"path/filepath"
	"strings"

	"ib-history/internal/state"
	"ib-history/internal/state/sqlite"
)

// OpenProgressStore opens a SQLite store for .db/.sqlite paths and ":memory:",
// and a JSON file store otherwise.
func OpenProgressStore(path string) (state.Store, error) {
	if path == ":memory:" {
		return sqlite.New(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return sqlite.New(path)
	default:
		return state.NewFileStore(path)
	}
}
