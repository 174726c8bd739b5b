package stores

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
)

// NewSQLiteStore opens (and migrates) a SQLite database. Connection is a
// file path or a "file:...?mode=memory" URI.
func NewSQLiteStore(config *StoreConfig) (*GormStore, error) {
	if config.Type != "sqlite" && config.Type != "" {
		return nil, fmt.Errorf("invalid store type for SQLite store: %s", config.Type)
	}
	path := config.Connection
	if path == "" {
		path = "advisorchat.sqlite"
	}

	store := &GormStore{kind: "sqlite", dialector: sqlite.Open(path), logger: zerolog.Nop()}
	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	return store, nil
}

// NewSQLiteStoreSimple creates a new SQLite store with just a file path
func NewSQLiteStoreSimple(dbPath string) (*GormStore, error) {
	return NewSQLiteStore(NewStoreConfig("sqlite", dbPath))
}
