package stores

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
)

// NewPostgresStore opens (and migrates) a PostgreSQL database.
func NewPostgresStore(config *StoreConfig) (*GormStore, error) {
	if config.Type != "postgres" {
		return nil, fmt.Errorf("invalid store type for PostgreSQL store: %s", config.Type)
	}
	if config.Connection == "" {
		return nil, fmt.Errorf("postgres store needs a DSN")
	}

	store := &GormStore{kind: "postgres", dialector: postgres.Open(config.Connection), logger: zerolog.Nop()}
	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	return store, nil
}
