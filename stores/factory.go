package stores

import (
	"fmt"
)

// Store is everything the reference backend persists.
type Store interface {
	MessageStore
	TaskStore
	SettingsStore
}

// NewStore creates a store based on the configuration
func NewStore(config *StoreConfig) (Store, error) {
	var (
		store *GormStore
		err   error
	)
	switch config.Type {
	case "sqlite", "":
		store, err = NewSQLiteStore(config)
	case "postgres":
		store, err = NewPostgresStore(config)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
