package postgres

import "registry/internal/storage"

func init() {
	// registers the catalog store factory
	storage.Register("postgres", New)
}
