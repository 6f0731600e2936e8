// Package storage persists assembled scrape results to file formats and
// optional database backends.
package storage

import (
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

// Store is the interface for all result storage backends.
type Store interface {
	// Save persists one scrape result.
	Save(result *types.ScrapeResult) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// MultiStore writes results to multiple backends, collecting the first
// error while still attempting every backend.
type MultiStore struct {
	backends []Store
}

// NewMultiStore creates a store that fans out to multiple backends.
func NewMultiStore(backends ...Store) *MultiStore {
	return &MultiStore{backends: backends}
}

func (s *MultiStore) Name() string { return "multi" }

func (s *MultiStore) Save(result *types.ScrapeResult) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Save(result); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *MultiStore) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
