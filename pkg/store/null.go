package store

import (
	"context"
	"time"
)

// NullStore is a no-op store that never stores anything.
// Used when caching is disabled.
type NullStore struct{}

// NewNullStore creates a null store.
func NewNullStore() *NullStore {
	return &NullStore{}
}

// Get always returns a miss.
func (s *NullStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (s *NullStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return nil
}

// Remove does nothing.
func (s *NullStore) Remove(ctx context.Context, key string) error {
	return nil
}

// SweepExpired does nothing.
func (s *NullStore) SweepExpired(ctx context.Context) (int, error) {
	return 0, nil
}

// Close does nothing.
func (s *NullStore) Close() error {
	return nil
}

// Ensure NullStore implements Store.
var _ Store = (*NullStore)(nil)
