package database

import (
	"context"
	"fmt"
	"sync"
)

// RetryingStore opens its backend lazily and tries again on every call until
// an open succeeds. Until then Load and Save return an error.
type RetryingStore struct {
	open func(ctx context.Context) (CooldownStore, error)

	mu    sync.Mutex
	store CooldownStore
}

// NewRetryingStore wraps open. open is not called until the first Load or Save.
func NewRetryingStore(open func(ctx context.Context) (CooldownStore, error)) *RetryingStore {
	return &RetryingStore{open: open}
}

func (s *RetryingStore) backend(ctx context.Context) (CooldownStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		return s.store, nil
	}
	store, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("cooldown store still unavailable: %w", err)
	}
	s.store = store
	return store, nil
}

// Load reads from the backend once it could be opened.
func (s *RetryingStore) Load(ctx context.Context) (map[string]int64, error) {
	store, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}
	return store.Load(ctx)
}

// Save writes to the backend once it could be opened.
func (s *RetryingStore) Save(ctx context.Context, records map[string]int64) error {
	store, err := s.backend(ctx)
	if err != nil {
		return err
	}
	return store.Save(ctx, records)
}

// Close closes the backend if it was ever opened.
func (s *RetryingStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
