package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/yamclicker/core/internal/infrastructure/logger"
	"github.com/yamclicker/core/internal/ports"
)

// Scalar is a single JSON-encoded value persisted under one key. Writes go
// through to the store before the in-memory value changes.
type Scalar[T any] struct {
	mu     sync.RWMutex
	store  ports.KeyValueStore
	key    string
	def    T
	value  T
	logger *logger.Logger
}

// NewScalar creates an accessor holding def until Load is called.
func NewScalar[T any](store ports.KeyValueStore, key string, def T, log *logger.Logger) *Scalar[T] {
	return &Scalar[T]{
		store:  store,
		key:    key,
		def:    def,
		value:  def,
		logger: log.WithFields("key", key),
	}
}

// Key returns the storage key.
func (s *Scalar[T]) Key() string {
	return s.key
}

// Load reads the stored value, falling back to the default when it is
// missing, unreadable or does not decode. It never writes.
func (s *Scalar[T]) Load(ctx context.Context) T {
	value := s.read(ctx)

	s.mu.Lock()
	s.value = value
	s.mu.Unlock()

	return value
}

func (s *Scalar[T]) read(ctx context.Context) T {
	raw, found, err := s.store.Get(ctx, s.key)
	if err != nil {
		s.logger.Warnw("Failed to read persisted value, using default", "error", err)
		return s.def
	}
	if !found || strings.TrimSpace(raw) == "null" {
		return s.def
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		s.logger.Warnw("Persisted value is corrupt, using default", "raw", raw, "error", err)
		return s.def
	}
	return value
}

// Get returns the in-memory value.
func (s *Scalar[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set persists value and then makes it current.
func (s *Scalar[T]) Set(ctx context.Context, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(ctx, value)
}

// Update derives the new value from the current one.
func (s *Scalar[T]) Update(ctx context.Context, fn func(prev T) T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.value)
	if err := s.setLocked(ctx, next); err != nil {
		return s.value, err
	}
	return next, nil
}

// Reset deletes the stored value and restores the default.
func (s *Scalar[T]) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("reset %s: %w", s.key, err)
	}
	s.value = s.def
	return nil
}

func (s *Scalar[T]) setLocked(ctx context.Context, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	if err := s.store.Set(ctx, s.key, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	s.value = value
	return nil
}
