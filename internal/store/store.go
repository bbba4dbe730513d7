// internal/store/store.go
//
// Best-score persistence.
// Backends (memory, SQL, Redis) keep one integer per key: the fewest attempts
// ever used to win. Every backend performs the compare-and-set atomically, so
// two wins racing on the same key can never leave the worse value behind.
//
// BestScore binds a Backend to one key and satisfies game.BestScoreStore.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/robalobadob/numguess/internal/game"
)

// ErrInvalidAttempts is returned when a non-positive attempt count is saved.
var ErrInvalidAttempts = errors.New("attempts must be positive")

// Backend is a keyed best-score table.
type Backend interface {
	// Load returns the stored value; ok is false when the key is absent.
	Load(ctx context.Context, key string) (attempts int, ok bool, err error)

	// SaveIfLower stores attempts when the key is absent or holds a larger value.
	SaveIfLower(ctx context.Context, key string, attempts int) (improved bool, err error)

	// Clear removes the key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error

	Close() error
}

// BestScore is a Backend scoped to a single key.
type BestScore struct {
	backend Backend
	key     string
}

var _ game.BestScoreStore = (*BestScore)(nil)

// NewBestScore binds b to key.
func NewBestScore(b Backend, key string) *BestScore {
	return &BestScore{backend: b, key: key}
}

// Key returns the storage key.
func (s *BestScore) Key() string { return s.key }

func (s *BestScore) Load(ctx context.Context) (int, bool, error) {
	n, ok, err := s.backend.Load(ctx, s.key)
	if err != nil {
		return 0, false, fmt.Errorf("load %s: %w", s.key, err)
	}
	return n, ok, nil
}

func (s *BestScore) Save(ctx context.Context, attempts int) (bool, error) {
	if attempts <= 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidAttempts, attempts)
	}
	improved, err := s.backend.SaveIfLower(ctx, s.key, attempts)
	if err != nil {
		return false, fmt.Errorf("save %s: %w", s.key, err)
	}
	return improved, nil
}

func (s *BestScore) Clear(ctx context.Context) error {
	if err := s.backend.Clear(ctx, s.key); err != nil {
		return fmt.Errorf("clear %s: %w", s.key, err)
	}
	return nil
}
