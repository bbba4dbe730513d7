// internal/target/target.go
//
// Secret number generation.
// Responsibilities:
//   - Pick a uniformly distributed integer over a closed range [min, max].
//   - Reject inverted ranges with ErrInvalidRange.
//
// The default generator reads crypto/rand so the player cannot predict the
// target within a session. A seeded math/rand generator exists for
// reproducible runs (TARGET_SEED) and Fixed for tests.

package target

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	mrand "math/rand"
	"sync"
)

// ErrInvalidRange is returned when min > max or the range holds more values
// than an int64 can count.
var ErrInvalidRange = errors.New("invalid range")

// Generator picks secret numbers.
type Generator interface {
	Generate(min, max int) (int, error)
}

// Func adapts a plain function to Generator.
type Func func(min, max int) (int, error)

// Generate calls f(min, max).
func (f Func) Generate(min, max int) (int, error) { return f(min, max) }

func checkRange(min, max int) error {
	if min > max {
		return fmt.Errorf("%w: [%d,%d]", ErrInvalidRange, min, max)
	}
	return nil
}

// width returns the number of values in [min, max].
func width(min, max int) (int64, error) {
	if err := checkRange(min, max); err != nil {
		return 0, err
	}
	w := int64(max) - int64(min)
	if w < 0 || w == math.MaxInt64 {
		return 0, fmt.Errorf("%w: [%d,%d] too wide", ErrInvalidRange, min, max)
	}
	return w + 1, nil
}

type cryptoGenerator struct{}

// New returns the crypto/rand backed generator.
func New() Generator { return cryptoGenerator{} }

func (cryptoGenerator) Generate(min, max int) (int, error) {
	w, err := width(min, max)
	if err != nil {
		return 0, err
	}
	n, err := rand.Int(rand.Reader, big.NewInt(w))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(int64(min) + n.Int64()), nil
}

type seeded struct {
	mu sync.Mutex
	r  *mrand.Rand
}

// NewSeeded returns a deterministic generator. Safe for concurrent use.
func NewSeeded(seed int64) Generator {
	return &seeded{r: mrand.New(mrand.NewSource(seed))}
}

func (g *seeded) Generate(min, max int) (int, error) {
	w, err := width(min, max)
	if err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(int64(min) + g.r.Int63n(w)), nil
}

// Fixed always yields n, failing when n falls outside the requested range.
func Fixed(n int) Generator {
	return Func(func(min, max int) (int, error) {
		if err := checkRange(min, max); err != nil {
			return 0, err
		}
		if n < min || n > max {
			return 0, fmt.Errorf("%w: fixed %d outside [%d,%d]", ErrInvalidRange, n, min, max)
		}
		return n, nil
	})
}
