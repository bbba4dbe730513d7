// internal/difficulty/catalog.go
//
// Static difficulty catalog for the number-guessing game.
// Defines:
//   - Key:  the closed set of difficulty levels (easy, medium, hard, expert).
//   - Rule: range, attempt budget, time budget and base points for a level.
//
// The table is fixed at compile time. Lookup hands out copies, so callers
// can never mutate the catalog at runtime.

package difficulty

import (
	"errors"
	"fmt"
	"strings"
)

// Key identifies a difficulty level.
type Key string

const (
	Easy   Key = "easy"
	Medium Key = "medium"
	Hard   Key = "hard"
	Expert Key = "expert"
)

// ErrUnknownDifficulty is returned for keys outside the catalog.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// Rule is the immutable rule set of one difficulty level.
type Rule struct {
	Key         Key    `json:"key"`
	Label       string `json:"label"`
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	MaxAttempts int    `json:"maxAttempts"`
	TimeLimit   int    `json:"timeLimitSeconds"` // 0 = untimed
	BasePoints  int    `json:"basePoints"`
}

// Timed reports whether rounds under this rule run against a clock.
func (r Rule) Timed() bool { return r.TimeLimit > 0 }

var catalog = [...]Rule{
	{Key: Easy, Label: "Easy", Min: 1, Max: 50, MaxAttempts: 10, TimeLimit: 120, BasePoints: 100},
	{Key: Medium, Label: "Medium", Min: 1, Max: 100, MaxAttempts: 8, TimeLimit: 90, BasePoints: 200},
	{Key: Hard, Label: "Hard", Min: 1, Max: 200, MaxAttempts: 6, TimeLimit: 60, BasePoints: 300},
	{Key: Expert, Label: "Expert", Min: 1, Max: 500, MaxAttempts: 5, TimeLimit: 45, BasePoints: 500},
}

// ParseKey normalizes s (trim, lowercase) and checks it against the catalog.
func ParseKey(s string) (Key, error) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	if _, err := Lookup(k); err != nil {
		return "", err
	}
	return k, nil
}

// Lookup returns the rule for key.
func Lookup(key Key) (Rule, error) {
	k := Key(strings.ToLower(strings.TrimSpace(string(key))))
	for _, r := range catalog {
		if r.Key == k {
			return r, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, string(key))
}

// All returns the catalog in ascending difficulty order.
func All() []Rule {
	out := make([]Rule, len(catalog))
	copy(out, catalog[:])
	return out
}
