package store

import "fmt"

const (
	DefaultBestScoreKey = "highScore"

	KeyBestScore = "%s:%s" // base, player id
)

// BestScoreKey scopes base to one player. An empty player id yields base
// itself, which is the single-player layout.
func BestScoreKey(base, playerID string) string {
	if base == "" {
		base = DefaultBestScoreKey
	}
	if playerID == "" {
		return base
	}
	return fmt.Sprintf(KeyBestScore, base, playerID)
}
