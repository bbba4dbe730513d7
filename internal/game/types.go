// internal/game/types.go
//
// Core type definitions for the number-guessing state machine.
// Defines:
//   - Phase:       round lifecycle (not_started → in_progress → won/lost_*).
//   - Feedback:    result of the latest guess submission.
//   - ScoreResult: points awarded on a win.
//   - Snapshot:    read-only view handed to the presentation layer.

package game

import (
	"context"
	"errors"

	"github.com/robalobadob/numguess/internal/difficulty"
)

// Phase is the lifecycle position of the current round.
type Phase string

const (
	PhaseNotStarted   Phase = "not_started"
	PhaseInProgress   Phase = "in_progress"
	PhaseWon          Phase = "won"
	PhaseLostAttempts Phase = "lost_attempts"
	PhaseLostTime     Phase = "lost_time"
)

// Terminal reports whether no further guesses are accepted in p.
func (p Phase) Terminal() bool {
	return p == PhaseWon || p == PhaseLostAttempts || p == PhaseLostTime
}

// Feedback describes the last guess submission.
type Feedback string

const (
	FeedbackNone         Feedback = "none"
	FeedbackTooLow       Feedback = "too_low"
	FeedbackTooHigh      Feedback = "too_high"
	FeedbackInvalidInput Feedback = "invalid_input"
)

// ErrIllegalState is returned when an operation does not fit the current phase.
var ErrIllegalState = errors.New("illegal state")

// ScoreResult is computed once, when a round is won.
type ScoreResult struct {
	BasePoints     int `json:"basePoints"`
	AttemptPenalty int `json:"attemptPenalty"`
	TimeBonus      int `json:"timeBonus"`
	Total          int `json:"total"`
}

// BestScoreStore persists the fewest attempts ever used to win.
type BestScoreStore interface {
	// Load returns the current best; ok is false when none is recorded.
	Load(ctx context.Context) (attempts int, ok bool, err error)

	// Save records attempts if it beats the current best (or none exists).
	Save(ctx context.Context, attempts int) (improved bool, err error)

	// Clear removes the record.
	Clear(ctx context.Context) error
}

// Snapshot is a copy of the round state safe to hand out.
// Target is only set in won/lost_attempts, Score only in won.
type Snapshot struct {
	RoundID           string         `json:"roundId,omitempty"`
	Phase             Phase          `json:"phase"`
	Difficulty        difficulty.Key `json:"difficulty,omitempty"`
	Min               int            `json:"min,omitempty"`
	Max               int            `json:"max,omitempty"`
	MaxAttempts       int            `json:"maxAttempts,omitempty"`
	AttemptsUsed      int            `json:"attemptsUsed"`
	AttemptsRemaining int            `json:"attemptsRemaining"`
	TimeRemaining     *int           `json:"timeRemaining,omitempty"`
	Feedback          Feedback       `json:"feedback"`
	LastGuess         *int           `json:"lastGuess,omitempty"`
	Target            *int           `json:"target,omitempty"`
	Score             *ScoreResult   `json:"score,omitempty"`
	NewBest           bool           `json:"newBest,omitempty"`
}
