// internal/game/engine.go
//
// Session state machine for one player.
// Responsibilities:
//   - Start rounds from the difficulty catalog with a freshly generated target.
//   - Validate and apply guesses (leading integer, inside the rule's range).
//   - Enforce the attempt and time budgets.
//   - Score wins and push improvements to the injected best-score store.
//
// A Session is not safe for concurrent use. The runner package owns one per
// player and feeds it from a single goroutine.

package game

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/robalobadob/numguess/internal/difficulty"
	"github.com/robalobadob/numguess/internal/target"
)

// round is the mutable state of one round. It is replaced wholesale on
// every StartRound and dropped on ResetToMenu.
type round struct {
	id            string
	rule          difficulty.Rule
	target        int
	attemptsUsed  int
	timeRemaining int
	phase         Phase
	feedback      Feedback
	lastGuess     *int
	score         *ScoreResult
	newBest       bool
	startedAt     time.Time
	endedAt       time.Time
}

// Session drives the rounds of a single player.
type Session struct {
	gen   target.Generator
	best  BestScoreStore
	round *round
	last  difficulty.Key
}

// NewSession constructs a Session in the not_started phase.
// best may be nil, in which case wins are never persisted.
func NewSession(gen target.Generator, best BestScoreStore) *Session {
	if gen == nil {
		gen = target.New()
	}
	return &Session{gen: gen, best: best}
}

// Phase reports the current phase.
func (s *Session) Phase() Phase {
	if s.round == nil {
		return PhaseNotStarted
	}
	return s.round.phase
}

// LastDifficulty returns the difficulty of the most recent round, if any.
func (s *Session) LastDifficulty() (difficulty.Key, bool) {
	return s.last, s.last != ""
}

// StartRound begins a new round, discarding any previous one.
func (s *Session) StartRound(key difficulty.Key) error {
	rule, err := difficulty.Lookup(key)
	if err != nil {
		return err
	}
	n, err := s.gen.Generate(rule.Min, rule.Max)
	if err != nil {
		return fmt.Errorf("generate target: %w", err)
	}
	s.round = &round{
		id:            uuid.NewString(),
		rule:          rule,
		target:        n,
		timeRemaining: rule.TimeLimit,
		phase:         PhaseInProgress,
		feedback:      FeedbackNone,
		startedAt:     time.Now(),
	}
	s.last = rule.Key
	return nil
}

// SubmitGuess applies one guess.
//
// Validation rules:
//   - Round must be in progress (ErrIllegalState otherwise).
//   - raw must start with a base-10 integer inside [min, max] (trailing text
//     is ignored); anything else sets invalid_input and costs no attempt.
//
// State transitions:
//   - Correct guess → won, score computed, best score offered to the store.
//   - Last allowed attempt missed → lost_attempts.
//   - Otherwise feedback is too_low / too_high.
//
// A store failure does not undo a win; it is returned wrapped.
func (s *Session) SubmitGuess(ctx context.Context, raw string) error {
	if s.Phase() != PhaseInProgress {
		return fmt.Errorf("%w: guess in phase %s", ErrIllegalState, s.Phase())
	}
	r := s.round

	guess, ok := parseGuess(raw, r.rule)
	if !ok {
		r.feedback = FeedbackInvalidInput
		return nil
	}

	r.attemptsUsed++
	r.lastGuess = &guess

	switch {
	case guess == r.target:
		r.phase = PhaseWon
		r.feedback = FeedbackNone
		r.endedAt = time.Now()
		score := Score(r.rule.BasePoints, r.attemptsUsed, r.timeRemaining)
		r.score = &score
		if s.best != nil {
			improved, err := s.best.Save(ctx, r.attemptsUsed)
			if err != nil {
				return fmt.Errorf("save best score: %w", err)
			}
			r.newBest = improved
		}
	case r.attemptsUsed >= r.rule.MaxAttempts:
		r.phase = PhaseLostAttempts
		r.feedback = direction(guess, r.target)
		r.endedAt = time.Now()
	default:
		r.feedback = direction(guess, r.target)
	}
	return nil
}

// Tick consumes one second of the round clock and reports whether the state
// changed. It is a no-op outside in_progress and on untimed rounds.
func (s *Session) Tick() bool {
	if s.Phase() != PhaseInProgress || !s.round.rule.Timed() {
		return false
	}
	r := s.round
	r.timeRemaining--
	if r.timeRemaining <= 0 {
		r.timeRemaining = 0
		r.phase = PhaseLostTime
		r.endedAt = time.Now()
	}
	return true
}

// ResetToMenu discards the current round.
func (s *Session) ResetToMenu() {
	s.round = nil
}

// ResetBestScore clears the persisted best score.
func (s *Session) ResetBestScore(ctx context.Context) error {
	if s.best == nil {
		return nil
	}
	return s.best.Clear(ctx)
}

// BestScore returns the persisted best score.
func (s *Session) BestScore(ctx context.Context) (int, bool, error) {
	if s.best == nil {
		return 0, false, nil
	}
	return s.best.Load(ctx)
}

// Snapshot returns a read-only view of the current round.
func (s *Session) Snapshot() Snapshot {
	if s.round == nil {
		return Snapshot{Phase: PhaseNotStarted, Feedback: FeedbackNone}
	}
	r := s.round
	snap := Snapshot{
		RoundID:           r.id,
		Phase:             r.phase,
		Difficulty:        r.rule.Key,
		Min:               r.rule.Min,
		Max:               r.rule.Max,
		MaxAttempts:       r.rule.MaxAttempts,
		AttemptsUsed:      r.attemptsUsed,
		AttemptsRemaining: r.rule.MaxAttempts - r.attemptsUsed,
		Feedback:          r.feedback,
		NewBest:           r.newBest,
	}
	if r.rule.Timed() {
		snap.TimeRemaining = intPtr(r.timeRemaining)
	}
	if r.lastGuess != nil {
		snap.LastGuess = intPtr(*r.lastGuess)
	}
	if r.phase == PhaseWon || r.phase == PhaseLostAttempts {
		snap.Target = intPtr(r.target)
	}
	if r.score != nil {
		sc := *r.score
		snap.Score = &sc
	}
	return snap
}

// Elapsed reports how long the current round ran (until now if still open).
func (s *Session) Elapsed() time.Duration {
	if s.round == nil {
		return 0
	}
	if s.round.endedAt.IsZero() {
		return time.Since(s.round.startedAt)
	}
	return s.round.endedAt.Sub(s.round.startedAt)
}

// parseGuess reads the leading integer of raw: leading space, an optional
// sign, then digits. Anything after the digits is ignored, so "50abc" and
// "1.5" read as 50 and 1. No digits or a value outside the rule's range is
// invalid.
func parseGuess(raw string, rule difficulty.Rule) (int, bool) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	if n < rule.Min || n > rule.Max {
		return 0, false
	}
	return n, true
}

func direction(guess, target int) Feedback {
	if guess < target {
		return FeedbackTooLow
	}
	return FeedbackTooHigh
}

func intPtr(v int) *int { return &v }
