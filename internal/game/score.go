package game

const (
	attemptPenaltyPoints = 10
	timeBonusPoints      = 2
)

// Score computes the points for a won round.
// Every attempt after the first costs 10 points (floored at zero before the
// bonus) and every second left on the clock is worth 2.
func Score(basePoints, attemptsUsed, timeRemaining int) ScoreResult {
	penalty := attemptPenaltyPoints * (attemptsUsed - 1)
	if penalty < 0 {
		penalty = 0
	}
	bonus := timeBonusPoints * timeRemaining
	if bonus < 0 {
		bonus = 0
	}
	return ScoreResult{
		BasePoints:     basePoints,
		AttemptPenalty: penalty,
		TimeBonus:      bonus,
		Total:          max(0, basePoints-penalty) + bonus,
	}
}
