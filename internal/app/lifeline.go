package app

import (
	"math/rand"

	"quiz-session-service/internal/domain"
)

// SkipCost returns the skip/swap price for a question index: 10 coins for
// indices 0-4, 20 for 5-9, 30 for 10-14 and beyond.
func SkipCost(index int) int {
	switch {
	case index < 5:
		return 10
	case index < 10:
		return 20
	default:
		return 30
	}
}

// resolveFiftyFifty removes one incorrect answer from the current question's
// display. It consumes a counter unit regardless of outcome and cannot run
// twice on the same question.
func resolveFiftyFifty(q domain.Question, usage *domain.LifelineUsage, cap int, rnd *rand.Rand) (domain.AnswerKey, error) {
	if usage.FiftyFiftyActive {
		return "", domain.ErrLifelineActive
	}
	if usage.FiftyFiftyUsed >= cap {
		return "", domain.ErrLifelineExhausted
	}

	wrong := make([]domain.AnswerKey, 0, 2)
	for _, a := range q.Answers {
		if !a.Correct {
			wrong = append(wrong, a.Key)
		}
	}
	removed := wrong[rnd.Intn(len(wrong))]

	usage.FiftyFiftyUsed++
	usage.FiftyFiftyActive = true
	return removed, nil
}

// armDoubleAnswer enables two-attempt mode for the current question.
func armDoubleAnswer(usage *domain.LifelineUsage, cap int) error {
	if usage.DoubleAnswerActive {
		return domain.ErrLifelineActive
	}
	if usage.DoubleAnswerUsed >= cap {
		return domain.ErrLifelineExhausted
	}
	usage.DoubleAnswerUsed++
	usage.DoubleAnswerActive = true
	return nil
}

// resolveAudience produces the synthetic vote distribution via the injected
// policy. Display only.
func resolveAudience(q domain.Question, usage *domain.LifelineUsage, cap int, policy VotePolicy, rnd *rand.Rand) (domain.AudienceVote, error) {
	if usage.AudienceActive {
		return domain.AudienceVote{}, domain.ErrLifelineActive
	}
	if usage.AudienceUsed >= cap {
		return domain.AudienceVote{}, domain.ErrLifelineExhausted
	}
	usage.AudienceUsed++
	usage.AudienceActive = true
	return policy(q.CorrectKey(), rnd), nil
}

// authorizeSkip checks the one-per-game cap and the tiered cost against the
// player's balance. The debit itself happens at the wallet.
func authorizeSkip(usage *domain.LifelineUsage, index, balance int) (int, error) {
	if usage.SkipUsed {
		return 0, domain.ErrLifelineExhausted
	}
	cost := SkipCost(index)
	if balance < cost {
		return 0, domain.ErrInsufficientCoins
	}
	return cost, nil
}
