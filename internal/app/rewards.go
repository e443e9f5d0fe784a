package app

import (
	"math/rand"

	"quiz-session-service/internal/domain"
)

// RewardSchedule maps a question's position to its correct-answer reward.
// Injectable policy; the stock schedule escalates by five-question tier.
type RewardSchedule func(index int) int

// DefaultRewardSchedule pays 5 coins for indices 0-4, 10 for 5-9, 15 for
// 10-14 and beyond.
func DefaultRewardSchedule(index int) int {
	switch {
	case index < 5:
		return 5
	case index < 10:
		return 10
	default:
		return 15
	}
}

// VotePolicy produces the synthetic audience distribution for a question.
// Percentages always sum to 100.
type VotePolicy func(correct domain.AnswerKey, rnd *rand.Rand) domain.AudienceVote

// DefaultVotePolicy biases the vote toward the correct key without giving it
// away: the correct key draws 40-70%, the rest is split at random.
func DefaultVotePolicy(correct domain.AnswerKey, rnd *rand.Rand) domain.AudienceVote {
	lead := 40 + rnd.Intn(31)
	rest := 100 - lead
	first := rnd.Intn(rest + 1)

	percent := make(map[domain.AnswerKey]int, 3)
	percent[correct] = lead
	assigned := false
	for _, k := range domain.Keys {
		if k == correct {
			continue
		}
		if !assigned {
			percent[k] = first
			assigned = true
		} else {
			percent[k] = rest - first
		}
	}
	return domain.AudienceVote{Percent: percent}
}
