package app

import (
	"math/rand"

	"quiz-session-service/internal/domain"
)

const maxShuffleAttempts = 10

// shuffleAnswers relabels a question's three answers A/B/C in random order.
func shuffleAnswers(q domain.Question, rnd *rand.Rand) domain.Question {
	perm := rnd.Perm(3)
	var out [3]domain.Answer
	for i, p := range perm {
		out[i] = q.Answers[p]
		out[i].Key = domain.Keys[i]
	}
	q.Answers = out
	return q
}

// ShuffleSet shuffles answer letters for a whole session. Across consecutive
// questions the correct letter must not repeat three or more times in a row;
// each question is redrawn up to ten times before the draw is accepted as-is.
// Anti-repetition is best effort, not a guarantee.
func ShuffleSet(questions []domain.Question, rnd *rand.Rand) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		shuffled := shuffleAnswers(q, rnd)
		for attempt := 0; attempt < maxShuffleAttempts && repeatsCorrectLetter(out[:i], shuffled); attempt++ {
			shuffled = shuffleAnswers(q, rnd)
		}
		out[i] = shuffled
	}
	return out
}

// repeatsCorrectLetter reports whether appending next would put the correct
// letter in the same slot three times running.
func repeatsCorrectLetter(prev []domain.Question, next domain.Question) bool {
	if len(prev) < 2 {
		return false
	}
	key := next.CorrectKey()
	return prev[len(prev)-1].CorrectKey() == key && prev[len(prev)-2].CorrectKey() == key
}
