package app

import "quiz-session-service/internal/domain"

// resolveState is the per-question machine: Idle -> Selected -> Resolved.
type resolveState int

const (
	resolveIdle resolveState = iota
	resolveSelected
	resolveDone
)

// answerResolver consumes raw answer selections for one question and decides
// correct/wrong. With double-answer armed it may pass through Selected twice
// before resolving.
type answerResolver struct {
	state       resolveState
	correctKey  domain.AnswerKey
	doubleArmed bool
	attempt     *domain.AnswerAttempt
}

// answerOutcome is the result of feeding one selection into the resolver.
type answerOutcome struct {
	Resolved   bool
	Correct    bool
	NeedSecond bool
}

func newAnswerResolver(q domain.Question, attempt *domain.AnswerAttempt) *answerResolver {
	return &answerResolver{
		correctKey: q.CorrectKey(),
		attempt:    attempt,
	}
}

// armDouble switches the resolver into two-attempt mode. Only valid before
// any selection was made.
func (r *answerResolver) armDouble() {
	if r.state == resolveIdle {
		r.doubleArmed = true
	}
}

// selected reports whether an answer is locked in for this question.
func (r *answerResolver) selected() bool {
	return r.state != resolveIdle
}

// Select feeds one selection. Events after resolution, and duplicate picks
// while a selection is pending, return ErrAlreadySelected so callers can drop
// them silently. KeyTimeout never matches the correct key and therefore
// resolves wrong through the same path.
func (r *answerResolver) Select(key domain.AnswerKey) (answerOutcome, error) {
	switch r.state {
	case resolveDone:
		return answerOutcome{}, domain.ErrAlreadySelected

	case resolveSelected:
		if !r.doubleArmed || r.attempt.Second != nil {
			return answerOutcome{}, domain.ErrAlreadySelected
		}
		if r.attempt.First != nil && *r.attempt.First == key {
			return answerOutcome{}, domain.ErrSecondAttemptSame
		}
		r.attempt.Second = &key
		r.attempt.Selected = &key
		r.state = resolveDone
		correct := key == r.correctKey || (r.attempt.First != nil && *r.attempt.First == r.correctKey)
		return answerOutcome{Resolved: true, Correct: correct}, nil

	default: // resolveIdle
		r.attempt.First = &key
		r.attempt.Selected = &key
		if r.doubleArmed && key != r.correctKey && key != domain.KeyTimeout {
			// First pick missed; a second, different pick is required.
			r.state = resolveSelected
			return answerOutcome{NeedSecond: true}, nil
		}
		r.state = resolveDone
		return answerOutcome{Resolved: true, Correct: key == r.correctKey}, nil
	}
}
