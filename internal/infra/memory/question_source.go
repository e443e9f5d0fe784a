package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// QuestionSource is an in-memory question pool (useful for tests/demos).
// FetchQuestionSet samples without replacement so a session never sees the
// same question twice.
type QuestionSource struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	questions []domain.Question
}

func NewQuestionSource(questions []domain.Question) *QuestionSource {
	return &QuestionSource{
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		questions: append([]domain.Question(nil), questions...),
	}
}

// NewQuestionSourceWithRand is test-only for deterministic sampling.
func NewQuestionSourceWithRand(questions []domain.Question, rnd *rand.Rand) *QuestionSource {
	return &QuestionSource{
		rnd:       rnd,
		questions: append([]domain.Question(nil), questions...),
	}
}

func (s *QuestionSource) FetchQuestionSet(_ context.Context, n int) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return nil, domain.ErrPoolExhausted
	}
	if n > len(s.questions) {
		n = len(s.questions)
	}
	perm := s.rnd.Perm(len(s.questions))
	out := make([]domain.Question, 0, n)
	for _, i := range perm[:n] {
		out = append(out, s.questions[i])
	}
	return out, nil
}

// LoadPool returns the full pool; used behind the Redis cache wrapper.
func (s *QuestionSource) LoadPool(_ context.Context) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return nil, domain.ErrPoolExhausted
	}
	return append([]domain.Question(nil), s.questions...), nil
}
