package app

import (
	"context"
	"time"

	"quiz-session-service/internal/domain"
)

// QuestionSource supplies question sets for new sessions (postgres, Redis
// cache, in-memory, etc).
type QuestionSource interface {
	FetchQuestionSet(ctx context.Context, n int) ([]domain.Question, error)
}

// Wallet is the coins/lives backend. Debit and SpendLife must be atomic
// against concurrent spends and fail closed.
type Wallet interface {
	Ensure(ctx context.Context, userID string) error
	Balance(ctx context.Context, userID string) (coins int, lives int, err error)
	Debit(ctx context.Context, userID string, amount int) (remaining int, err error)
	SpendLife(ctx context.Context, userID string) (remaining int, err error)
}

// RewardLedger credits coins keyed by a deterministic source id. The backend
// rejects duplicate source ids as no-ops; that is the sole defense against
// double-crediting from retries or duplicate UI events.
type RewardLedger interface {
	Credit(ctx context.Context, userID, sourceID string, amount int) error
}

// CompletionReporter submits final session statistics and returns the
// authoritative coin total.
type CompletionReporter interface {
	ReportCompletion(ctx context.Context, userID string, summary domain.CompletionSummary) (int, error)
}

// Broadcaster notifies other open views of balance changes. Best effort,
// never correctness-critical.
type Broadcaster interface {
	PublishWallet(ctx context.Context, userID string, coins, lives int) error
}

// Backends bundles the external collaborators a session controller needs.
type Backends struct {
	Source    QuestionSource
	Wallet    Wallet
	Ledger    RewardLedger
	Reporter  CompletionReporter
	Broadcast Broadcaster
}

// Rules carries the game tunables. Zero values are replaced by defaults via
// Normalize so config omissions keep the stock game.
type Rules struct {
	SessionLength  int
	SpareQuestions int
	QuestionTime   time.Duration
	StartBonus     int

	LifelineCap         int // per-game cap for 50/50, double-answer, audience
	ContinueWrongCost   int
	ContinueTimeoutCost int

	SwipeThreshold float64
	SwipeDamping   float64

	RevealDelay time.Duration // pause after a correct first double-answer pick
	PromptDelay time.Duration // pause before the continue-prompt surfaces
}

// Normalize fills unset fields with the stock defaults.
func (r Rules) Normalize() Rules {
	if r.SessionLength == 0 {
		r.SessionLength = 15
	}
	if r.SpareQuestions == 0 {
		r.SpareQuestions = 5
	}
	if r.QuestionTime == 0 {
		r.QuestionTime = 10 * time.Second
	}
	if r.StartBonus == 0 {
		r.StartBonus = 20
	}
	if r.LifelineCap == 0 {
		r.LifelineCap = 3
	}
	if r.ContinueWrongCost == 0 {
		r.ContinueWrongCost = 20
	}
	if r.ContinueTimeoutCost == 0 {
		r.ContinueTimeoutCost = 40
	}
	if r.SwipeThreshold == 0 {
		r.SwipeThreshold = 80
	}
	if r.SwipeDamping == 0 {
		r.SwipeDamping = 0.35
	}
	if r.RevealDelay == 0 {
		r.RevealDelay = 200 * time.Millisecond
	}
	if r.PromptDelay == 0 {
		r.PromptDelay = 500 * time.Millisecond
	}
	return r
}

// SessionService creates session controllers bound to shared backends.
type SessionService struct {
	backends Backends
	rules    Rules
	schedule RewardSchedule
	votes    VotePolicy
}

func NewSessionService(backends Backends, rules Rules) *SessionService {
	return &SessionService{
		backends: backends,
		rules:    rules.Normalize(),
		schedule: DefaultRewardSchedule,
		votes:    DefaultVotePolicy,
	}
}

// WithPolicies overrides the injectable reward schedule and audience-vote
// distribution. Either argument may be nil to keep the default.
func (s *SessionService) WithPolicies(schedule RewardSchedule, votes VotePolicy) *SessionService {
	if schedule != nil {
		s.schedule = schedule
	}
	if votes != nil {
		s.votes = votes
	}
	return s
}

// NewSession builds a controller for one connected player. The wallet account
// is ensured eagerly so first-time players get their starting balances.
func (s *SessionService) NewSession(ctx context.Context, userID string) (*Controller, error) {
	if err := s.backends.Wallet.Ensure(ctx, userID); err != nil {
		return nil, err
	}
	return NewController(userID, s.backends, s.rules, s.schedule, s.votes), nil
}
