package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// RewardLedger is an in-memory idempotent ledger: a source id credits at most
// once, duplicates are no-ops. When wired to a Wallet, successful credits are
// applied to the account balance.
type RewardLedger struct {
	mu       sync.Mutex
	wallet   *Wallet
	credited map[string]int // sourceID -> amount
	attempts map[string]int // sourceID -> call count, for tests
}

func NewRewardLedger(wallet *Wallet) *RewardLedger {
	return &RewardLedger{
		wallet:   wallet,
		credited: make(map[string]int),
		attempts: make(map[string]int),
	}
}

func (l *RewardLedger) Credit(_ context.Context, userID, sourceID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[sourceID]++
	if _, ok := l.credited[sourceID]; ok {
		return nil // duplicate source id, no-op
	}
	l.credited[sourceID] = amount
	if l.wallet != nil {
		l.wallet.CreditCoins(userID, amount)
	}
	return nil
}

// CreditedAmount returns the amount applied for a source id (0 if none).
func (l *RewardLedger) CreditedAmount(sourceID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credited[sourceID]
}

// Attempts returns how many credit calls arrived for a source id.
func (l *RewardLedger) Attempts(sourceID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts[sourceID]
}

// TotalCredited sums every applied credit.
func (l *RewardLedger) TotalCredited() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, amount := range l.credited {
		total += amount
	}
	return total
}

// Reporter records completion summaries and answers with the wallet's
// authoritative coin balance.
type Reporter struct {
	mu        sync.Mutex
	wallet    *Wallet
	summaries []domain.CompletionSummary
}

func NewReporter(wallet *Wallet) *Reporter {
	return &Reporter{wallet: wallet}
}

func (r *Reporter) ReportCompletion(ctx context.Context, userID string, summary domain.CompletionSummary) (int, error) {
	r.mu.Lock()
	r.summaries = append(r.summaries, summary)
	r.mu.Unlock()
	coins, _, err := r.wallet.Balance(ctx, userID)
	return coins, err
}

// Summaries copies the recorded reports; test helper.
func (r *Reporter) Summaries() []domain.CompletionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CompletionSummary(nil), r.summaries...)
}

// Broadcaster records wallet broadcasts; a no-op stand-in for pub/sub.
type Broadcaster struct {
	mu    sync.Mutex
	count int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

func (b *Broadcaster) PublishWallet(context.Context, string, int, int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
	return nil
}

// Published returns how many broadcasts were sent.
func (b *Broadcaster) Published() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
