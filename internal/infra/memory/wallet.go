package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

type account struct {
	coins int
	lives int
}

// Wallet is an in-memory coins/lives backend. Debits and life spends are
// atomic and fail closed.
type Wallet struct {
	mu            sync.Mutex
	startingCoins int
	startingLives int
	accounts      map[string]*account
}

func NewWallet(startingCoins, startingLives int) *Wallet {
	return &Wallet{
		startingCoins: startingCoins,
		startingLives: startingLives,
		accounts:      make(map[string]*account),
	}
}

func (w *Wallet) Ensure(_ context.Context, userID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureLocked(userID)
	return nil
}

func (w *Wallet) ensureLocked(userID string) *account {
	acc, ok := w.accounts[userID]
	if !ok {
		acc = &account{coins: w.startingCoins, lives: w.startingLives}
		w.accounts[userID] = acc
	}
	return acc
}

func (w *Wallet) Balance(_ context.Context, userID string) (int, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	acc := w.ensureLocked(userID)
	return acc.coins, acc.lives, nil
}

func (w *Wallet) Debit(_ context.Context, userID string, amount int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	acc := w.ensureLocked(userID)
	if acc.coins < amount {
		return acc.coins, domain.ErrInsufficientCoins
	}
	acc.coins -= amount
	return acc.coins, nil
}

func (w *Wallet) SpendLife(_ context.Context, userID string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	acc := w.ensureLocked(userID)
	if acc.lives <= 0 {
		return 0, domain.ErrNoLives
	}
	acc.lives--
	return acc.lives, nil
}

// CreditCoins adds coins directly; used by the ledger and by tests to fund
// accounts.
func (w *Wallet) CreditCoins(userID string, amount int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	acc := w.ensureLocked(userID)
	acc.coins += amount
	return acc.coins
}

// SetBalance overrides an account; test helper.
func (w *Wallet) SetBalance(userID string, coins, lives int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts[userID] = &account{coins: coins, lives: lives}
}
