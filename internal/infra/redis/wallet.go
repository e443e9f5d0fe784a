package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/domain"
)

// debitScript decrements a balance key only when it covers the amount, so
// debits stay atomic against concurrent spends from other views.
var debitScript = redis.NewScript(`
local balance = tonumber(redis.call("GET", KEYS[1]) or "0")
local amount = tonumber(ARGV[1])
if balance < amount then
	return -1
end
return redis.call("DECRBY", KEYS[1], amount)
`)

// Wallet stores coins and lives per user in Redis.
// Keys: wallet:{userID}:coins, wallet:{userID}:lives.
type Wallet struct {
	client        *redis.Client
	startingCoins int
	startingLives int
}

func NewWallet(client *redis.Client, startingCoins, startingLives int) *Wallet {
	return &Wallet{client: client, startingCoins: startingCoins, startingLives: startingLives}
}

// Ensure seeds the starting balances once per user.
func (w *Wallet) Ensure(ctx context.Context, userID string) error {
	if err := w.client.SetNX(ctx, w.coinsKey(userID), w.startingCoins, 0).Err(); err != nil {
		return fmt.Errorf("ensure coins: %w", err)
	}
	if err := w.client.SetNX(ctx, w.livesKey(userID), w.startingLives, 0).Err(); err != nil {
		return fmt.Errorf("ensure lives: %w", err)
	}
	return nil
}

func (w *Wallet) Balance(ctx context.Context, userID string) (int, int, error) {
	coins, err := w.client.Get(ctx, w.coinsKey(userID)).Int()
	if err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("get coins: %w", err)
	}
	lives, err := w.client.Get(ctx, w.livesKey(userID)).Int()
	if err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("get lives: %w", err)
	}
	return coins, lives, nil
}

func (w *Wallet) Debit(ctx context.Context, userID string, amount int) (int, error) {
	remaining, err := debitScript.Run(ctx, w.client, []string{w.coinsKey(userID)}, amount).Int()
	if err != nil {
		return 0, fmt.Errorf("debit: %w", err)
	}
	if remaining < 0 {
		return 0, domain.ErrInsufficientCoins
	}
	return remaining, nil
}

func (w *Wallet) SpendLife(ctx context.Context, userID string) (int, error) {
	remaining, err := debitScript.Run(ctx, w.client, []string{w.livesKey(userID)}, 1).Int()
	if err != nil {
		return 0, fmt.Errorf("spend life: %w", err)
	}
	if remaining < 0 {
		return 0, domain.ErrNoLives
	}
	return remaining, nil
}

func (w *Wallet) coinsKey(userID string) string {
	return "wallet:" + userID + ":coins"
}

func (w *Wallet) livesKey(userID string) string {
	return "wallet:" + userID + ":lives"
}
