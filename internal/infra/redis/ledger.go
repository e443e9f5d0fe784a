package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/domain"
)

// RewardLedger credits coins idempotently: SET NX on the source id decides
// whether this credit was seen before, so retries and duplicate UI events
// apply at most once.
// Keys: ledger:{userID}:{sourceID} marks the event; coins land on the wallet.
type RewardLedger struct {
	client *redis.Client
	wallet *Wallet
}

func NewRewardLedger(client *redis.Client, wallet *Wallet) *RewardLedger {
	return &RewardLedger{client: client, wallet: wallet}
}

func (l *RewardLedger) Credit(ctx context.Context, userID, sourceID string, amount int) error {
	fresh, err := l.client.SetNX(ctx, l.key(userID, sourceID), amount, 0).Result()
	if err != nil {
		return fmt.Errorf("ledger mark: %w", err)
	}
	if !fresh {
		return nil // duplicate source id, no-op
	}
	if err := l.client.IncrBy(ctx, l.wallet.coinsKey(userID), int64(amount)).Err(); err != nil {
		return fmt.Errorf("ledger apply: %w", err)
	}
	return nil
}

func (l *RewardLedger) key(userID, sourceID string) string {
	return "ledger:" + userID + ":" + sourceID
}

// Reporter persists the completion summary and returns the authoritative
// coin total from the wallet.
type Reporter struct {
	client *redis.Client
	wallet *Wallet
}

func NewReporter(client *redis.Client, wallet *Wallet) *Reporter {
	return &Reporter{client: client, wallet: wallet}
}

func (r *Reporter) ReportCompletion(ctx context.Context, userID string, summary domain.CompletionSummary) (int, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("marshal summary: %w", err)
	}
	key := "completed:" + userID + ":" + summary.SessionInstanceID
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return 0, fmt.Errorf("store summary: %w", err)
	}
	coins, _, err := r.wallet.Balance(ctx, userID)
	return coins, err
}
