package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Broadcaster notifies other open views of balance changes over pub/sub.
// Best effort; subscribers may miss messages and reconcile on next read.
type Broadcaster struct {
	client *redis.Client
}

func NewBroadcaster(client *redis.Client) *Broadcaster {
	return &Broadcaster{client: client}
}

type walletMessage struct {
	Coins int `json:"coins"`
	Lives int `json:"lives"`
}

func (b *Broadcaster) PublishWallet(ctx context.Context, userID string, coins, lives int) error {
	data, err := json.Marshal(walletMessage{Coins: coins, Lives: lives})
	if err != nil {
		return fmt.Errorf("marshal wallet message: %w", err)
	}
	return b.client.Publish(ctx, b.channel(userID), data).Err()
}

func (b *Broadcaster) channel(userID string) string {
	return "wallet:updates:" + userID
}
