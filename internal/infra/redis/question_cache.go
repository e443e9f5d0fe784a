package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-session-service/internal/domain"
)

const poolKey = "questions:pool"

// PoolLoader fetches the full question pool from a backing store.
type PoolLoader interface {
	LoadPool(ctx context.Context) ([]domain.Question, error)
}

// QuestionCache caches the question pool as JSON in Redis and samples session
// sets from it, falling back to the loader on cache miss. Cache fills are
// deduplicated with singleflight and expirations are spread with jitter.
type QuestionCache struct {
	client *redis.Client
	loader PoolLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader PoolLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) FetchQuestionSet(ctx context.Context, n int) ([]domain.Question, error) {
	pool, err := c.pool(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, domain.ErrPoolExhausted
	}
	if n > len(pool) {
		n = len(pool)
	}

	c.mu.Lock()
	perm := c.rnd.Perm(len(pool))
	c.mu.Unlock()

	out := make([]domain.Question, 0, n)
	for _, i := range perm[:n] {
		out = append(out, pool[i])
	}
	return out, nil
}

func (c *QuestionCache) pool(ctx context.Context) ([]domain.Question, error) {
	if pool, ok := c.cached(ctx); ok {
		return pool, nil
	}

	result, err, _ := c.sf.Do(poolKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if pool, ok := c.cached(ctx); ok {
			return pool, nil
		}

		pool, err := c.loader.LoadPool(ctx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(pool)
		if err != nil {
			return nil, fmt.Errorf("marshal pool: %w", err)
		}
		if err := c.client.Set(ctx, poolKey, data, c.ttlWithJitter()).Err(); err != nil {
			return nil, fmt.Errorf("cache pool: %w", err)
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, poolKey).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var pool []domain.Question
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, false
	}
	return pool, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
