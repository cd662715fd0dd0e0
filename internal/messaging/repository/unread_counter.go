package repository

import (
	"context"
	"time"

	"community_messaging_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// UnreadCounter best-effort per (user, thread) unread tally. It may
// drift from the message log when the store is unreachable; anything
// that needs an exact number counts against the log instead.
type UnreadCounter interface {
	Increment(ctx context.Context, userID, threadID string)
	Get(ctx context.Context, userID, threadID string) int64
	Clear(ctx context.Context, userID, threadID string)
}

type redisUnreadCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisUnreadCounter create an UnreadCounter with the given entry TTL
func NewRedisUnreadCounter(client *redis.Client, ttl time.Duration) UnreadCounter {
	return &redisUnreadCounter{client: client, ttl: ttl}
}

func counterKey(userID, threadID string) string {
	return "unread:" + userID + ":" + threadID
}

func (c *redisUnreadCounter) Increment(ctx context.Context, userID, threadID string) {
	key := counterKey(userID, threadID)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Errorf("unread counter incr:", err, zap.String("user_id", userID), zap.String("thread_id", threadID))
	}
}

func (c *redisUnreadCounter) Get(ctx context.Context, userID, threadID string) int64 {
	n, err := c.client.Get(ctx, counterKey(userID, threadID)).Int64()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Errorf("unread counter get:", err, zap.String("user_id", userID), zap.String("thread_id", threadID))
		}
		return 0
	}
	return n
}

func (c *redisUnreadCounter) Clear(ctx context.Context, userID, threadID string) {
	if err := c.client.Del(ctx, counterKey(userID, threadID)).Err(); err != nil {
		logger.Log.Errorf("unread counter clear:", err, zap.String("user_id", userID), zap.String("thread_id", threadID))
	}
}
