package repository

import (
	"context"
	"encoding/json"
	"time"

	"community_messaging_service/internal/messaging/domain"
	"community_messaging_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RecentMessageCache bounded per-thread accelerator over the newest
// messages. Purely advisory: no operation returns an error, a miss or a
// failure degrades to empty and the caller reads the message log.
type RecentMessageCache interface {
	// Push prepend the message and trim to the newest entries
	Push(ctx context.Context, threadID string, msg *domain.Message)
	// Recent up to limit cached messages in chronological order,
	// empty on miss
	Recent(ctx context.Context, threadID string, limit int64) []domain.Message
}

type redisRecentCache struct {
	client     *redis.Client
	maxEntries int64
	ttl        time.Duration
}

// NewRedisRecentCache create a RecentMessageCache, keeping maxEntries
// messages per thread for ttl
func NewRedisRecentCache(client *redis.Client, maxEntries int64, ttl time.Duration) RecentMessageCache {
	return &redisRecentCache{
		client:     client,
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func recentKey(threadID string) string {
	return "thread:recent:" + threadID
}

func (c *redisRecentCache) Push(ctx context.Context, threadID string, msg *domain.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Errorf("recent cache marshal:", err, zap.String("thread_id", threadID))
		return
	}

	key := recentKey(threadID)
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, c.maxEntries-1)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Errorf("recent cache push:", err, zap.String("thread_id", threadID))
	}
}

func (c *redisRecentCache) Recent(ctx context.Context, threadID string, limit int64) []domain.Message {
	if limit <= 0 || limit > c.maxEntries {
		limit = c.maxEntries
	}

	raw, err := c.client.LRange(ctx, recentKey(threadID), 0, limit-1).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Errorf("recent cache read:", err, zap.String("thread_id", threadID))
		}
		return nil
	}

	// stored newest-first, returned oldest-first
	messages := make([]domain.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg domain.Message
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			logger.Log.Errorf("recent cache unmarshal:", err, zap.String("thread_id", threadID))
			return nil
		}
		messages = append(messages, msg)
	}
	return messages
}
