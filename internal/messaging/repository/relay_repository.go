package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"community_messaging_service/internal/messaging/domain"
	"community_messaging_service/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// Relay carries gateway events between server processes. The in-memory
// connection groups are process-local, so a connection registered by
// another process is only reachable through its relay subscription.
// This interface is the pluggable cross-process fan-out point.
type Relay interface {
	Publish(ctx context.Context, channel string, event domain.WSEvent) error
	Subscribe(ctx context.Context, channel string, handler func(event domain.WSEvent)) error
}

// UserChannel relay channel for a user's personal group
func UserChannel(userID string) string {
	return "chat:user:" + userID
}

// RedisRelay Relay implementation on redis pub/sub
type RedisRelay struct {
	client *redis.Client
}

// NewRedisRelay create a RedisRelay
func NewRedisRelay(client *redis.Client) *RedisRelay {
	return &RedisRelay{client: client}
}

// Publish serialize the event and publish it to the channel
func (r *RedisRelay) Publish(ctx context.Context, channel string, event domain.WSEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe consume events from the channel until ctx is cancelled
func (r *RedisRelay) Subscribe(ctx context.Context, channel string, handler func(event domain.WSEvent)) error {
	sub := r.client.Subscribe(ctx, channel)
	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var event domain.WSEvent
				if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
					logger.Log.Errorf("relay unmarshal:", err)
					continue
				}
				handler(event)
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				sub.Close()
				return
			}
		}
	}()
	return nil
}
