package repository

import (
	"context"
	"time"

	"community_messaging_service/pkg/database"
	"community_messaging_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PresenceRepository ephemeral per-user connection/online state. Every
// entry carries its own TTL so a crashed process leaks nothing. All
// operations are best-effort: on a store failure they log and return the
// zero value, because presence is advisory and absence is a normal
// outcome, not an error.
type PresenceRepository interface {
	SetConnection(ctx context.Context, userID, handle string)
	GetConnection(ctx context.Context, userID string) (string, bool)
	ClearConnection(ctx context.Context, userID string)
	SetOnline(ctx context.Context, userID string)
	IsOnline(ctx context.Context, userID string) bool
	SetOffline(ctx context.Context, userID string)
}

type presenceRepository struct {
	conns  database.RedisRepository[string]
	online database.RedisRepository[bool]

	connectionTTL time.Duration
	onlineTTL     time.Duration
}

// NewRedisPresenceRepository create a PresenceRepository with the given TTLs
func NewRedisPresenceRepository(client *redis.Client, connectionTTL, onlineTTL time.Duration) PresenceRepository {
	return &presenceRepository{
		conns:         database.NewRedisRepository[string](client),
		online:        database.NewRedisRepository[bool](client),
		connectionTTL: connectionTTL,
		onlineTTL:     onlineTTL,
	}
}

func connKey(userID string) string {
	return "presence:conn:" + userID
}

func onlineKey(userID string) string {
	return "presence:online:" + userID
}

func (p *presenceRepository) SetConnection(ctx context.Context, userID, handle string) {
	if err := p.conns.Set(ctx, connKey(userID), handle, p.connectionTTL); err != nil {
		logger.Log.Errorf("presence set connection:", err, zap.String("user_id", userID))
	}
}

func (p *presenceRepository) GetConnection(ctx context.Context, userID string) (string, bool) {
	handle, err := p.conns.Get(ctx, connKey(userID))
	if err != nil {
		if err != database.ErrNil {
			logger.Log.Errorf("presence get connection:", err, zap.String("user_id", userID))
		}
		return "", false
	}
	return handle, true
}

func (p *presenceRepository) ClearConnection(ctx context.Context, userID string) {
	if err := p.conns.Del(ctx, connKey(userID)); err != nil {
		logger.Log.Errorf("presence clear connection:", err, zap.String("user_id", userID))
	}
}

func (p *presenceRepository) SetOnline(ctx context.Context, userID string) {
	if err := p.online.Set(ctx, onlineKey(userID), true, p.onlineTTL); err != nil {
		logger.Log.Errorf("presence set online:", err, zap.String("user_id", userID))
	}
	// a heartbeat also renews the connection handle lease
	if err := p.conns.ExtendTTL(ctx, connKey(userID), p.connectionTTL); err != nil {
		logger.Log.Errorf("presence extend connection:", err, zap.String("user_id", userID))
	}
}

func (p *presenceRepository) IsOnline(ctx context.Context, userID string) bool {
	on, err := p.online.Get(ctx, onlineKey(userID))
	if err != nil {
		if err != database.ErrNil {
			logger.Log.Errorf("presence is online:", err, zap.String("user_id", userID))
		}
		return false
	}
	return on
}

func (p *presenceRepository) SetOffline(ctx context.Context, userID string) {
	if err := p.online.Del(ctx, onlineKey(userID)); err != nil {
		logger.Log.Errorf("presence set offline:", err, zap.String("user_id", userID))
	}
}
