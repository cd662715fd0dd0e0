package database

import (
	"context"
	"fmt"
	"time"

	"community_messaging_service/pkg/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// NewDatabaseConnection open a pgx pool, retrying until the database
// answers or the retry budget runs out
func NewDatabaseConnection(d Connection) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(d.ConnectStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= d.RetryCount; attempt++ {
		pool, err = pgxpool.ConnectConfig(context.Background(), cfg)
		if err == nil {
			return pool, nil
		}
		logger.Log.Warn(
			"Failed to connect to postgreSQL database, retrying...",
			zap.Int("attempt", attempt),
			zap.String("address", fmt.Sprintf("[%s]", d.ConnectStr)),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval)
	}

	return nil, err
}
