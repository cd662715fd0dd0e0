package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewMongoDB connect to mongo with retries. A connection only counts
// once a primary answers a ping.
func NewMongoDB(ctx context.Context, c Connection, dbName string) (*MongoDB, error) {
	opts := options.Client().ApplyURI(c.ConnectStr)

	var lastErr error
	for attempt := 0; attempt <= c.RetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(c.RetryInterval)
		}

		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			lastErr = err
			continue
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			lastErr = err
			_ = client.Disconnect(ctx)
			continue
		}

		return &MongoDB{
			Client:   client,
			Database: client.Database(dbName),
		}, nil
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after retries: %w", lastErr)
}

// Close disconnect the underlying client
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
