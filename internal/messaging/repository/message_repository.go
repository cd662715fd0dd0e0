package repository

import (
	"context"
	"fmt"
	"time"

	"community_messaging_service/internal/messaging/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository durable message log access. This store is the only
// source of truth: a message exists once Insert returns nil, and every
// read path can be reconstructed from here.
type MessageRepository interface {
	// Insert append one message
	Insert(ctx context.Context, msg *domain.Message) error
	// FindByThread page through one thread's history in creation order
	FindByThread(ctx context.Context, threadID string, limit, offset int64, ascending bool) ([]domain.Message, error)
	// MarkThreadRead flip is_read/read_at for every unread message in the
	// thread addressed to readerID, returning how many changed
	MarkThreadRead(ctx context.Context, threadID, readerID string) (int64, error)
	// ListUserConversations one row per thread: last message + unread tally
	ListUserConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	// CountUnreadTotal exact unread count for a user across all threads
	CountUnreadTotal(ctx context.Context, userID string) (int64, error)
	// CountUnreadInThread exact unread count for a user in one thread
	CountUnreadInThread(ctx context.Context, userID, threadID string) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

// EnsureIndexes create the thread and unread secondary indexes
func (r *messageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "thread_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "is_read", Value: 1}}},
	})
	return err
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) FindByThread(ctx context.Context, threadID string, limit, offset int64, ascending bool) ([]domain.Message, error) {
	order := 1
	if !ascending {
		order = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: order}}).
		SetSkip(offset)
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, bson.M{"thread_id": threadID}, opts)
	if err != nil {
		return nil, err
	}
	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkThreadRead is idempotent: a second call matches nothing and
// reports zero without touching read_at.
func (r *messageRepository) MarkThreadRead(ctx context.Context, threadID, readerID string) (int64, error) {
	now := time.Now()
	res, err := r.coll.UpdateMany(ctx,
		bson.M{
			"thread_id":    threadID,
			"recipient_id": readerID,
			"is_read":      false,
		},
		bson.M{"$set": bson.M{
			"is_read":    true,
			"read_at":    now,
			"updated_at": now,
		}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *messageRepository) ListUserConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	pipeline := mongo.Pipeline{
		// every thread the user takes part in
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "sender_id", Value: userID}},
				bson.D{{Key: "recipient_id", Value: userID}},
			}},
		}}},
		// newest first so $first picks the last message per thread
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$thread_id"},
			{Key: "last_message", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$and", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{"$recipient_id", userID}}},
						bson.D{{Key: "$eq", Value: bson.A{"$is_read", false}}},
					}}},
					1,
					0,
				}},
			}}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "last_message.created_at", Value: -1}}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate error: %w", err)
	}

	var results []domain.Conversation
	if err := cur.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}

	return results, nil
}

func (r *messageRepository) CountUnreadTotal(ctx context.Context, userID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{
		"recipient_id": userID,
		"is_read":      false,
	})
}

func (r *messageRepository) CountUnreadInThread(ctx context.Context, userID, threadID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{
		"thread_id":    threadID,
		"recipient_id": userID,
		"is_read":      false,
	})
}
