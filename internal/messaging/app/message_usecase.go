package app

import (
	"context"
	"time"

	directoryrepo "community_messaging_service/internal/directory/repository"
	"community_messaging_service/internal/messaging/domain"
	"community_messaging_service/internal/messaging/repository"
	errprocess "community_messaging_service/pkg/err"
	"community_messaging_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SendMessageInput fields accepted on a send request
type SendMessageInput struct {
	RecipientID string              `json:"recipient_id"`
	Content     string              `json:"content"`
	MessageType domain.MessageType  `json:"message_type"`
	Priority    domain.Priority     `json:"priority"`
	Attachments []domain.Attachment `json:"attachments"`
}

// MessageUseCase orchestrates the message log with the advisory stores.
// The durable write is the only step that can fail a request; cache,
// counter and fan-out failures are logged and absorbed.
type MessageUseCase struct {
	msgRepo  repository.MessageRepository
	userRepo directoryrepo.UserRepository
	cache    repository.RecentMessageCache
	counter  repository.UnreadCounter
	relay    repository.Relay
	hub      ThreadBroadcaster
}

// NewMessageUseCase create a MessageUseCase
func NewMessageUseCase(
	msgRepo repository.MessageRepository,
	userRepo directoryrepo.UserRepository,
	cache repository.RecentMessageCache,
	counter repository.UnreadCounter,
	relay repository.Relay,
	hub ThreadBroadcaster,
) *MessageUseCase {
	return &MessageUseCase{
		msgRepo:  msgRepo,
		userRepo: userRepo,
		cache:    cache,
		counter:  counter,
		relay:    relay,
		hub:      hub,
	}
}

// Send validate, persist and fan out one message. After the insert
// returns the message counts as sent regardless of what the advisory
// steps do.
func (uc *MessageUseCase) Send(ctx context.Context, senderID string, in SendMessageInput) (*domain.Message, error) {
	if in.RecipientID == "" {
		return nil, errprocess.InvalidArgument("recipient_id is required")
	}
	if in.RecipientID == senderID {
		return nil, errprocess.InvalidArgument("cannot message yourself")
	}

	if in.MessageType == "" {
		in.MessageType = domain.MessageTypeText
	}
	if !in.MessageType.Valid() {
		return nil, errprocess.InvalidArgument("unknown message_type " + string(in.MessageType))
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityNormal
	}
	if !in.Priority.Valid() {
		return nil, errprocess.InvalidArgument("unknown priority " + string(in.Priority))
	}

	if in.Content == "" {
		if in.MessageType != domain.MessageTypeImage {
			return nil, errprocess.InvalidArgument("content is required")
		}
		in.Content = domain.ImageCaptionDefault
	}
	if len(in.Content) > domain.MaxContentLength {
		return nil, errprocess.InvalidArgument("content exceeds 2000 characters")
	}

	if _, err := uc.userRepo.FindByUserID(ctx, in.RecipientID); err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &domain.Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: in.RecipientID,
		Content:     in.Content,
		MessageType: in.MessageType,
		ThreadID:    domain.ThreadKey(senderID, in.RecipientID),
		Priority:    in.Priority,
		Attachments: in.Attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	// everything below is best-effort
	uc.cache.Push(ctx, msg.ThreadID, msg)
	uc.counter.Increment(ctx, msg.RecipientID, msg.ThreadID)

	uc.hub.BroadcastThread(msg.ThreadID, domain.WSEvent{
		Event: domain.EventNewMessage,
		Payload: map[string]interface{}{
			"message":   msg,
			"thread_id": msg.ThreadID,
		},
	}, senderID)

	// out-of-thread alert for the recipient, relayed so a connection on
	// another process still hears about it
	if err := uc.relay.Publish(ctx, repository.UserChannel(msg.RecipientID), domain.WSEvent{
		Event: domain.EventNotification,
		Payload: map[string]interface{}{
			"message_id": msg.ID,
			"sender_id":  msg.SenderID,
			"thread_id":  msg.ThreadID,
			"priority":   msg.Priority,
		},
	}); err != nil {
		logger.Log.Errorf("relay publish:", err, zap.String("thread_id", msg.ThreadID))
	}

	return msg, nil
}

// GetConversation page through the thread between userID and otherID,
// marking the requester's side read as a side effect
func (uc *MessageUseCase) GetConversation(ctx context.Context, userID, otherID string, page, limit int64, ascending bool) ([]domain.Message, error) {
	if otherID == "" {
		return nil, errprocess.InvalidArgument("counterpart id is required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	threadID := domain.ThreadKey(userID, otherID)
	messages, err := uc.msgRepo.FindByThread(ctx, threadID, limit, (page-1)*limit, ascending)
	if err != nil {
		return nil, err
	}

	if _, err := uc.MarkRead(ctx, userID, otherID); err != nil {
		// reading history must not fail because the read-state flip did
		logger.Log.Errorf("implicit mark read:", err, zap.String("thread_id", threadID))
	}

	return messages, nil
}

// MarkRead flip every unread message addressed to readerID in the
// thread with otherID, clearing the cached counter alongside.
// Idempotent: a repeat call reports zero.
func (uc *MessageUseCase) MarkRead(ctx context.Context, readerID, otherID string) (int64, error) {
	threadID := domain.ThreadKey(readerID, otherID)
	count, err := uc.msgRepo.MarkThreadRead(ctx, threadID, readerID)
	if err != nil {
		return 0, err
	}
	uc.counter.Clear(ctx, readerID, threadID)
	return count, nil
}

// ListConversations one summary row per thread for the user, unread
// tallies computed from the log so they are always consistent
func (uc *MessageUseCase) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return uc.msgRepo.ListUserConversations(ctx, userID)
}

// UnreadTotal exact unread count across all threads, read from the log
// rather than the counter
func (uc *MessageUseCase) UnreadTotal(ctx context.Context, userID string) (int64, error) {
	return uc.msgRepo.CountUnreadTotal(ctx, userID)
}

// UnreadForCounterpart exact unread count for the thread with one
// counterpart, used to annotate directory rows
func (uc *MessageUseCase) UnreadForCounterpart(ctx context.Context, userID, otherID string) (int64, error) {
	return uc.msgRepo.CountUnreadInThread(ctx, userID, domain.ThreadKey(userID, otherID))
}

// RecentMessages cached recent history for a thread, falling back to
// the log when the cache is cold
func (uc *MessageUseCase) RecentMessages(ctx context.Context, threadID string, limit int64) ([]domain.Message, error) {
	if cached := uc.cache.Recent(ctx, threadID, limit); len(cached) > 0 {
		return cached, nil
	}
	messages, err := uc.msgRepo.FindByThread(ctx, threadID, limit, 0, false)
	if err != nil {
		return nil, err
	}
	// newest-first from the log, chronological like the cache path
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
