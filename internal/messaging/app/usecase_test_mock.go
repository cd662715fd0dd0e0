package app

import (
	"context"

	directorydomain "community_messaging_service/internal/directory/domain"
	"community_messaging_service/internal/messaging/domain"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert mock append message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByThread mock thread history page
func (m *MockMessageRepository) FindByThread(ctx context.Context, threadID string, limit, offset int64, ascending bool) ([]domain.Message, error) {
	args := m.Called(ctx, threadID, limit, offset, ascending)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkThreadRead mock batch read flip
func (m *MockMessageRepository) MarkThreadRead(ctx context.Context, threadID, readerID string) (int64, error) {
	args := m.Called(ctx, threadID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

// ListUserConversations mock conversation summaries
func (m *MockMessageRepository) ListUserConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// CountUnreadTotal mock exact unread total
func (m *MockMessageRepository) CountUnreadTotal(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// CountUnreadInThread mock exact per-thread unread
func (m *MockMessageRepository) CountUnreadInThread(ctx context.Context, userID, threadID string) (int64, error) {
	args := m.Called(ctx, userID, threadID)
	return args.Get(0).(int64), args.Error(1)
}

// EnsureIndexes mock index bootstrap
func (m *MockMessageRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockUserRepository Mock directory UserRepository
type MockUserRepository struct {
	mock.Mock
}

// FindByUserID mock directory lookup
func (m *MockUserRepository) FindByUserID(ctx context.Context, userID string) (*directorydomain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*directorydomain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByRole mock directory listing
func (m *MockUserRepository) ListByRole(ctx context.Context, role string) ([]directorydomain.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) != nil {
		return args.Get(0).([]directorydomain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRecentCache Mock RecentMessageCache
type MockRecentCache struct {
	mock.Mock
}

// Push mock cache prepend
func (m *MockRecentCache) Push(ctx context.Context, threadID string, msg *domain.Message) {
	m.Called(ctx, threadID, msg)
}

// Recent mock cache read
func (m *MockRecentCache) Recent(ctx context.Context, threadID string, limit int64) []domain.Message {
	args := m.Called(ctx, threadID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message)
	}
	return nil
}

// MockUnreadCounter Mock UnreadCounter
type MockUnreadCounter struct {
	mock.Mock
}

// Increment mock counter incr
func (m *MockUnreadCounter) Increment(ctx context.Context, userID, threadID string) {
	m.Called(ctx, userID, threadID)
}

// Get mock counter read
func (m *MockUnreadCounter) Get(ctx context.Context, userID, threadID string) int64 {
	args := m.Called(ctx, userID, threadID)
	return args.Get(0).(int64)
}

// Clear mock counter reset
func (m *MockUnreadCounter) Clear(ctx context.Context, userID, threadID string) {
	m.Called(ctx, userID, threadID)
}

// MockRelay Mock Relay
type MockRelay struct {
	mock.Mock
}

// Publish mock relay publish
func (m *MockRelay) Publish(ctx context.Context, channel string, event domain.WSEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

// Subscribe mock relay subscribe
func (m *MockRelay) Subscribe(ctx context.Context, channel string, handler func(event domain.WSEvent)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

// MockBroadcaster Mock ThreadBroadcaster
type MockBroadcaster struct {
	mock.Mock
}

// BroadcastThread mock thread fanout
func (m *MockBroadcaster) BroadcastThread(threadID string, event domain.WSEvent, excludeUserID string) {
	m.Called(threadID, event, excludeUserID)
}

// EmitToUser mock personal-group push
func (m *MockBroadcaster) EmitToUser(userID string, event domain.WSEvent) bool {
	args := m.Called(userID, event)
	return args.Bool(0)
}
