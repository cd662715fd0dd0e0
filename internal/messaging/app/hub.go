package app

import (
	"encoding/json"
	"sync"

	"community_messaging_service/internal/messaging/domain"
	"community_messaging_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Conn is the narrow write surface the hub needs from a live
// connection, so tests can use fakes instead of real sockets.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// ThreadBroadcaster is what the use cases see of the hub.
type ThreadBroadcaster interface {
	BroadcastThread(threadID string, event domain.WSEvent, excludeUserID string)
	EmitToUser(userID string, event domain.WSEvent) bool
}

type hubClient struct {
	conn Conn
	mu   sync.Mutex // one writer at a time per socket
}

func (c *hubClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub owns this process's live connection groups: one personal group
// per user plus any number of thread groups. It is an injected instance,
// never package state, and everything it knows is process-local — a
// connection held by another process is reached through the Relay, not
// through here.
type Hub struct {
	mu sync.RWMutex

	clients     map[string]*hubClient      // userID -> connection
	threadUsers map[string]map[string]bool // threadID -> user set
	userThreads map[string]map[string]bool // userID -> thread set

	maxThreads int
}

// NewHub create a Hub; maxThreads caps thread groups per connection
func NewHub(maxThreads int) *Hub {
	return &Hub{
		clients:     map[string]*hubClient{},
		threadUsers: map[string]map[string]bool{},
		userThreads: map[string]map[string]bool{},
		maxThreads:  maxThreads,
	}
}

// Register place a connection into its personal group. A second
// connection for the same user replaces the first.
func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID] = &hubClient{conn: conn}
}

// Unregister drop the connection and leave every thread group. The
// conn must still be the registered one; when a reconnect has already
// replaced it the stale teardown is a no-op and Unregister reports
// false so the caller leaves presence alone too.
func (h *Hub) Unregister(userID string, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[userID]
	if !ok || c.conn != conn {
		return false
	}
	delete(h.clients, userID)
	for threadID := range h.userThreads[userID] {
		delete(h.threadUsers[threadID], userID)
		if len(h.threadUsers[threadID]) == 0 {
			delete(h.threadUsers, threadID)
		}
	}
	delete(h.userThreads, userID)
	return true
}

// JoinThread subscribe the user's connection to a thread group
func (h *Hub) JoinThread(userID, threadID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; !ok {
		return false
	}
	if h.userThreads[userID] == nil {
		h.userThreads[userID] = map[string]bool{}
	}
	if !h.userThreads[userID][threadID] && len(h.userThreads[userID]) >= h.maxThreads {
		return false
	}
	h.userThreads[userID][threadID] = true
	if h.threadUsers[threadID] == nil {
		h.threadUsers[threadID] = map[string]bool{}
	}
	h.threadUsers[threadID][userID] = true
	return true
}

// LeaveThread unsubscribe the user's connection from a thread group
func (h *Hub) LeaveThread(userID, threadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.userThreads[userID], threadID)
	delete(h.threadUsers[threadID], userID)
	if len(h.threadUsers[threadID]) == 0 {
		delete(h.threadUsers, threadID)
	}
}

// BroadcastThread push the event to every thread-group member except
// excludeUserID. A failed write is logged and skipped; live delivery is
// best-effort and the message log remains the catch-up path.
func (h *Hub) BroadcastThread(threadID string, event domain.WSEvent, excludeUserID string) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("hub marshal:", err, zap.String("thread_id", threadID))
		return
	}

	h.mu.RLock()
	targets := make([]*hubClient, 0, len(h.threadUsers[threadID]))
	for userID := range h.threadUsers[threadID] {
		if userID == excludeUserID {
			continue
		}
		if c, ok := h.clients[userID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			logger.Log.Errorf("hub broadcast write:", err, zap.String("thread_id", threadID))
		}
	}
}

// EmitToUser push the event to the user's personal group, reporting
// whether a local connection received it
func (h *Hub) EmitToUser(userID string, event domain.WSEvent) bool {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("hub marshal:", err, zap.String("user_id", userID))
		return false
	}

	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if err := c.write(data); err != nil {
		logger.Log.Errorf("hub emit write:", err, zap.String("user_id", userID))
		return false
	}
	return true
}
