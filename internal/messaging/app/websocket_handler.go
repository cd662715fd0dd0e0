package app

import (
	"context"
	"encoding/json"
	"time"

	"community_messaging_service/internal/messaging/domain"
	"community_messaging_service/internal/messaging/repository"
	"community_messaging_service/pkg/logger"
	"community_messaging_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// presenceRefreshInterval drives both the ping ticker and the online
// flag TTL renewal; it must stay below the online TTL.
const presenceRefreshInterval = time.Minute

// GatewayHandler serves one websocket connection per live client
type GatewayHandler struct {
	messageUC *MessageUseCase
	hub       *Hub
	presence  repository.PresenceRepository
	relay     repository.Relay
}

// NewGatewayHandler create GatewayHandler
func NewGatewayHandler(
	messageUC *MessageUseCase,
	hub *Hub,
	presence repository.PresenceRepository,
	relay repository.Relay,
) *GatewayHandler {
	return &GatewayHandler{
		messageUC: messageUC,
		hub:       hub,
		presence:  presence,
		relay:     relay,
	}
}

// HandleConnection is the websocket entry point. The JWT middleware has
// already vetted the handshake credential; a connection without a
// verified identity is torn down before it joins any group.
func (h *GatewayHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenUserID)
	userID, ok := tokenUser.(string)
	if !ok || userID == "" {
		logger.Log.Warn("websocket without verified identity, closing")
		conn.Close()
		return
	}
	logger.Log.Info("websocket joined", zap.String("user_id", userID))

	handle := uuid.New().String()
	ticker := time.NewTicker(presenceRefreshInterval)
	ctxClose, cancel := context.WithCancel(context.Background())

	h.hub.Register(userID, conn)
	h.presence.SetConnection(ctx, userID, handle)
	h.presence.SetOnline(ctx, userID)

	defer func() {
		ticker.Stop()
		cancel()
		// a reconnect may already own the registration; only the
		// current holder tears down presence
		if h.hub.Unregister(userID, conn) {
			h.presence.ClearConnection(context.Background(), userID)
			h.presence.SetOffline(context.Background(), userID)
		}
		logger.Log.Info("websocket close", zap.String("user_id", userID))
		conn.Close()
	}()

	// fiber answers close frames itself, the handler only observes
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	// a pong means the peer is alive, refresh its online flag
	conn.SetPongHandler(func(appData string) error {
		h.presence.SetOnline(context.Background(), userID)
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// events published for this user by any process land here
	if err := h.relay.Subscribe(ctxClose, repository.UserChannel(userID), func(event domain.WSEvent) {
		h.hub.EmitToUser(userID, event)
	}); err != nil {
		logger.Log.Errorf("relay subscribe:", err, zap.String("user_id", userID))
	}

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
				h.presence.SetOnline(context.Background(), userID)
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("user_id", userID))
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			h.sendError(userID, "unknown message type")
			continue
		}
		h.execWebsocketAction(ctx, userID, message)
	}
}

func (h *GatewayHandler) execWebsocketAction(ctx context.Context, userID string, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("json unmarshal error:", err)
		h.sendError(userID, "malformed request")
		return
	}

	// every client event carries a thread id, and the caller must be a
	// participant of that thread
	otherID, memberOf := domain.ThreadCounterpart(req.ThreadID, userID)
	if !memberOf {
		h.sendError(userID, "not a participant of thread "+req.ThreadID)
		return
	}

	switch domain.Action(req.Action) {
	case domain.JoinThread:
		if !h.hub.JoinThread(userID, req.ThreadID) {
			h.sendError(userID, "cannot join thread "+req.ThreadID)
		}

	case domain.LeaveThread:
		h.hub.LeaveThread(userID, req.ThreadID)

	case domain.TypingStart:
		h.hub.BroadcastThread(req.ThreadID, domain.WSEvent{
			Event: domain.EventUserTyping,
			Payload: map[string]interface{}{
				"user_id":   userID,
				"thread_id": req.ThreadID,
			},
		}, userID)

	case domain.TypingStop:
		h.hub.BroadcastThread(req.ThreadID, domain.WSEvent{
			Event: domain.EventUserStoppedTyping,
			Payload: map[string]interface{}{
				"user_id":   userID,
				"thread_id": req.ThreadID,
			},
		}, userID)

	case domain.MarkMessagesRead:
		count, err := h.messageUC.MarkRead(ctx, userID, otherID)
		if err != nil {
			logger.Log.Errorf("gateway mark read:", err, zap.String("thread_id", req.ThreadID))
			h.sendError(userID, "mark read failed")
			return
		}
		if count > 0 {
			h.hub.BroadcastThread(req.ThreadID, domain.WSEvent{
				Event: domain.EventMessagesRead,
				Payload: map[string]interface{}{
					"user_id":   userID,
					"thread_id": req.ThreadID,
					"count":     count,
				},
			}, userID)
		}

	case domain.RefreshMessages:
		// manual reconciliation hatch: hand the caller the recent
		// window and nudge the other side to re-pull
		messages, err := h.messageUC.RecentMessages(ctx, req.ThreadID, 50)
		if err != nil {
			logger.Log.Errorf("gateway refresh:", err, zap.String("thread_id", req.ThreadID))
			h.sendError(userID, "refresh failed")
			return
		}
		h.hub.EmitToUser(userID, domain.WSEvent{
			Event: domain.EventRefreshRequested,
			Payload: map[string]interface{}{
				"thread_id": req.ThreadID,
				"messages":  messages,
			},
		})
		h.hub.BroadcastThread(req.ThreadID, domain.WSEvent{
			Event: domain.EventRefreshRequested,
			Payload: map[string]interface{}{
				"thread_id": req.ThreadID,
			},
		}, userID)

	default:
		h.sendError(userID, "unknown action "+req.Action)
	}
}

func (h *GatewayHandler) sendError(userID, errorMsg string) {
	h.hub.EmitToUser(userID, domain.WSEvent{
		Event: domain.EventError,
		Error: errorMsg,
	})
}
