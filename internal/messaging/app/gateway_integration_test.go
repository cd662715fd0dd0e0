package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	directorydomain "community_messaging_service/internal/directory/domain"
	"community_messaging_service/internal/messaging/api/handlers"
	"community_messaging_service/internal/messaging/api/router"
	"community_messaging_service/internal/messaging/app"
	"community_messaging_service/internal/messaging/domain"
	"community_messaging_service/internal/messaging/repository"
	"community_messaging_service/pkg/database"
	"community_messaging_service/pkg/logger"
	testtool "community_messaging_service/pkg/test_tool"
	"community_messaging_service/pkg/token"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const gatewayAddr = "127.0.0.1:8093"

var (
	integrationEnv bool
	mongoContainer testcontainers.Container
	redisContainer testcontainers.Container
	redisClient    *redis.Client
	recentCache    repository.RecentMessageCache
	gatewayApp     *fiber.App
)

// TestMain boot a throwaway Mongo and Redis plus the full messaging
// stack. When no container runtime is around the wired tests skip and
// the in-memory ones still run.
func TestMain(m *testing.M) {
	ctx := context.Background()
	logger.SetNewNop()

	code := func() int {
		var err error
		var mongoHost, mongoPort, redisHost, redisPort string

		mongoContainer, mongoHost, mongoPort, err = testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
			Image:        "mongo:latest",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		})
		if err != nil {
			fmt.Printf("no container runtime, wired tests will skip: %v\n", err)
			return m.Run()
		}
		defer mongoContainer.Terminate(ctx)

		redisContainer, redisHost, redisPort, err = testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		})
		if err != nil {
			fmt.Printf("no container runtime, wired tests will skip: %v\n", err)
			return m.Run()
		}
		defer redisContainer.Terminate(ctx)

		mongo, err := database.NewMongoDB(ctx, database.Connection{
			ConnectStr:    fmt.Sprintf("mongodb://%s:%s", mongoHost, mongoPort),
			RetryCount:    5,
			RetryInterval: 5 * time.Second,
		}, "test_messaging_db")
		if err != nil {
			log.Fatalf("connect to MongoDB: %v", err)
		}
		defer mongo.Close(ctx)

		redisClient = redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%s", redisHost, redisPort),
			DB:   0,
		})

		msgRepo := repository.NewMongoMessageRepository(mongo.Database)
		if err := msgRepo.EnsureIndexes(ctx); err != nil {
			log.Fatalf("ensure indexes: %v", err)
		}
		recentCache = repository.NewRedisRecentCache(redisClient, 100, 24*time.Hour)
		counter := repository.NewRedisUnreadCounter(redisClient, 24*time.Hour)
		presence := repository.NewRedisPresenceRepository(redisClient, 30*time.Second, 2*time.Minute)
		relay := repository.NewRedisRelay(redisClient)

		// the directory lives in Postgres in production; here every
		// lookup succeeds so the messaging paths stay in focus
		userDirectory := new(app.MockUserRepository)
		userDirectory.On("FindByUserID", mock.Anything, mock.Anything).
			Return(&directorydomain.User{Status: directorydomain.UserStatusActive}, nil)
		userDirectory.On("ListByRole", mock.Anything, mock.Anything).
			Return([]directorydomain.User{}, nil)

		hub := app.NewHub(64)
		messageUC := app.NewMessageUseCase(msgRepo, userDirectory, recentCache, counter, relay, hub)
		gateway := app.NewGatewayHandler(messageUC, hub, presence, relay)

		gatewayApp = fiber.New()
		router.RegisterRoutes(gatewayApp, handlers.NewMessageHandler(messageUC, userDirectory, presence), gateway)

		go func() {
			if err := gatewayApp.Listen(gatewayAddr); err != nil {
				log.Fatalf("start gateway: %v", err)
			}
		}()
		defer gatewayApp.Shutdown()
		time.Sleep(2 * time.Second)

		integrationEnv = true
		return m.Run()
	}()

	os.Exit(code)
}

func requireEnv(t *testing.T) {
	t.Helper()
	if !integrationEnv {
		t.Skip("integration environment not available")
	}
}

func memberToken(t *testing.T, userID string) string {
	t.Helper()
	tok, err := token.GenerateJWT(userID, string(token.RoleMember), "gateway-test")
	assert.NoError(t, err)
	return tok
}

func apiCall(t *testing.T, method, path, tok string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, "http://"+gatewayAddr+path, &buf)
	assert.NoError(t, err)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tok)

	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()

	payload := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp.StatusCode, payload
}

func dialGateway(t *testing.T, tok string) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial("ws://"+gatewayAddr+"/ws?auth="+tok, nil)
	assert.NoError(t, err)
	assert.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	return conn
}

func readEvent(t *testing.T, conn *gws.Conn) domain.WSEvent {
	t.Helper()
	_, frame, err := conn.ReadMessage()
	assert.NoError(t, err)
	var ev domain.WSEvent
	assert.NoError(t, json.Unmarshal(frame, &ev))
	return ev
}

func TestGatewayRejectsUnverifiedHandshake(t *testing.T) {
	requireEnv(t)

	_, resp, err := gws.DefaultDialer.Dial("ws://"+gatewayAddr+"/ws", nil)
	assert.ErrorIs(t, err, gws.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = gws.DefaultDialer.Dial("ws://"+gatewayAddr+"/ws?auth=not-a-token", nil)
	assert.ErrorIs(t, err, gws.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSendReachesJoinedRecipient(t *testing.T) {
	requireEnv(t)
	aliceID := uuid.New().String()
	bobID := uuid.New().String()
	threadID := domain.ThreadKey(aliceID, bobID)

	bob := dialGateway(t, memberToken(t, bobID))
	defer bob.Close()

	join, _ := json.Marshal(domain.WSRequest{Action: string(domain.JoinThread), ThreadID: threadID})
	assert.NoError(t, bob.WriteMessage(gws.TextMessage, join))
	time.Sleep(500 * time.Millisecond)

	status, created := apiCall(t, http.MethodPost, "/api/messages", memberToken(t, aliceID), fiber.Map{
		"recipient_id": bobID,
		"content":      "knock knock",
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, threadID, created["thread_id"])

	// thread group carries the message, personal group the alert
	seen := map[domain.Event]domain.WSEvent{}
	for i := 0; i < 2; i++ {
		ev := readEvent(t, bob)
		seen[ev.Event] = ev
	}
	newMsg, ok := seen[domain.EventNewMessage]
	assert.True(t, ok, "no new-message frame")
	assert.Equal(t, threadID, newMsg.Payload["thread_id"])
	alert, ok := seen[domain.EventNotification]
	assert.True(t, ok, "no notification frame")
	assert.Equal(t, aliceID, alert.Payload["sender_id"])
}

func TestMarkReadDrainsUnreadCount(t *testing.T) {
	requireEnv(t)
	aliceID := uuid.New().String()
	bobID := uuid.New().String()
	aliceTok := memberToken(t, aliceID)
	bobTok := memberToken(t, bobID)

	for i := 0; i < 3; i++ {
		status, _ := apiCall(t, http.MethodPost, "/api/messages", aliceTok, fiber.Map{
			"recipient_id": bobID,
			"content":      fmt.Sprintf("msg %d", i),
		})
		assert.Equal(t, http.StatusCreated, status)
	}

	status, payload := apiCall(t, http.MethodGet, "/api/messages/unread-count", bobTok, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), payload["unread_count"])

	status, payload = apiCall(t, http.MethodPut, "/api/messages/mark-read/"+aliceID, bobTok, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), payload["marked_read"])

	// a repeat flips nothing
	status, payload = apiCall(t, http.MethodPut, "/api/messages/mark-read/"+aliceID, bobTok, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), payload["marked_read"])

	status, payload = apiCall(t, http.MethodGet, "/api/messages/unread-count", bobTok, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), payload["unread_count"])
}

func TestRecentCacheKeepsNewestHundredChronological(t *testing.T) {
	requireEnv(t)
	ctx := context.Background()
	threadID := domain.ThreadKey(uuid.New().String(), uuid.New().String())

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 120; i++ {
		recentCache.Push(ctx, threadID, &domain.Message{
			ID:        fmt.Sprintf("m%d", i),
			ThreadID:  threadID,
			Content:   fmt.Sprintf("entry %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	window := recentCache.Recent(ctx, threadID, 100)
	assert.Len(t, window, 100)
	assert.Equal(t, "m20", window[0].ID)
	assert.Equal(t, "m119", window[99].ID)
}

func TestCacheLossLeavesConversationIntact(t *testing.T) {
	requireEnv(t)
	aliceID := uuid.New().String()
	bobID := uuid.New().String()
	threadID := domain.ThreadKey(aliceID, bobID)
	aliceTok := memberToken(t, aliceID)

	for _, content := range []string{"first", "second"} {
		status, _ := apiCall(t, http.MethodPost, "/api/messages", aliceTok, fiber.Map{
			"recipient_id": bobID,
			"content":      content,
		})
		assert.Equal(t, http.StatusCreated, status)
	}

	// losing the advisory copy must not lose history
	assert.NoError(t, redisClient.Del(context.Background(), "thread:recent:"+threadID).Err())

	status, payload := apiCall(t, http.MethodGet, "/api/messages/conversation/"+aliceID, memberToken(t, bobID), nil)
	assert.Equal(t, http.StatusOK, status)
	messages, ok := payload["messages"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, messages, 2)
	first, _ := messages[0].(map[string]interface{})
	assert.Equal(t, "first", first["content"])
}

func TestPresenceRegistryLifecycle(t *testing.T) {
	requireEnv(t)
	ctx := context.Background()
	presence := repository.NewRedisPresenceRepository(redisClient, time.Minute, time.Minute)
	userID := uuid.New().String()

	// absence is the normal zero state
	_, ok := presence.GetConnection(ctx, userID)
	assert.False(t, ok)
	assert.False(t, presence.IsOnline(ctx, userID))

	handle := uuid.New().String()
	presence.SetConnection(ctx, userID, handle)
	presence.SetOnline(ctx, userID)

	got, ok := presence.GetConnection(ctx, userID)
	assert.True(t, ok)
	assert.Equal(t, handle, got)
	assert.True(t, presence.IsOnline(ctx, userID))

	presence.SetOffline(ctx, userID)
	assert.False(t, presence.IsOnline(ctx, userID))
	got, ok = presence.GetConnection(ctx, userID)
	assert.True(t, ok, "going offline keeps the handle until the connection clears it")
	assert.Equal(t, handle, got)

	presence.ClearConnection(ctx, userID)
	_, ok = presence.GetConnection(ctx, userID)
	assert.False(t, ok)
}

func TestPresenceEntriesExpire(t *testing.T) {
	requireEnv(t)
	ctx := context.Background()
	presence := repository.NewRedisPresenceRepository(redisClient, time.Second, time.Second)
	userID := uuid.New().String()

	presence.SetConnection(ctx, userID, uuid.New().String())
	presence.SetOnline(ctx, userID)
	assert.True(t, presence.IsOnline(ctx, userID))

	// a crashed process writes nothing more; both leases lapse
	time.Sleep(1500 * time.Millisecond)

	assert.False(t, presence.IsOnline(ctx, userID))
	_, ok := presence.GetConnection(ctx, userID)
	assert.False(t, ok)
}

func TestConnectionHandshakeWritesPresence(t *testing.T) {
	requireEnv(t)
	presence := repository.NewRedisPresenceRepository(redisClient, 30*time.Second, 2*time.Minute)
	userID := uuid.New().String()

	conn := dialGateway(t, memberToken(t, userID))
	time.Sleep(500 * time.Millisecond)

	ctx := context.Background()
	assert.True(t, presence.IsOnline(ctx, userID))
	handle, ok := presence.GetConnection(ctx, userID)
	assert.True(t, ok)
	assert.NotEmpty(t, handle)

	conn.Close()
	time.Sleep(500 * time.Millisecond)

	assert.False(t, presence.IsOnline(ctx, userID))
	_, ok = presence.GetConnection(ctx, userID)
	assert.False(t, ok)
}
