package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	directoryrepo "community_messaging_service/internal/directory/repository"
	"community_messaging_service/internal/messaging/api/handlers"
	"community_messaging_service/internal/messaging/api/router"
	"community_messaging_service/internal/messaging/app"
	"community_messaging_service/internal/messaging/repository"
	"community_messaging_service/pkg/config"
	"community_messaging_service/pkg/database"
	"community_messaging_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

const maxThreadsPerConnection = 64

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.MessagingService, config.EnvConfig.MessagingServiceLogPath)
	logger.Log.SetDebugMode(config.IsLocal())
	cfg := config.LoadConfig[config.Messaging](config.EnvConfig.MessagingService, config.EnvConfig.MessagingServiceYAMLPath)

	// Mongo holds the message log, the single source of truth
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// Redis backs every advisory store: presence, recent cache,
	// unread counters and the cross-process relay
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// PostgreSQL holds the user directory
	pgURI := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pgPool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    pgURI,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval) * time.Second,
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect postgres err : %v", err))
	}
	defer pgPool.Close()

	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	if err := msgRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal(fmt.Sprintf("ensure message indexes err : %v", err))
	}
	userRepo := directoryrepo.NewUserRepository(pgPool)
	presence := repository.NewRedisPresenceRepository(redisClient, cfg.Presence.ConnectionTTL, cfg.Presence.OnlineTTL)
	cache := repository.NewRedisRecentCache(redisClient, int64(cfg.Cache.RecentLimit), cfg.Cache.TTL)
	counter := repository.NewRedisUnreadCounter(redisClient, cfg.Cache.TTL)
	relay := repository.NewRedisRelay(redisClient)

	hub := app.NewHub(maxThreadsPerConnection)
	messageUC := app.NewMessageUseCase(msgRepo, userRepo, cache, counter, relay, hub)
	gateway := app.NewGatewayHandler(messageUC, hub, presence, relay)

	r := fiber.New()
	if config.IsProduction() {
		file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.MessagingServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer file.Close()
		r.Use(fiber_log.New(fiber_log.Config{
			Output: file,
		}))
	} else {
		r.Use(fiber_log.New())
	}

	router.RegisterRoutes(r, handlers.NewMessageHandler(messageUC, userRepo, presence), gateway)

	listenOn := cfg.Port
	if listenOn == "" {
		listenOn = config.EnvConfig.MessagingServicePort
	}
	port := ":" + listenOn
	log.Printf("Messaging Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
