package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/thenetcircle/dino-framework/internal/cache"
	"github.com/thenetcircle/dino-framework/internal/config"
	"github.com/thenetcircle/dino-framework/internal/events"
	"github.com/thenetcircle/dino-framework/internal/handlers"
	"github.com/thenetcircle/dino-framework/internal/logging"
	"github.com/thenetcircle/dino-framework/internal/metrics"
	"github.com/thenetcircle/dino-framework/internal/msglog"
	"github.com/thenetcircle/dino-framework/internal/repository"
	"github.com/thenetcircle/dino-framework/internal/service"
)

func main() {
	cfg := config.Load()

	zlog, err := logging.New()
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	metrics.Init()

	// Cursor store (postgres)
	db, err := repository.InitDB(cfg)
	if err != nil {
		zlog.Fatal("could not connect to database", zap.Error(err))
	}

	// Message log (mongo)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		zlog.Fatal("could not connect to mongo", zap.Error(err))
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		zlog.Fatal("could not reach mongo", zap.Error(err))
	}
	messageLog := msglog.NewStore(mongoClient.Database(cfg.MongoDatabase), zlog)

	// Unread cache (redis, optional)
	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisCache.Ping(); err != nil {
		zlog.Warn("redis connection failed, running without cache", zap.Error(err))
		redisCache = nil
	}
	unreadCache := cache.NewUnreadCache(redisCache)

	// Event publisher (kafka, optional)
	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, zlog)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		zlog.Warn("no kafka brokers configured, events disabled")
	}

	groupRepo := repository.NewGroupRepository(db)
	statsRepo := repository.NewUserGroupStatsRepository(db)
	conversations := service.NewConversationService(groupRepo, statsRepo, messageLog, unreadCache, publisher, zlog)

	groupHandler := handlers.NewGroupHandler(conversations)
	messageHandler := handlers.NewMessageHandler(conversations)
	userHandler := handlers.NewUserHandler(conversations)

	app := fiber.New(fiber.Config{
		AppName: "dino-framework",
	})
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New())

	v1 := app.Group("/v1")

	// User-scoped routes
	v1.Post("/users/:user_id/groups/create", groupHandler.CreateGroup)
	v1.Get("/users/:user_id/groups", groupHandler.GetUserGroups)
	v1.Get("/users/:user_id/groups/:other_id", userHandler.GetOneToOneInfo)
	v1.Get("/users/:user_id/stats", userHandler.GetUserStats)
	v1.Post("/users/:user_id/send/:receiver_id", messageHandler.SendToUser)

	// Group-scoped routes
	v1.Put("/groups/:group_id", groupHandler.UpdateGroup)
	v1.Get("/groups/:group_id/users", groupHandler.GetGroupUsers)
	v1.Put("/groups/:group_id/user/:user_id/join", groupHandler.JoinGroup)
	v1.Delete("/groups/:group_id/user/:user_id/join", groupHandler.LeaveGroup)
	v1.Get("/groups/:group_id/user/:user_id/histories", groupHandler.GetHistories)
	v1.Get("/groups/:group_id/user/:user_id", userHandler.GetUserGroupStats)
	v1.Put("/groups/:group_id/user/:user_id/update", userHandler.UpdateUserGroupStats)
	v1.Post("/groups/:group_id/user/:user_id/send", messageHandler.SendToGroup)

	// Messages & attachments
	v1.Delete("/groups/:group_id/user/:user_id/message/:message_id", messageHandler.DeleteMessage)
	v1.Delete("/groups/:group_id/messages", messageHandler.DeleteGroupMessages)
	v1.Delete("/groups/:group_id/user/:user_id/messages", messageHandler.DeleteUserMessages)
	v1.Post("/groups/:group_id/user/:user_id/message/:message_id/attachment", messageHandler.CreateAttachment)
	v1.Get("/groups/:group_id/attachment", messageHandler.GetAttachment)
	v1.Delete("/groups/:group_id/attachment", messageHandler.DeleteAttachment)
	v1.Delete("/groups/:group_id/user/:user_id/attachments", messageHandler.DeleteUserAttachments)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	zlog.Info("server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
