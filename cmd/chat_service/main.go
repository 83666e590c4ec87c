package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "service_marketplace/cmd/chat_service/docs" // 引入生成的 Swagger 文档
	"service_marketplace/internal/chat/app"
	"service_marketplace/internal/chat/repository"
	"service_marketplace/internal/chat/router"
	memberdomain "service_marketplace/internal/member/domain"
	memberrepo "service_marketplace/internal/member/repository"
	"service_marketplace/pkg/config"
	"service_marketplace/pkg/database"
	"service_marketplace/pkg/logger"
	testtool "service_marketplace/pkg/test_tool"
	"service_marketplace/pkg/token"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	if config.EnvConfig.ChatServicePort != "" {
		cfg.Port = config.EnvConfig.ChatServicePort
	}
	token.SetSecret(cfg.JWT.Secret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 訊息儲存 (mongo 或 memory)
	clock := repository.NewClock(nil)
	var msgRepo repository.MessageRepository
	switch cfg.Store {
	case config.StoreMemory:
		logger.Log.Warn("message store is in memory, history is lost on restart")
		msgRepo = repository.NewMemoryMessageRepository(clock)
	default:
		uri := database.MongoURI(cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
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
				zap.String("host", cfg.MongoSQL.Host),
				zap.Error(err),
			)
		}
		defer mongo.Close(context.Background())

		if err := repository.EnsureMessageIndexes(ctx, mongo.Database, cfg.MongoSQL.Collection); err != nil {
			logger.Log.Fatal("ensure message indexes", zap.Error(err))
		}
		msgRepo = repository.NewMongoChatMessageRepository(mongo.Database, cfg.MongoSQL.Collection, clock)
	}

	// 2. 使用者目錄 (postgres 或 memory)
	var members memberrepo.MemberRepository = memberrepo.NewMemoryMemberRepository()
	if cfg.PostgreSQL.Enabled() {
		pool, err := database.NewDatabaseConnection(database.Connection{
			ConnectStr: database.PostgresURI(
				cfg.PostgreSQL.User,
				cfg.PostgreSQL.Password,
				cfg.PostgreSQL.Host,
				cfg.PostgreSQL.Port,
				cfg.PostgreSQL.Database,
			),
			RetryCount:    cfg.PostgreSQL.RetryCount,
			RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval) * time.Second,
		})
		if err != nil {
			logger.Log.Fatal("Unable to connect to postgreSQL database after retries", zap.String("host", cfg.PostgreSQL.Host), zap.Error(err))
		}
		defer pool.Close()
		members = memberrepo.NewMemberRepository(pool)
	} else {
		logger.Log.Warn("pg host not set, chat directory resolves no display names")
	}

	// 3. Redis: 跨節點 pub/sub 與顯示名稱快取
	var bridge app.Broadcaster
	if cfg.Redis.Enabled {
		masterName, sentinels, addr := config.GetRedisSetting()
		redisClient, err := database.NewRedisClient(masterName, sentinels, addr, cfg.Redis.RedisDB)
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
		}
		defer redisClient.Close()

		bridge = repository.NewRedisPubSub(redisClient)
		if ttl := cfg.Directory.TTL(); ttl > 0 {
			cache := database.NewRedisRepository[memberdomain.Member](redisClient, "chat:member:")
			members = memberrepo.NewCachedMemberRepository(members, cache, ttl)
		}
	}

	// 4. 初始化 UseCases
	presence := app.NewPresenceRouter(bridge)
	defer presence.Close()

	messageUC := app.NewMessageUseCase(msgRepo, presence, app.DefaultPipelineTimeout)
	directoryUC := app.NewDirectoryUseCase(msgRepo, members)

	// 5. 啟動 Fiber
	r := fiber.New(fiber.Config{AppName: config.EnvConfig.ChatService})
	file, err := os.OpenFile(filepath.Join(config.EnvConfig.ChatServiceLogPath, "access.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	// 注册路由
	router.RegisterRoutes(ctx, r,
		app.NewChatHandler(messageUC, directoryUC),
		app.NewChatWebsocketHandler(messageUC, directoryUC, presence, cfg.Websocket),
		router.Options{AllowedOrigins: cfg.AllowedOrigins, AccessLog: file},
	)

	testtool.StartPprof(cfg.Pprof, testtool.DefaultPprofAddr)

	go func() {
		<-ctx.Done()
		logger.Log.Info("Chat Service shutting down")
		if err := r.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Log.Warn("fiber shutdown", zap.Error(err))
		}
	}()

	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}
