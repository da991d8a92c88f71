package main

import (
	"log"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/dum-man/messenger/config"
	"github.com/dum-man/messenger/internal/events"
	"github.com/dum-man/messenger/internal/handler"
	"github.com/dum-man/messenger/internal/repository"
	"github.com/dum-man/messenger/internal/server"
	"github.com/dum-man/messenger/internal/services"
	"github.com/dum-man/messenger/internal/session"
	"github.com/dum-man/messenger/pkg/database"
	"github.com/dum-man/messenger/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	defer l.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		l.Errorf("Failed to connect to database: %v", err)
		return
	}
	if err := database.Migrate(db); err != nil {
		l.Errorf("Failed to apply migrations: %v", err)
		return
	}

	bus := events.NewInProcessBus()
	bus.DroppedFn = func(event events.Event) {
		l.Warnf("event bus dropped %s for a slow subscriber", event.Type())
	}

	var relay *events.RedisRelay
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		relay = events.NewRedisRelay(rdb, bus, uuid.New().String(), l)
		if err := relay.Start(); err != nil {
			l.Errorf("Failed to start redis relay: %v", err)
			return
		}
		defer relay.Stop()
	}

	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	conversationService := services.NewConversationService(db, convRepo, bus, l)
	messageService := services.NewMessageService(db, messageRepo, convRepo, bus, l)
	userService := services.NewUserService(userRepo, l)

	provider := session.NewJWTProvider(cfg.JWT.Secret)

	wsLogger := server.NewWebSocketLogger(l.Logger)
	hub := server.NewHub(conversationService, wsLogger)
	go hub.Run()
	defer hub.Stop()

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Conversation: handler.NewConversationHandler(conversationService),
		Message:      handler.NewMessageHandler(messageService),
		User:         handler.NewUserHandler(userService),
		WebSocket:    server.NewWebSocketHandler(hub, bus, provider, wsLogger),
	}, provider, db)

	if err := srv.Start(); err != nil {
		l.Errorf("Server shutdown error: %v", err)
	}
}
