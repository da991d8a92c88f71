package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dum-man/messenger/config"
	"github.com/dum-man/messenger/internal/handler"
	"github.com/dum-man/messenger/internal/middleware"
	"github.com/dum-man/messenger/internal/session"
	"github.com/dum-man/messenger/internal/transport/httpdto"
	"github.com/dum-man/messenger/pkg/database"
	"github.com/dum-man/messenger/pkg/logger"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

type Handlers struct {
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	User         *handler.UserHandler
	WebSocket    *WebSocketHandler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.Server.Environment == logger.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, provider session.Provider, db *gorm.DB) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(db); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	// The subscription endpoint authenticates during the upgrade itself.
	s.engine.GET("/v1/subscribe", handlers.WebSocket.Handle)

	api := s.engine.Group("/v1", middleware.AuthMiddleware(provider))
	{
		api.GET("/conversations", handlers.Conversation.List)
		api.POST("/conversations", handlers.Conversation.Create)
		api.DELETE("/conversations/:id", handlers.Conversation.Delete)
		api.POST("/conversations/:id/read", handlers.Conversation.MarkAsRead)
		api.GET("/conversations/:id/messages", handlers.Message.List)
		api.POST("/messages", handlers.Message.Send)
		api.GET("/users/search", handlers.User.Search)
		api.POST("/users/username", handlers.User.CreateUsername)
	}
}

func (s *Server) Start() error {
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	s.logger.Infof("Quitting signal received, shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
