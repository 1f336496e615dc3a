package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"socialhub/config"
	"socialhub/internal/handler"
	"socialhub/internal/metrics"
	"socialhub/internal/middleware"
	"socialhub/internal/transport/httpdto"
	"socialhub/internal/websocket"
	"socialhub/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Chat      *handler.ChatHandler
	Message   *handler.MessageHandler
	Presence  *handler.PresenceHandler
	WebSocket *websocket.Handler
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker func(ctx context.Context) error

type Dependencies struct {
	Auth         middleware.Authenticator
	Limiter      middleware.MessageLimiter
	Metrics      *metrics.Metrics
	HealthChecks map[string]HealthChecker
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) SetupRoutes(handlers *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		for name, check := range deps.HealthChecks {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(name+": "+err.Error(), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	s.engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	v1 := s.engine.Group("/v1")
	v1.GET("/ws", handlers.WebSocket.Handle)

	api := v1.Group("", middleware.AuthMiddleware(deps.Auth))
	{
		api.GET("/chats", handlers.Chat.List)
		api.GET("/chats/:id", handlers.Chat.Get)
		api.POST("/chats/with/:userId", handlers.Chat.With)
		api.GET("/chats/:id/messages", handlers.Message.History)

		api.POST("/messages", middleware.MessageRateLimitMiddleware(deps.Limiter), handlers.Message.Send)
		api.PATCH("/messages/:id", handlers.Message.Edit)
		api.DELETE("/messages/:id", handlers.Message.Delete)

		api.GET("/users/:id/presence", handlers.Presence.Get)
	}
}

// Start listens in the background. Bind errors are returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Infof("Shutting down the server")
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}
	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}
	return nil
}
