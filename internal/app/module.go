package app

import (
	"context"
	"fmt"

	"socialhub/config"
	"socialhub/internal/handler"
	"socialhub/internal/jobs"
	"socialhub/internal/metrics"
	"socialhub/internal/redis"
	"socialhub/internal/repository"
	"socialhub/internal/server"
	"socialhub/internal/services"
	"socialhub/internal/websocket"
	"socialhub/pkg/database"
	"socialhub/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module composes the API process: storage, services, the WebSocket hub,
// the HTTP server and background jobs.
func Module(cfg *config.Config) fx.Option {
	return fx.Module("socialhub",
		fx.Supply(cfg),
		fx.Provide(
			provideLogger,
			provideDatabase,
			provideRedis,
			providePresenceStore,
			metrics.New,
			repository.NewTransactor,
			repository.NewUserRepository,
			repository.NewPostRepository,
			repository.NewChatRepository,
			repository.NewMessageRepository,
			provideUserService,
			services.NewPostService,
			provideChatService,
			provideMessageService,
			services.NewHistoryService,
			provideAuthService,
			websocket.NewRegistry,
			websocket.NewLogger,
			websocket.NewDispatcher,
			provideRouter,
			provideHub,
			provideWebSocketHandler,
			provideHandlers,
			providePresenceSweeper,
			provideServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

// EventLogger routes fx lifecycle events through the application logger.
func EventLogger() fx.Option {
	return fx.WithLogger(func(l *logger.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: l.Named("fx")}
	})
}

func provideLogger(cfg *config.Config) *logger.Logger {
	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	return l
}

func provideDatabase(cfg *config.Config, l *logger.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	l.Infof("Database connection established")
	return db, nil
}

// provideRedis returns nil when Redis is disabled; every consumer treats a
// nil client as "feature off".
func provideRedis(cfg *config.Config, l *logger.Logger) (*goredis.Client, error) {
	if !cfg.RedisEnabled {
		l.Warnf("Redis disabled: presence, caching and REST rate limits are off")
		return nil, nil
	}
	client := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redis.Ping(context.Background(), client); err != nil {
		return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.RedisAddr(), err)
	}
	return client, nil
}

// providePresenceStore returns nil without Redis. Consumers convert it to
// their own interfaces only when non-nil.
func providePresenceStore(cfg *config.Config, client *goredis.Client) *redis.PresenceStore {
	if client == nil {
		return nil
	}
	return redis.NewPresenceStore(client, cfg.PresenceTTL, cfg.InstanceID)
}

func provideUserService(repo repository.UserRepository, client *goredis.Client, l *logger.Logger) *services.UserService {
	var cache *redis.CacheStore
	if client != nil {
		cache = redis.NewCacheStore(client, redis.DefaultCacheConfig())
	}
	return services.NewUserService(repo, cache, l)
}

func provideChatService(chats repository.ChatRepository, users *services.UserService) *services.ChatService {
	return services.NewChatService(chats, users)
}

func provideMessageService(tx repository.Transactor, chats repository.ChatRepository, messages repository.MessageRepository, posts *services.PostService) *services.MessageService {
	return services.NewMessageService(tx, chats, messages, posts)
}

func provideAuthService(users *services.UserService, cfg *config.Config) *services.AuthService {
	return services.NewAuthService(users, cfg)
}

func provideRouter(chats *services.ChatService, messages *services.MessageService, history *services.HistoryService, d *websocket.Dispatcher, m *metrics.Metrics, log *websocket.Logger) *websocket.Router {
	return websocket.NewRouter(chats, messages, history, d, m, log)
}

func provideHub(cfg *config.Config, registry *websocket.Registry, d *websocket.Dispatcher, router *websocket.Router, chats *services.ChatService, store *redis.PresenceStore, m *metrics.Metrics, log *websocket.Logger) *websocket.Hub {
	var presence websocket.PresenceRecorder
	if store != nil {
		presence = store
	}
	hubCfg := websocket.HubConfig{
		SendBuffer:      cfg.WSSendBuffer,
		EventsPerSecond: cfg.WSEventsPerSecond,
		EventBurst:      cfg.WSEventBurst,
	}
	return websocket.NewHub(hubCfg, registry, d, router, chats, presence, m, log)
}

func provideWebSocketHandler(hub *websocket.Hub, auth *services.AuthService) *websocket.Handler {
	return websocket.NewHandler(hub, auth)
}

func provideHandlers(chats *services.ChatService, messages *services.MessageService, history *services.HistoryService, users *services.UserService, registry *websocket.Registry, d *websocket.Dispatcher, ws *websocket.Handler, store *redis.PresenceStore, m *metrics.Metrics) *server.Handlers {
	var presence handler.PresenceReader
	if store != nil {
		presence = store
	}
	return &server.Handlers{
		Chat:      handler.NewChatHandler(chats),
		Message:   handler.NewMessageHandler(messages, history, d, m),
		Presence:  handler.NewPresenceHandler(users, registry, presence),
		WebSocket: ws,
	}
}

// providePresenceSweeper returns nil without Redis.
func providePresenceSweeper(cfg *config.Config, store *redis.PresenceStore, registry *websocket.Registry, m *metrics.Metrics, l *logger.Logger) (*jobs.PresenceSweeper, error) {
	if store == nil {
		return nil, nil
	}
	return jobs.NewPresenceSweeper(store, registry, m, cfg.PresenceSweepCron, cfg.PresenceTTL, l)
}

func provideServer(cfg *config.Config, l *logger.Logger, handlers *server.Handlers, auth *services.AuthService, db *gorm.DB, client *goredis.Client, m *metrics.Metrics) *server.Server {
	deps := server.Dependencies{
		Auth:    auth,
		Metrics: m,
		HealthChecks: map[string]server.HealthChecker{
			"database": func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
		},
	}
	if client != nil {
		deps.Limiter = redis.NewRateLimiter(client, redis.RateLimitConfig{
			MessageLimit:  cfg.MessageRateLimit,
			MessageWindow: redis.DefaultRateLimitConfig().MessageWindow,
		})
		deps.HealthChecks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, client) }
	}

	s := server.New(cfg, l)
	s.SetupRoutes(handlers, deps)
	return s
}

func registerLifecycle(lc fx.Lifecycle, srv *server.Server, hub *websocket.Hub, sweeper *jobs.PresenceSweeper, db *gorm.DB, client *goredis.Client, l *logger.Logger) {
	var stopHub, stopSweeper context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			var hubCtx context.Context
			hubCtx, stopHub = context.WithCancel(context.Background())
			go hub.Run(hubCtx)

			if sweeper != nil {
				stopSweeper = sweeper.Start(context.Background())
			}
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			err := srv.Shutdown(ctx)
			if stopSweeper != nil {
				stopSweeper()
			}
			if stopHub != nil {
				stopHub()
			}
			if client != nil {
				if cerr := client.Close(); cerr != nil {
					l.Logger.Warn("redis close failed", zap.Error(cerr))
				}
			}
			if cerr := database.Close(db); cerr != nil {
				l.Logger.Warn("database close failed", zap.Error(cerr))
			}
			l.Sync()
			return err
		},
	})
}
