package daemon

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"skillswap/internal/bus"
	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/connection"
	"skillswap/internal/conversation"
	"skillswap/internal/durable"
	"skillswap/internal/handler"
	"skillswap/internal/lock"
	"skillswap/internal/logging"
	"skillswap/internal/notify"
	"skillswap/internal/profile"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string // optional override for testing; empty = use default
	Durable     config.Durable
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideCache,
			provideDurable,
			provideNotifier,
			provideConnectionManager,
			provideConversationManager,
			provideRouter,
			handler.NewConnectionHandler,
			handler.NewConversationHandler,
			handler.NewNotificationHandler,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideCache(p Params, logger *zap.Logger) (*cache.DB, error) {
	dbPath := profile.CacheDBPath(p.ProfileName)
	db, err := cache.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", dbPath))
	return db, nil
}

func provideDurable(p Params, logger *zap.Logger) (durable.Adapter, error) {
	switch p.Durable.Driver {
	case "", "memory":
		logger.Info("durable store: in-memory (offline demo mode)")
		return durable.NewMemory(), nil
	case "postgres":
		logger.Info("durable store: postgres")
		return durable.OpenPostgres(p.Durable.DSN)
	default:
		return nil, fmt.Errorf("unknown durable driver %q", p.Durable.Driver)
	}
}

func provideNotifier(db *cache.DB, b *bus.Bus, logger *zap.Logger) *notify.Notifier {
	return notify.New(db, b, logger)
}

func provideConnectionManager(p Params, db *cache.DB, d durable.Adapter, b *bus.Bus, n *notify.Notifier, logger *zap.Logger) *connection.Manager {
	return connection.NewManager(db, d, b, n, logger, p.ProfileName)
}

func provideConversationManager(db *cache.DB, d durable.Adapter, conns *connection.Manager, b *bus.Bus, n *notify.Notifier, logger *zap.Logger) *conversation.Manager {
	return conversation.NewManager(db, d, conns, b, n, nil, logger)
}

func provideRouter(logger *zap.Logger, connH *handler.ConnectionHandler, convH *handler.ConversationHandler, notifH *handler.NotificationHandler) *gin.Engine {
	return handler.NewRouter(logger, connH, convH, notifH)
}

func registerLifecycle(lc fx.Lifecycle, p Params, srv *Server, lk *lock.Lock, db *cache.DB, conns *connection.Manager, convs *conversation.Manager, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()

			if p.Durable.Driver == "" || p.Durable.Driver == "memory" {
				if err := Seed(context.Background(), p.ProfileName, conns, convs, logger); err != nil {
					logger.Warn("seeding demo data failed", zap.Error(err))
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing cache", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
