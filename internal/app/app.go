package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ecocards/internal/cache"
	"ecocards/internal/config"
	"ecocards/internal/event"
	"ecocards/internal/repository"
	"ecocards/internal/service"
	"ecocards/internal/transport/rest"
	"ecocards/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// App is the wired server: storage clients, services and the HTTP handler
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	mongo *mongo.Client
	redis *redis.Client // nil with the memory backend

	hub       *ws.Hub
	battles   *service.BattleService
	turnTimer *service.TurnTimer
	server    *http.Server
}

// New connects to storage and wires every component
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a.mongo = mongoClient

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))
	db := mongoClient.Database(cfg.Mongo.Database)

	var store cache.BattleStore
	switch cfg.Storage.Backend {
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to ping Redis: %w", err)
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
		store = cache.NewBattleStore(a.redis, cfg.Redis.TTL)
	default:
		logger.Warn("using in-memory battle store; battles are lost on restart and not shared between nodes")
		store = cache.NewMemoryBattleStore()
	}

	// Initialize repositories
	cardRepo := repository.NewCardRepo(db)
	profileRepo := repository.NewProfileRepo(db)
	accountRepo := repository.NewAccountRepo(db, logger)
	battleRepo := repository.NewBattleRepo(db, logger)

	// Domain events
	bus := event.NewBus()
	service.NewProfileProvisioner(profileRepo, cfg.Game.StarterCards, logger).Register(bus)

	// Initialize services
	authSvc := service.NewAuthService(accountRepo, bus, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	cardSvc := service.NewCardService(cardRepo, profileRepo)
	playerSvc := service.NewPlayerService(profileRepo, battleRepo)
	a.battles = service.NewBattleService(store, cardRepo, profileRepo, battleRepo, logger)
	a.turnTimer = service.NewTurnTimer(a.battles, cfg.Battle.TurnTimeout, cfg.Battle.SweepInterval, logger)

	// hub implements service.Broadcaster
	a.hub = ws.NewHub(logger)
	a.battles.SetBroadcaster(a.hub)

	wsHandler := ws.NewHandler(a.hub, a.battles, authSvc, ws.Options{
		RateLimit:      cfg.WebSocket.RateLimit,
		RateBurst:      cfg.WebSocket.RateBurst,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	}, logger)

	router := rest.NewRouter(&rest.Container{
		AuthService:    authSvc,
		CardService:    cardSvc,
		PlayerService:  playerSvc,
		BattleService:  a.battles,
		WSHandler:      wsHandler,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
		Logger:         logger,
	})

	a.server = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run serves HTTP and sweeps idle turns until ctx is cancelled, then shuts
// the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	timerCtx, stopTimer := context.WithCancel(ctx)
	defer stopTimer()
	go a.turnTimer.Run(timerCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Reload applies the settings that may change while running
func (a *App) Reload(cfg *config.Config) {
	if a.turnTimer.Timeout() != cfg.Battle.TurnTimeout {
		a.turnTimer.SetTimeout(cfg.Battle.TurnTimeout)
		a.logger.Info("turn timeout updated", zap.Duration("turn_timeout", cfg.Battle.TurnTimeout))
	}
}

// Close releases the hub and storage clients
func (a *App) Close(ctx context.Context) {
	if a.hub != nil {
		a.hub.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close Redis", zap.Error(err))
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.logger.Warn("failed to disconnect MongoDB", zap.Error(err))
		}
	}
}
