// Package main runs the gaming workshop HTTP server with WebSocket occupancy
// feed and graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gaming-workshop/backend/config"
	"github.com/gaming-workshop/backend/internal/admin"
	"github.com/gaming-workshop/backend/internal/analytics"
	"github.com/gaming-workshop/backend/internal/auth"
	"github.com/gaming-workshop/backend/internal/availability"
	"github.com/gaming-workshop/backend/internal/middleware"
	"github.com/gaming-workshop/backend/internal/realtime"
	"github.com/gaming-workshop/backend/internal/registrations"
	"github.com/gaming-workshop/backend/internal/sessions"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/pkg/database"
	"github.com/gaming-workshop/backend/pkg/queue"
	"github.com/gaming-workshop/backend/pkg/redis"
	"github.com/gaming-workshop/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	var rdb *redis.Client
	if cfg.Store.Driver == "redis" || cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			if cfg.Store.Driver == "redis" {
				logger.Fatal("redis", zap.Error(err))
			}
			logger.Warn("redis unavailable, queue and pub/sub disabled", zap.Error(err))
			rdb = nil
		}
	}
	if rdb != nil {
		defer rdb.Close()
	}

	st, cleanup, err := newStore(ctx, cfg, rdb, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}
	defer cleanup()
	logger.Info("store ready", zap.String("driver", cfg.Store.Driver))

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	var hub *realtime.Hub
	if rdb != nil {
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	var jobQueue *queue.Queue
	if rdb != nil {
		jobQueue = queue.NewQueue(rdb.Client, logger)
	}

	engine := availability.NewEngine(st)
	availabilityHandler := availability.NewHandler(engine)

	registrationService := registrations.NewService(st, time.Now, logger)
	manager := sessions.NewManager(st, sessions.RealClock(), logger)
	registrationHandler := registrations.NewHandler(registrationService, engine, hub, manager, logger)
	sessionHandler := sessions.NewHandler(manager, logger)

	aggregator := analytics.NewAggregator(st)
	analyticsHandler := analytics.NewHandler(aggregator, logger)

	exporter := admin.NewExporter(st, time.Now)
	maintenance := admin.NewMaintenance(st, manager, time.Now, logger)
	adminHandler := admin.NewHandler(exporter, maintenance, jobQueue, logger)
	authHandler := auth.NewHandler(cfg.Admin.PasswordHash, jwtService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: calendar and registration
	router.GET("/workshop", availabilityHandler.GetWorkshopInfo)
	router.GET("/slots/:date", availabilityHandler.GetSlots)
	router.POST("/registrations", registrationHandler.Register)
	router.GET("/registrations", registrationHandler.Search)

	// Public: session dashboard
	sessionGroup := router.Group("/sessions/:id")
	{
		sessionGroup.POST("/load", sessionHandler.Load)
		sessionGroup.GET("", sessionHandler.Get)
		sessionGroup.POST("/unload", sessionHandler.Unload)
		sessionGroup.POST("/timer/start", sessionHandler.StartTimer)
		sessionGroup.POST("/timer/pause", sessionHandler.PauseTimer)
		sessionGroup.POST("/timer/reset", sessionHandler.ResetTimer)
		sessionGroup.POST("/tasks", sessionHandler.AddGameTask)
		sessionGroup.POST("/tasks/:game/timer/start", sessionHandler.StartGameTimer)
		sessionGroup.POST("/tasks/:game/timer/pause", sessionHandler.PauseGameTimer)
		sessionGroup.POST("/tasks/:game/crashes", sessionHandler.RecordCrash)
		sessionGroup.POST("/tasks/:game/observations", sessionHandler.AddObservation)
		sessionGroup.PUT("/tasks/:game/completion", sessionHandler.SetCompletion)
		sessionGroup.POST("/tasks/:game/screenshots", sessionHandler.AddScreenshot)
		sessionGroup.POST("/tasks/:game/complete", sessionHandler.CompleteGameTask)
	}

	// Public: analytics reads
	router.GET("/analytics/overview", analyticsHandler.GetOverview)
	router.GET("/analytics/games", analyticsHandler.GetGames)
	router.GET("/analytics/games/:game", analyticsHandler.GetGameReport)

	// Auth (public)
	router.POST("/auth/login", authHandler.Login)

	// Admin (JWT required)
	adminGroup := router.Group("/admin")
	adminGroup.Use(middleware.JWT(jwtService))
	{
		adminGroup.GET("/registrations", registrationHandler.List)
		adminGroup.DELETE("/registrations/:id", registrationHandler.Remove)
		adminGroup.GET("/export/users", adminHandler.ExportUsersCSV)
		adminGroup.GET("/export/analytics", adminHandler.ExportAnalyticsCSV)
		adminGroup.GET("/export/full", adminHandler.ExportFull)
		adminGroup.POST("/import", adminHandler.Import)
		adminGroup.POST("/reset-day/:date", adminHandler.ResetDay)
		adminGroup.POST("/clear-old-sessions", adminHandler.ClearOldSessions)
		adminGroup.POST("/clear-all", adminHandler.ClearAll)
		adminGroup.POST("/backup", adminHandler.TriggerBackup)
	}

	// WebSocket occupancy feed (date in query)
	router.GET("/ws", realtime.ServeWs(hub, logger, func(date string) (map[string]int, error) {
		return engine.Occupancy(context.Background(), date)
	}))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background ticker advancing live session timers
	tickCtx, tickCancel := context.WithCancel(context.Background())
	defer tickCancel()
	go manager.Run(tickCtx, time.Second)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	tickCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newStore builds the configured collection store. The returned cleanup closes
// driver resources.
func newStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemory(), func() {}, nil
	case "file":
		fs, err := store.NewFile(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	case "redis":
		return store.NewRedis(rdb.Client), func() {}, nil
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store.NewPostgres(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
