package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cryptoarcade/backend/docs"
	"github.com/cryptoarcade/backend/internal/audit"
	"github.com/cryptoarcade/backend/internal/config"
	"github.com/cryptoarcade/backend/internal/database"
	"github.com/cryptoarcade/backend/internal/events"
	"github.com/cryptoarcade/backend/internal/handlers"
	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/cryptoarcade/backend/internal/metrics"
	mW "github.com/cryptoarcade/backend/internal/middleware"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/services"
	"github.com/cryptoarcade/backend/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Crypto Arcade Ledger API
// @version 1.0
// @description Ledger, wager settlement and funds review service for the crypto arcade
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logger.Init()
	defer logger.Sync()

	if err := config.Init(); err != nil {
		logger.Info("config file not found, using environment and defaults", zap.Error(err))
	}

	serverCfg := config.GetServerConfig()
	storageCfg := config.GetStorageConfig()
	eventsCfg := config.GetEventsConfig()
	authCfg := config.GetAuthConfig()
	idemCfg := config.GetIdempotencyConfig()
	fundsCfg := config.LoadFundsConfig()
	gameCfg := config.LoadGameConfig()
	if err := gameCfg.Validate(); err != nil {
		logger.Fatal("invalid game configuration", zap.Error(err))
	}
	if authCfg.SecretKey == "" {
		logger.Fatal("JWT_SECRET_KEY is required")
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Host = "localhost:" + serverCfg.Port
	docs.SwaggerInfo.BasePath = "/api/v1"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	storeOpts := store.Options{TxTimeout: storageCfg.TxTimeout, LockWait: storageCfg.LockWait}
	var st store.Store
	switch storageCfg.Backend {
	case "memory":
		logger.Warn("using in-memory ledger; balances are lost on restart")
		st = store.NewMemoryStore(storeOpts)
	default:
		db := database.InitDatabase()
		defer db.Close()
		if storageCfg.AutoMigrate {
			if err := database.EnsureSchema(ctx, db); err != nil {
				logger.Fatal("failed to apply schema", zap.Error(err))
			}
		}
		st = store.NewPostgresStore(db, storeOpts)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	var idem services.IdempotencyStore = services.NewMemoryIdempotency()
	if redisClient != nil {
		idem = services.NewRedisIdempotency(redisClient)
	}

	broker := newBroker(ctx, eventsCfg, redisClient)
	hub := events.NewHub(broker, serverCfg.AllowedOrigins)
	auditLog := audit.NewAuditLogger(logger.L())

	// Services
	access := services.NewAccessService(st, redisClient, auditLog)
	if err := access.BootstrapAdmins(ctx, authCfg.BootstrapAdmins); err != nil {
		logger.Fatal("failed to bootstrap admins", zap.Error(err))
	}
	ledger := services.NewLedgerService(st, broker, eventsCfg.PublishRetries)
	settlement := services.NewSettlementService(st, gameCfg, idem, broker, auditLog, services.SettlementOptions{
		LockTTL:        idemCfg.LockTTL,
		ResultTTL:      idemCfg.ResultTTL,
		PublishRetries: eventsCfg.PublishRetries,
	})
	runner := services.NewRunnerService(settlement, st)
	go runner.Run(ctx, time.Second)

	funds := services.NewFundsService(st, fundsCfg, access, nil, broker, eventsCfg.PublishRetries, auditLog)
	referrals := services.NewReferralService(st, config.GetReferralCommissionRate())
	addresses := services.NewDepositAddressService(fundsCfg)

	accountHandler := handlers.NewAccountHandler(ledger, referrals)
	gameHandler := handlers.NewGameHandler(settlement, runner)
	fundsHandler := handlers.NewFundsHandler(funds, addresses)
	adminHandler := handlers.NewAdminHandler(funds, access)
	eventsHandler := handlers.NewEventsHandler(hub)
	authHandler := handlers.NewAuthHandler()

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.SecurityHeaders)
	r.Use(metrics.HTTPMetrics)
	r.Use(mW.RequestLogger(logger.L()))
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   serverCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Websocket upgrades outlive the request timeout
		r.With(mW.AuthMiddleware).Get("/events/ws", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(serverCfg.RequestTimeout))

			// Public endpoints (no auth required)
			r.Get("/games", gameHandler.ListGames)

			// Protected endpoints (auth required)
			r.Group(func(r chi.Router) {
				r.Use(mW.AuthMiddleware)

				r.Post("/auth/logout", authHandler.Logout)

				r.Post("/accounts", accountHandler.CreateAccount)
				r.Get("/accounts/me", accountHandler.GetMe)
				r.Get("/accounts/me/wagers", accountHandler.ListWagers)
				r.Get("/referrals/earnings", accountHandler.ReferralEarnings)

				r.Post("/games/runner/start", gameHandler.StartRun)
				r.Get("/games/runner/active", gameHandler.ActiveRun)
				r.Post("/games/runner/{runId}/exit", gameHandler.ExitRun)
				r.Post("/games/{gameType}/settle", gameHandler.Settle)

				r.Post("/funds/deposits", fundsHandler.CreateDeposit)
				r.Post("/funds/withdrawals", fundsHandler.CreateWithdrawal)
				r.Get("/funds/requests", fundsHandler.ListMyRequests)
				r.Get("/funds/deposit-address", fundsHandler.DepositAddress)

				// Admin endpoints
				r.Route("/admin", func(r chi.Router) {
					r.Use(mW.RequireRole(access, models.RoleAdmin))

					r.Get("/funds/requests", adminHandler.ListRequests)
					r.Post("/funds/requests/{id}/approve", adminHandler.ApproveDeposit)
					r.Post("/funds/requests/{id}/complete", adminHandler.CompleteWithdrawal)
					r.Post("/funds/requests/{id}/reject", adminHandler.Reject)

					r.Post("/roles", adminHandler.GrantRole)
					r.Delete("/roles", adminHandler.RevokeRole)
					r.Get("/roles/{userId}", adminHandler.ListRoles)
				})
			})
		})
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + serverCfg.Port,
		Handler:      r,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("storage", storageCfg.Backend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Open runs are settled at their elapsed length before the workers stop.
	if n := runner.Drain(shutdownCtx); n > 0 {
		logger.Info("settled open runs on shutdown", zap.Int("count", n))
	}
	cancel()

	logger.Info("server stopped")
}

// newBroker picks the Redis stream broker when Redis is available so every
// instance sees every event, and an in-process broker otherwise.
func newBroker(ctx context.Context, cfg *config.EventsConfig, rdb *redis.Client) events.Broker {
	if cfg.Backend == "redis" && rdb != nil {
		b := events.NewRedisBroker(rdb, cfg.Stream, cfg.MaxLen)
		go b.Run(ctx)
		return b
	}
	logger.Info("using in-process event broker")
	return events.NewLocalBroker()
}
