package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creperie-promo/internal/cache"
	"creperie-promo/internal/config"
	"creperie-promo/internal/domain"
	"creperie-promo/internal/handler"
	"creperie-promo/internal/messaging"
	"creperie-promo/internal/middleware"
	"creperie-promo/internal/observability"
	"creperie-promo/internal/repository/postgres"
	"creperie-promo/internal/service"
	"creperie-promo/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting promo server")

	connCtx, connCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connCancel()

	db, err := config.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(connCtx); err != nil {
		slog.Error("database ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("connected to postgresql")

	rmqCtx, rmqCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer rmqCancel()

	broker, err := messaging.NewBrokerWithRetry(rmqCtx, cfg.RabbitMQURL)
	if err != nil {
		slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	sessionRepo, err := postgres.NewSessionRepository(db)
	if err != nil {
		slog.Error("failed to prepare session repository", slog.String("error", err.Error()))
		os.Exit(1)
	}
	weeklyCodeRepo, err := postgres.NewWeeklyCodeRepository(db)
	if err != nil {
		slog.Error("failed to prepare weekly code repository", slog.String("error", err.Error()))
		os.Exit(1)
	}
	menuRepo, err := postgres.NewMenuItemRepository(db)
	if err != nil {
		slog.Error("failed to prepare menu repository", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The weekly code changes once a week but is read on every unlock
	// attempt; serve it through Redis when available.
	var codes domain.WeeklyCodeRepository = weeklyCodeRepo
	redisClient, err := config.NewRedisClient(cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, weekly codes served from postgres",
			slog.String("error", err.Error()))
	} else {
		defer redisClient.Close()
		codes = cache.NewWeeklyCodeCache(weeklyCodeRepo, cache.NewRedisBackend(redisClient), time.Hour)
		slog.Info("weekly code cache enabled")
	}

	accessService := service.NewAccessService(sessionRepo, codes, broker)

	hub := websocket.NewHub()

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go func() {
		if err := hub.Run(hubCtx); err != nil && err != context.Canceled {
			slog.Error("hub error", slog.String("error", err.Error()))
		}
	}()
	slog.Info("stats hub started")

	broadcaster := handler.NewStatsBroadcaster(hub, accessService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Grants published by other instances also refresh the dashboard.
	grantConsumer := messaging.NewGrantConsumer(broker, func(ctx context.Context, event *messaging.GrantEvent) {
		broadcaster.Push(ctx, event.Source)
	})
	if err := grantConsumer.Start(ctx); err != nil {
		slog.Error("failed to start grant consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("grant consumer started")

	ensureWeeklyCode(ctx, accessService)
	go startWeeklyCodeRotation(ctx, accessService)
	go startSessionCleanup(ctx, sessionRepo)
	slog.Info("background tasks started")

	accessHandler := handler.NewAccessHandler(accessService, broadcaster)
	adminHandler := handler.NewAdminHandler(accessService, cfg.AdminPasswordHash)
	menuHandler := handler.NewMenuHandler(menuRepo)
	statsFeedHandler := handler.NewStatsFeedHandler(hub, broadcaster)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.AllowedOrigins)))
	r.Use(middleware.Metrics())
	r.Use(middleware.OpenAPIValidator(middleware.DefaultOpenAPIValidatorConfig()))

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(db, broker))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Unlock attempts are brute-forceable; keep them slow.
		unlockLimiter := middleware.NewRateLimiter(ctx, 5, 10)
		apiLimiter := middleware.NewRateLimiter(ctx, 20, 50)

		r.Group(func(r chi.Router) {
			r.Use(unlockLimiter.Middleware())
			r.Post("/access/verify-code", accessHandler.VerifyCode)
			r.Post("/access/quiz-grant", accessHandler.QuizGrant)
			r.Post("/admin/stats", adminHandler.Stats)
		})

		r.Group(func(r chi.Router) {
			r.Use(apiLimiter.Middleware())
			r.Post("/access/sessions", accessHandler.CreateSession)
			r.Get("/access/sessions/{token}", accessHandler.GetSession)
			r.Delete("/access/sessions/{token}", accessHandler.DeleteSession)
			r.Get("/weekly-code", accessHandler.WeeklyCode)
			r.Get("/menu", menuHandler.Menu)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAccess(sessionRepo))
			r.Use(apiLimiter.Middleware())
			r.Get("/menu/secret", menuHandler.SecretMenu)
		})
	})

	r.Get("/ws/admin/stats", statsFeedHandler.HandleConnection)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("promo server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	hubCancel()

	time.Sleep(100 * time.Millisecond)

	slog.Info("server stopped gracefully")
}

// ensureWeeklyCode makes sure a code exists before the server takes traffic.
func ensureWeeklyCode(ctx context.Context, accessService *service.AccessService) {
	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := accessService.EnsureWeeklyCode(ensureCtx); err != nil {
		slog.Error("failed to ensure weekly code", slog.String("error", err.Error()))
	}
}

// startWeeklyCodeRotation re-checks the weekly code hourly so the Monday
// rollover happens without a restart.
func startWeeklyCodeRotation(ctx context.Context, accessService *service.AccessService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping weekly code rotation task")
			return
		case <-ticker.C:
			ensureWeeklyCode(ctx, accessService)
		}
	}
}

// startSessionCleanup runs a background task to delete expired sessions
func startSessionCleanup(ctx context.Context, repo domain.AccessSessionRepository) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping session cleanup task")
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			count, err := repo.DeleteExpired(cleanupCtx)
			if err != nil {
				slog.Error("session cleanup failed", slog.String("error", err.Error()))
			} else {
				slog.Info("session cleanup completed",
					slog.Int64("sessions_deleted", count))
			}
			cancel()
		}
	}
}
