package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/qr-vault/internal/api/http"
	"github.com/spec-kit/qr-vault/internal/api/http/handlers"
	"github.com/spec-kit/qr-vault/internal/auth"
	"github.com/spec-kit/qr-vault/internal/config"
	"github.com/spec-kit/qr-vault/internal/events"
	"github.com/spec-kit/qr-vault/internal/federation"
	"github.com/spec-kit/qr-vault/internal/observability"
	"github.com/spec-kit/qr-vault/internal/persistence"
	"github.com/spec-kit/qr-vault/internal/repository"
	"github.com/spec-kit/qr-vault/internal/service"
	"github.com/spec-kit/qr-vault/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	qrRepo := repository.NewQRCodeRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	sessions := auth.NewSessionManager(sessionRepo, userRepo, cfg.Session.TTL())

	limiter := service.NewRedisRateLimiter(redis.Client, cfg.RateLimit.LoginWindow(), cfg.RateLimit.LoginMax)
	if limiter == nil {
		limiter = service.NewMemoryRateLimiter(cfg.RateLimit.LoginWindow(), cfg.RateLimit.LoginMax)
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Sessions:          sessions,
		Limiter:           limiter,
		Dispatcher:        dispatcher,
	})
	qrService := service.NewQRService(qrRepo, dispatcher, cfg.QR.ImageSize)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)
	worker.StartSessionJanitor(ctx, sessionRepo, cfg.Session.JanitorInterval(), logger)

	if !cfg.Google.Enabled() {
		logger.Warn("google client not configured; federated login disabled")
	}
	googleClient := federation.NewGoogleClient(cfg.Google)

	cookies := handlers.CookieOptions{
		Name:   cfg.Session.CookieName,
		TTL:    cfg.Session.TTL(),
		Secure: cfg.Session.CookieSecure,
	}

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Home:              handlers.NewHomeHandler(),
		Auth:              handlers.NewAuthHandler(authService, cookies),
		Google:            handlers.NewGoogleHandler(googleClient, cfg.Google.Enabled(), authService, cookies, logger),
		QR:                handlers.NewQRHandler(qrService),
		SessionMiddleware: auth.NewSessionMiddleware(sessions, cfg.Session.CookieName),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
