package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/askora/askora/internal/app"
	"github.com/askora/askora/internal/auth"
	"github.com/askora/askora/internal/observability"
	"github.com/askora/askora/internal/platform/cache"
	"github.com/askora/askora/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:      []byte(cfg.TokenSecret),
		Issuer:      cfg.TokenIssuer,
		Audience:    cfg.TokenAudience,
		TTL:         cfg.TokenTTL,
		ExtendedTTL: cfg.TokenExtendedTTL,
	})
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}

	var (
		rateStore    auth.RateLimitStore
		lockoutStore auth.LockoutStore
		memLockouts  *auth.MemoryLockoutStore
	)
	switch cfg.AuthStateStore {
	case "redis":
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		rateStore = auth.NewRedisRateLimitStore(redisClient)
		lockoutStore = auth.NewRedisLockoutStore(redisClient, cfg.LockoutStaleAfter)
	default:
		rateStore = auth.NewMemoryRateLimitStore(cfg.RateClientCap)
		memLockouts = auth.NewMemoryLockoutStore()
		lockoutStore = memLockouts
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	authMetrics := observability.NewAuthMetrics(metrics.Registerer())

	service := auth.NewService(auth.ServiceParams{
		Logger:          logger,
		Repo:            auth.NewRepository(pool),
		Hasher:          auth.NewHasher(cfg.BcryptCost),
		RegisterLimiter: auth.NewLimiter(rateStore, "register", cfg.RegisterRateInterval),
		LoginLimiter:    auth.NewLimiter(rateStore, "login", cfg.LoginRateInterval),
		Lockouts:        auth.NewTracker(lockoutStore, cfg.LockoutThreshold, cfg.LockoutWindow),
		Tokens:          tokens,
		Notifier:        auth.NewAsynqNotifier(asynqClient),
		Metrics:         authMetrics,
		RegisterLimit:   cfg.RateLimit,
		LoginLimit:      cfg.RateLimit,
	})

	sessions := auth.NewSessionBoundary(cfg.CookieName, cfg.IsProduction())
	handler := auth.NewHandler(logger, service, sessions)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: handler,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if memLockouts != nil {
		janitor := auth.NewJanitor(memLockouts, cfg.JanitorInterval, cfg.LockoutStaleAfter, logger)
		group.Go(func() error {
			return janitor.Run(groupCtx)
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("runtime", slog.Any("error", err))
		os.Exit(1)
	}
}
