// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elearning-platform/internal/config"
	"elearning-platform/internal/domain/ports/repository"
	"elearning-platform/internal/infra/api"
	pg "elearning-platform/internal/infra/db/postgres"
	"elearning-platform/internal/infra/gateway"
	"elearning-platform/internal/infra/logging"
	"elearning-platform/internal/infra/metrics"
	"elearning-platform/internal/infra/notify"
	red "elearning-platform/internal/infra/redis"
	"elearning-platform/internal/infra/sched"
	"elearning-platform/internal/infra/security"
	"elearning-platform/internal/infra/worker"
	"elearning-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool := pg.MustConnect(cfg.Database.URL)
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	regRepo := pg.NewRegistrationRepo(pool)

	// ---- Redis (optional plan cache) ----
	var planRepoForUse repository.SubscriptionPlanRepository = planRepo
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		planRepoForUse = pg.NewPlanRepoCacheDecorator(planRepo, redisClient, cfg.Redis.TTL)
	}

	// ---- Gateway ----
	retry := gateway.DefaultRetryPolicy(cfg.Gateway.RetryBaseDelay)
	retry.MaxRetries = cfg.Gateway.MaxRetries
	gw := gateway.NewClient(cfg.Gateway.SecretKey, cfg.Gateway.BaseURL, cfg.Gateway.Timeout, retry)

	// ---- Security ----
	hasher := security.NewPasswordHasher()
	tokens := security.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.TokenTTL)

	// ---- Workers & notifications ----
	taskPool := worker.NewPool(0)
	taskPool.Start(ctx)
	defer taskPool.Stop()
	notifier := notify.NewLogNotifier(logger)

	// ---- Use cases ----
	materializer := usecase.NewAccountMaterializer(userRepo, hasher, cfg.Security.DefaultWardPassword, logger)
	activationUC := usecase.NewActivationUseCase(
		regRepo, payRepo, subRepo, planRepoForUse, userRepo,
		gw, tm, materializer, tokens, notifier, taskPool,
		usecase.ActivationConfig{
			CallbackURL:         cfg.Gateway.CallbackBaseURL + "/api/v1/payments/verify",
			DefaultDurationDays: cfg.Subscription.DefaultDurationDays,
		},
		logger,
	)
	planUC := usecase.NewPlanUseCase(planRepoForUse)

	// ---- Reconciler ----
	reconciler := sched.NewRegistrationReconciler(activationUC, regRepo, payRepo, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter)
	go reconciler.Start(ctx)

	// ---- HTTP ----
	server := api.NewServer(activationUC, planUC, tokens, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(fmt.Sprintf(":%d", cfg.HTTP.Port))
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	cancel()
}
