package main // entry point of the back-office API server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/madhatv/payment-recovery/internal/app"
	"github.com/madhatv/payment-recovery/internal/config"
	"github.com/madhatv/payment-recovery/internal/database"
	"github.com/madhatv/payment-recovery/internal/handler"
	"github.com/madhatv/payment-recovery/internal/logging"
	"github.com/madhatv/payment-recovery/internal/middleware"
	"github.com/madhatv/payment-recovery/internal/notify"
	"github.com/madhatv/payment-recovery/internal/router"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := logging.Must(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	amqpCfg := config.LoadAMQPConfig()
	if amqpCfg.Consumer {
		consumer := notify.NewConsumer(amqpCfg.URL, amqpCfg.Queue, amqpCfg.OutboxDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	stores := app.NewStores(db)
	engine := app.NewEngine(stores, rdb, amqpCfg, config.LoadReconcileConfig(), log)
	cacheCfg := config.LoadCacheConfig()

	payments := handler.NewFailedPaymentHandler(stores.Payments, engine, log)
	payments.AfterRestore = func(ctx context.Context) {
		if err := middleware.InvalidateCache(ctx, rdb, cacheCfg.Prefix); err != nil {
			log.Warn("invalidate recovery history cache", zap.Error(err))
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, db)
	router.RegisterAPI(e, router.API{
		JWTSecret:      cfg.JWTSecret,
		FailedPayments: payments,
		History:        handler.NewHistoryHandler(stores.Payments, stores.Audit, log),
		Redis:          rdb,
		RateLimit:      config.LoadRateLimitConfig(),
		Cache:          cacheCfg,
		Log:            log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
