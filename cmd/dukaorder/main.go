// Package main запускает HTTP-сервер сервиса dukaorder.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dkharlamov/dukaorder-system/internal/config"
	"github.com/dkharlamov/dukaorder-system/internal/dispatch"
	"github.com/dkharlamov/dukaorder-system/internal/handler"
	"github.com/dkharlamov/dukaorder-system/internal/middleware"
	"github.com/dkharlamov/dukaorder-system/internal/payment"
	"github.com/dkharlamov/dukaorder-system/internal/repository"
	"github.com/dkharlamov/dukaorder-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	// Локальный .env удобен при разработке; в продакшене файла нет
	_ = godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	payClient := payment.NewClient(payment.Config{
		ConsumerKey:    cfg.DarajaConsumerKey,
		ConsumerSecret: cfg.DarajaConsumerSecret,
		ShortCode:      cfg.DarajaShortCode,
		PassKey:        cfg.DarajaPassKey,
		Environment:    cfg.DarajaEnvironment,
		CallbackURL:    strings.TrimRight(cfg.CallbackBaseURL, "/") + "/api/payments/callback",
	})

	svc := service.NewService(repo, payClient, cfg.StoreLat, cfg.StoreLng)

	dispatcher := dispatch.NewDispatcher(repo, logger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.CourierTokenSecret)
	h := handler.NewHandler(svc, payClient, dispatcher, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск слушателя изменений заказов
	g.Go(func() error {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("dispatcher error: %w", err)
		}
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting dukaorder server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
