package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pricespy/backend/config"
	httpDelivery "github.com/pricespy/backend/internal/delivery/http"
	"github.com/pricespy/backend/internal/infrastructure/history"
	"github.com/pricespy/backend/internal/infrastructure/metrics"
	"github.com/pricespy/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zap.L().Sync() //nolint:errcheck

	if err := run(cfg); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	log := zap.L()
	log.Info("starting PriceSpy backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize infrastructure dependencies
	store, err := history.Open(ctx, history.Options{
		Driver:    cfg.Store.Driver,
		Path:      cfg.Store.Path,
		Retention: cfg.Store.Retention,
	})
	if err != nil {
		return fmt.Errorf("open price history: %w", err)
	}
	defer store.Close() //nolint:errcheck

	// Initialize usecase layer
	logService := usecase.NewExtractionLogService(store, log)
	priceService := usecase.NewPriceService(store, usecase.PriceServiceConfig{
		Engine: usecase.EngineConfig{
			MaxTextLength:     cfg.Engine.MaxTextLength,
			DiscountTolerance: cfg.Engine.DiscountTolerance,
		},
		Observer: usecase.Observers{metrics.NewPrometheusObserver(), logService},
	})

	handler := httpDelivery.NewHandler(priceService, logService)
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
