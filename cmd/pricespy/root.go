package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricespy/backend/config"
	"github.com/pricespy/backend/internal/infrastructure/history"
	"github.com/pricespy/backend/internal/infrastructure/metrics"
	"github.com/pricespy/backend/internal/usecase"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pricespy",
	Short: "Price extraction and comparison tool",
	Long:  "Validates vision-model price extractions, normalizes them to per-liter, per-kilogram or per-unit prices and compares them against history and targets.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the configured price history
func openStore(ctx context.Context) (history.Store, error) {
	return history.Open(ctx, history.Options{
		Driver:    cfg.Store.Driver,
		Path:      cfg.Store.Path,
		Retention: cfg.Store.Retention,
	})
}

// newPriceService builds the price service used by the commands. Every
// attempt is counted and written to the extraction log of store.
func newPriceService(store history.Store) *usecase.PriceService {
	return usecase.NewPriceService(store, usecase.PriceServiceConfig{
		Engine: usecase.EngineConfig{
			MaxTextLength:     cfg.Engine.MaxTextLength,
			DiscountTolerance: cfg.Engine.DiscountTolerance,
		},
		Observer: usecase.Observers{
			metrics.NewPrometheusObserver(),
			usecase.NewExtractionLogService(store, zap.L()),
		},
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
