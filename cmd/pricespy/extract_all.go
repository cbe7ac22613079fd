package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricespy/backend/internal/infrastructure/catalog"
	"github.com/pricespy/backend/internal/infrastructure/gemini"
	"github.com/pricespy/backend/internal/usecase"
)

var (
	extractCatalogPath string
	extractLimit       int
)

// extractAllOutput is the batch summary plus per-model quota usage
type extractAllOutput struct {
	usecase.BatchSummary
	Models []gemini.ModelStatus `json:"models"`
}

var extractAllCmd = &cobra.Command{
	Use:   "extract-all",
	Short: "Extract and process prices for every active catalog item",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.RequireGemini(); err != nil {
			return err
		}

		cat, err := catalog.Load(extractCatalogPath)
		if err != nil {
			return err
		}
		items, err := cat.ActiveItems()
		if err != nil {
			return err
		}
		if extractLimit > 0 && len(items) > extractLimit {
			items = items[:extractLimit]
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		selector := gemini.NewFallbackSelector(cfg.Gemini.Models, cfg.Gemini.DailyLimit)
		client := gemini.NewClient(gemini.Config{
			APIKey:            cfg.Gemini.APIKey,
			BaseURL:           cfg.Gemini.BaseURL,
			Timeout:           cfg.Gemini.Timeout,
			RequestsPerMinute: cfg.RateLimit.GeminiRPM,
		}, selector)
		extractor := gemini.NewExtractor(client, gemini.FileScreenshots{Dir: cfg.Gemini.ScreenshotsDir})

		service := newPriceService(store)
		runner := usecase.NewBatchRunner(extractor, service, usecase.BatchConfig{
			Concurrency: cfg.Batch.Concurrency,
			Delay:       cfg.Batch.Delay,
			SoftRetries: cfg.Batch.SoftRetries,
			RetryDelay:  cfg.Batch.RetryDelay,
		})

		summary := runner.RunBatch(ctx, items)
		usage := selector.Status()
		zap.L().Info("model usage", zap.Any("models", usage))

		if err := printJSON(cmd.OutOrStdout(), extractAllOutput{BatchSummary: summary, Models: usage}); err != nil {
			return eris.Wrap(err, "write summary")
		}
		if summary.Total > 0 && summary.SuccessCount == 0 {
			return eris.Errorf("all %d extractions failed", summary.Total)
		}
		return nil
	},
}

func init() {
	extractAllCmd.Flags().StringVar(&extractCatalogPath, "catalog", "items.yaml", "path to the tracked item catalog")
	extractAllCmd.Flags().IntVar(&extractLimit, "limit", 0, "max number of items to process (0 = all)")
	rootCmd.AddCommand(extractAllCmd)
}
