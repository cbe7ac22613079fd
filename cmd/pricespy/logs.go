package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricespy/backend/internal/domain"
	"github.com/pricespy/backend/internal/usecase"
)

var (
	logsStatus string
	logsItemID int64
	logsLimit  int
	logsStats  bool
	logsSince  time.Duration
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print extraction attempts, newest first, or their statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		service := usecase.NewExtractionLogService(store, zap.L())
		if logsStats {
			stats, err := service.Stats(ctx, time.Now().UTC().Add(-logsSince))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		}

		logs, err := service.List(ctx, domain.ExtractionLogFilter{
			Status:        logsStatus,
			TrackedItemID: logsItemID,
			Limit:         logsLimit,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), logs)
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsStatus, "status", "", "only entries with this status (success or error)")
	logsCmd.Flags().Int64Var(&logsItemID, "item", 0, "only entries for this tracked item id")
	logsCmd.Flags().IntVar(&logsLimit, "limit", usecase.DefaultLogLimit, "max entries to print")
	logsCmd.Flags().BoolVar(&logsStats, "stats", false, "print statistics instead of entries")
	logsCmd.Flags().DurationVar(&logsSince, "since", 24*time.Hour, "statistics window for --stats")
	rootCmd.AddCommand(logsCmd)
}
