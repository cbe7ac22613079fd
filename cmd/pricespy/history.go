package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/pricespy/backend/internal/usecase"
)

var (
	historyItemID int64
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print stored prices for a tracked item, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if historyItemID <= 0 {
			return errors.New("--item must be a positive id")
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		service := usecase.NewPriceService(store, usecase.PriceServiceConfig{})
		records, err := service.History(ctx, historyItemID, historyLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), records)
	},
}

func init() {
	historyCmd.Flags().Int64Var(&historyItemID, "item", 0, "tracked item id")
	historyCmd.Flags().IntVar(&historyLimit, "limit", usecase.DefaultHistoryLimit, "max records to print")
	_ = historyCmd.MarkFlagRequired("item")
	rootCmd.AddCommand(historyCmd)
}
