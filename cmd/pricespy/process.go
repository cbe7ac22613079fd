package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pricespy/backend/internal/domain"
	"github.com/pricespy/backend/internal/usecase"
)

var (
	processRawFile    string
	processItemID     int64
	processSize       float64
	processUnit       string
	processLot        int
	processPackaging  string
	processTarget     float64
	processTargetUnit string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one raw extraction JSON file against stored history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, err := readRawExtraction(processRawFile)
		if err != nil {
			return err
		}

		packaging := domain.PackagingSpec{
			QuantitySize: processSize,
			QuantityUnit: processUnit,
			ItemsPerLot:  processLot,
		}
		if processPackaging != "" {
			packaging, err = usecase.ParsePackaging(processPackaging)
			if err != nil {
				return eris.Wrap(err, "parse packaging")
			}
		}

		var target *domain.TargetSpec
		if cmd.Flags().Changed("target") {
			target = domain.NewTargetSpec(&processTarget, processTargetUnit)
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		service := newPriceService(store)

		result, err := service.Process(ctx, usecase.ProcessRequest{
			TrackedItemID: processItemID,
			Raw:           raw,
			Packaging:     packaging,
			Target:        target,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	processCmd.Flags().StringVar(&processRawFile, "raw", "", "path to the raw extraction JSON (- for stdin)")
	processCmd.Flags().Int64Var(&processItemID, "item", 1, "tracked item id")
	processCmd.Flags().Float64Var(&processSize, "size", 1, "size of one item in the lot")
	processCmd.Flags().StringVar(&processUnit, "unit", "piece", "unit of --size, e.g. ml, g, kg, L, piece")
	processCmd.Flags().IntVar(&processLot, "lot", 1, "number of items sold together for the page price")
	processCmd.Flags().StringVar(&processPackaging, "packaging", "", `packaging shorthand such as "6 x 330 ml" (overrides --size/--unit/--lot)`)
	processCmd.Flags().Float64Var(&processTarget, "target", 0, "target price")
	processCmd.Flags().StringVar(&processTargetUnit, "target-unit", "", "unit of --target; empty compares against the lot price")
	_ = processCmd.MarkFlagRequired("raw")
	rootCmd.AddCommand(processCmd)
}

// readRawExtraction decodes a raw model response, keeping numbers exact
func readRawExtraction(path string) (domain.RawExtraction, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s is not a JSON object: %w", path, err)
	}
	return domain.RawExtraction(raw), nil
}
