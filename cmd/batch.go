package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/portops/triage-cli/internal/fetcher"
	"github.com/portops/triage-cli/internal/model"
)

var (
	batchCSV         string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Triage a CSV of incident descriptions",
	Long:  "Analyzes every row of a CSV (header with a description column, optional reporter column) with bounded concurrency and persists each incident. Row failures are logged and never abort the batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rows, err := readBatchRows(batchCSV)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			zap.L().Info("no rows to process", zap.String("file", batchCSV))
			return nil
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		triage := newAnalyzer(st)

		zap.L().Info("processing batch",
			zap.Int("rows", len(rows)),
			zap.Int("concurrency", batchConcurrency),
		)

		summary := processRows(ctx, rows, batchConcurrency, func(ctx context.Context, row batchRow) (*model.Incident, error) {
			analysis, err := triage.Analyze(ctx, row.Description)
			if err != nil {
				return nil, err
			}
			return st.CreateIncident(ctx, model.Incident{
				Description: row.Description,
				Source:      model.SourceBatch,
				Reporter:    row.Reporter,
				Analysis:    analysis,
			})
		})

		zap.L().Info("batch complete",
			zap.Int64("processed", summary.Processed),
			zap.Int64("failed", summary.Failed),
			zap.Float64("fallback_rate", summary.FallbackRate()),
			zap.Duration("duration", summary.Duration),
		)
		return nil
	},
}

// batchRow is one CSV data row; Line is the 1-based line number for logs.
type batchRow struct {
	Line        int
	Description string
	Reporter    string
}

type batchSummary struct {
	Processed int64
	Failed    int64
	Fallbacks int64
	Duration  time.Duration
}

// FallbackRate is the share of processed rows that took the rule-based
// path. Zero when nothing was processed.
func (s batchSummary) FallbackRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Fallbacks) / float64(s.Processed)
}

type triageFunc func(ctx context.Context, row batchRow) (*model.Incident, error)

// processRows runs fn for each row with at most concurrency in flight.
// Individual failures are counted and logged; the batch always runs to
// completion unless the context is cancelled.
func processRows(ctx context.Context, rows []batchRow, concurrency int, fn triageFunc) batchSummary {
	if concurrency < 1 {
		concurrency = 1
	}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var processed, failed, fallbacks atomic.Int64
	for _, row := range rows {
		g.Go(func() error {
			incident, err := fn(gctx, row)
			if err != nil {
				failed.Add(1)
				zap.L().Error("batch row failed", zap.Int("line", row.Line), zap.Error(err))
				return nil // one bad row never aborts the batch
			}

			processed.Add(1)
			if incident.Analysis.Fallback {
				fallbacks.Add(1)
			}
			zap.L().Info("batch row triaged",
				zap.Int("line", row.Line),
				zap.String("reference", incident.Reference),
				zap.String("urgency", string(incident.Analysis.Urgency)),
			)
			return nil
		})
	}
	_ = g.Wait()

	return batchSummary{
		Processed: processed.Load(),
		Failed:    failed.Load(),
		Fallbacks: fallbacks.Load(),
		Duration:  time.Since(start),
	}
}

// readBatchRows loads the batch CSV. The header must name a description
// column; a reporter column is optional. Rows with an empty description
// are skipped.
func readBatchRows(path string) ([]batchRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open batch file %s", path)
	}
	defer f.Close() //nolint:errcheck

	header, records, err := fetcher.ReadCSV(f, fetcher.CSVOptions{})
	if err != nil {
		return nil, err
	}

	descCol, reporterCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(name) {
		case "description":
			descCol = i
		case "reporter":
			reporterCol = i
		}
	}
	if descCol == -1 {
		return nil, eris.Errorf("batch file %s has no description column", path)
	}

	var rows []batchRow
	for i, record := range records {
		row := batchRow{Line: i + 2} // line 1 is the header
		if descCol < len(record) {
			row.Description = record[descCol]
		}
		if reporterCol >= 0 && reporterCol < len(record) {
			row.Reporter = record[reporterCol]
		}
		if row.Description == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "CSV file of descriptions (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "max rows analyzed in parallel")
	_ = batchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(batchCmd)
}
