package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/fbz-tec/dbxport/core/config"
	"github.com/fbz-tec/dbxport/core/exporters"
	"github.com/fbz-tec/dbxport/internal/logger"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch <jobs.yaml>",
	Short: "Export several tables listed in a YAML job file",
	Long: `Run every job of a YAML file over a single connection, in file order.

Each job names a table and either an inline query or a query file:

  - table: users
    sql: SELECT id, name FROM users
    index: id
    repcol: name
  - table: orders
    sqlfile: queries/orders.sql

A failed table is recorded in failed.log and the batch moves on to the next job.`,
	Args:          cobra.ExactArgs(1),
	PreRunE:       func(cmd *cobra.Command, args []string) error { return validateCommonParams() },
	RunE:          runBatch,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func runBatch(cmd *cobra.Command, args []string) error {
	jobs, err := config.LoadJobs(args[0])
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := validateJobParams(job.Table, job.Index, job.RepCol); err != nil {
			return fmt.Errorf("job %s: %w", job.Table, err)
		}
	}
	logger.Debug("Loaded %d jobs from %s", len(jobs), args[0])

	store, err := connect(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runLog, err := logger.OpenRunLog(outputRoot)
	if err != nil {
		return err
	}
	defer runLog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter := exporters.NewDelimitedExporter(store, runLog)
	summary := orderedmap.NewOrderedMap[string, exporters.Outcome]()

	var runErr error
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		outcome, err := exporter.Export(ctx, exportOptions(job.Table, job.SQL, job.Index, job.RepCol))
		summary.Set(job.Table, outcome)
		if err != nil {
			runErr = fmt.Errorf("export of %s failed: %w", job.Table, err)
			break
		}
		if outcome.Interrupted {
			runErr = fmt.Errorf("batch interrupted during %s: %w", job.Table, context.Canceled)
			break
		}
	}

	if err := runLog.Checkpoint("Download done."); err != nil && runErr == nil {
		runErr = err
	}

	failed := printSummary(summary, len(jobs))
	if runErr != nil {
		if isInterrupted(runErr) {
			logger.Warn("Batch interrupted, remaining jobs skipped")
		}
		return runErr
	}
	if failed > 0 {
		logger.Warn("%d of %d tables failed, see %s", failed, len(jobs), logger.FailedLogFile)
	}
	return nil
}

// printSummary logs one line per attempted job in file order and returns
// the number of failed tables.
func printSummary(summary *orderedmap.OrderedMap[string, exporters.Outcome], total int) int {
	failed := 0
	logger.Info("Batch summary (%d/%d jobs run):", summary.Len(), total)
	for table, outcome := range summary.AllFromFront() {
		switch {
		case outcome.Failed():
			failed++
			logger.Error("  %-24s failed: %v", table, outcome.Cause)
		case outcome.Interrupted:
			logger.Warn("  %-24s interrupted after %d rows", table, outcome.RowsWritten)
		default:
			logger.Success("  %-24s %d rows -> %s", table, outcome.RowsWritten, outcome.OutputPath)
		}
	}
	return failed
}
