package exporters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fbz-tec/dbxport/core/db"
	"github.com/fbz-tec/dbxport/core/formatters"
	"github.com/fbz-tec/dbxport/core/output"
	"github.com/fbz-tec/dbxport/internal/logger"
	"github.com/fbz-tec/dbxport/internal/ui"
	"github.com/schollz/progressbar/v3"
)

// OutputExtension is the extension of the uncompressed output file.
const OutputExtension = ".csv"

// DelimitedExporter exports a query into <root>/<table>/<table>.csv.
type DelimitedExporter struct {
	store  db.Store
	runLog RunLogger
}

// NewDelimitedExporter creates an exporter running its queries on store and
// recording checkpoints in runLog.
func NewDelimitedExporter(store db.Store, runLog RunLogger) *DelimitedExporter {
	return &DelimitedExporter{store: store, runLog: runLog}
}

// tableRun carries the state of one table export.
type tableRun struct {
	table   string
	state   State
	outcome Outcome
}

func (r *tableRun) to(next State) {
	logger.Debug("%s: %s -> %s", r.table, r.state, next)
	r.state = next
}

// Export runs the state machine for one table.
func (e *DelimitedExporter) Export(ctx context.Context, options ExportOptions) (Outcome, error) {
	start := time.Now()
	if options.Delimiter == 0 {
		options.Delimiter = DefaultDelimiter
	}

	r := &tableRun{table: options.TableName, state: StateConnecting}
	r.outcome.Table = options.TableName

	if err := e.runLog.Checkpoint("Checking %s, please wait...", options.TableName); err != nil {
		return r.outcome, &IOError{Op: "writing run log", Err: err}
	}

	if err := e.store.Connect(); err != nil {
		r.to(StateFailed)
		return r.outcome, err
	}

	r.to(StateProbingHeaders)
	columns, err := ProbeHeaders(ctx, e.store, options.SQL)
	if err != nil {
		return e.fail(r, &QueryError{Table: options.TableName, Stage: StageProbe, Err: err})
	}
	if err := e.runLog.Checkpoint("%s: %d columns", options.TableName, len(columns)); err != nil {
		return r.outcome, &IOError{Op: "writing run log", Err: err}
	}

	r.to(StateEstimatingCount)
	total, err := EstimateRows(ctx, e.store, CountQuery(options.TableName, options.IndexColumn, columns))
	if err != nil {
		qerr := &QueryError{Table: options.TableName, Stage: StageEstimate, Err: err}
		if !options.LenientCount {
			return e.fail(r, qerr)
		}
		logger.Warn("%s: %v, progress will be indeterminate", options.TableName, qerr)
		total = 0
	}
	r.outcome.Progress.EstimatedTotal = total
	logger.Debug("Estimated rows for %s: %d", options.TableName, total)

	r.to(StatePreparingOutput)
	dir := filepath.Join(options.OutputRoot, options.TableName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return e.failIO(r, &IOError{Op: "creating directory", Path: dir, Err: err})
	}

	target := filepath.Join(dir, options.TableName+OutputExtension)
	writer, path, err := output.CreateWriter(output.OutputConfig{
		Path:        target,
		Compression: options.Compression,
	})
	if err != nil {
		return e.failIO(r, &IOError{Op: "creating output file", Path: output.ResolvePath(target, options.Compression), Err: err})
	}
	r.outcome.OutputPath = path
	if err := e.runLog.Checkpoint("Writing %s", path); err != nil {
		writer.Close()
		return r.outcome, &IOError{Op: "writing run log", Err: err}
	}

	dw := newDelimitedWriter(writer, options.Delimiter)
	if err := dw.WriteRecord(columnNames(columns)); err != nil {
		writer.Close()
		return e.failIO(r, &IOError{Op: "writing header", Path: path, Err: err})
	}
	logger.Debug("Header written: %s", strings.Join(columnNames(columns), string(options.Delimiter)))

	var bar *progressbar.ProgressBar
	progressOut := options.ProgressOut
	if progressOut == nil {
		progressOut = os.Stdout
	}
	if options.ProgressBar {
		bar = ui.NewProgressBar(options.TableName, total, progressOut)
	}

	r.to(StateStreaming)
	streamErr := e.stream(ctx, r, options, columns, dw, bar)

	r.to(StateFinalizing)
	closeErr := writer.Close()
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(progressOut)
	}
	r.outcome.RowsWritten = r.outcome.Progress.Completed

	if streamErr != nil {
		// the partial file is kept
		var ioErr *IOError
		if errors.As(streamErr, &ioErr) {
			return e.failIO(r, streamErr)
		}
		return e.fail(r, streamErr)
	}
	if closeErr != nil {
		return e.failIO(r, &IOError{Op: "closing output file", Path: path, Err: closeErr})
	}

	elapsed := time.Since(start)
	if r.outcome.Interrupted {
		logger.Warn("Export of %s interrupted after %d rows", options.TableName, r.outcome.RowsWritten)
		if err := e.runLog.Checkpoint("Interrupted: %d rows written to %s", r.outcome.RowsWritten, path); err != nil {
			return r.outcome, &IOError{Op: "writing run log", Err: err}
		}
	} else if err := e.runLog.Checkpoint("%s (%d rows)", path, r.outcome.RowsWritten); err != nil {
		return r.outcome, &IOError{Op: "writing run log", Err: err}
	}

	logger.Debug("Export of %s completed: %d rows written in %v (%.0f rows/s)",
		options.TableName, r.outcome.RowsWritten, elapsed.Round(time.Millisecond),
		float64(r.outcome.RowsWritten)/elapsed.Seconds())

	r.to(StateCompleted)
	return r.outcome, nil
}

// stream copies every row of the main query to dw. Cancellation of ctx stops
// the loop and marks the outcome interrupted without an error.
func (e *DelimitedExporter) stream(ctx context.Context, r *tableRun, options ExportOptions,
	columns []ColumnDescriptor, dw *delimitedWriter, bar *progressbar.ProgressBar) error {

	start := time.Now()
	rows, err := e.store.Query(ctx, options.SQL)
	if err != nil {
		if ctx.Err() != nil {
			r.outcome.Interrupted = true
			return nil
		}
		return &QueryError{Table: options.TableName, Stage: StageStream, Err: err}
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return &QueryError{Table: options.TableName, Stage: StageStream, Err: err}
	}
	if len(names) != len(columns) {
		return &QueryError{Table: options.TableName, Stage: StageStream,
			Err: fmt.Errorf("result has %d columns, header probe returned %d", len(names), len(columns))}
	}

	codec := formatters.NewCodec(options.TimeFormat, options.TimeZone)
	sanitizer := NewSanitizer(options.RepColumn, options.Delimiter, columns)

	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	record := make([]string, len(columns))

	progress := &r.outcome.Progress
	lastLog := time.Now()
	var fetchTime time.Duration

	for {
		if ctx.Err() != nil {
			r.outcome.Interrupted = true
			return nil
		}

		fetchStart := time.Now()
		hasNext := rows.Next()
		fetchTime += time.Since(fetchStart)
		if !hasNext {
			break
		}

		if err := rows.Scan(dest...); err != nil {
			return &QueryError{Table: options.TableName, Stage: StageStream, Err: err}
		}

		for i, col := range columns {
			s, err := codec.Encode(col.Kind, raw[i])
			if err != nil {
				return &CodecError{Column: col.Name, DeclaredType: col.DeclaredType, Row: progress.Completed + 1, Err: err}
			}
			record[i] = s
		}
		sanitizer.Apply(record)

		if err := dw.WriteRecord(record); err != nil {
			return &IOError{Op: "writing row", Path: r.outcome.OutputPath, Err: err}
		}

		progress.Completed++
		if bar != nil {
			if err := ui.Advance(bar, progress.Completed); err != nil {
				logger.Debug("Progress update failed: %v", err)
			}
		}

		if logger.IsVerbose() && (progress.Completed%10000 == 0 || time.Since(lastLog) > 2*time.Second) {
			elapsed := time.Since(start)
			logger.Debug("%d/%d rows written (%.0f rows/s, elapsed %v, avg fetch=%.2fms/row)",
				progress.Completed, progress.EstimatedTotal,
				float64(progress.Completed)/elapsed.Seconds(),
				elapsed.Truncate(100*time.Millisecond),
				float64(fetchTime.Milliseconds())/float64(progress.Completed))
			lastLog = time.Now()
		}
	}

	if err := rows.Err(); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			r.outcome.Interrupted = true
			return nil
		}
		return &QueryError{Table: options.TableName, Stage: StageStream, Err: err}
	}
	return nil
}

// fail ends a table in the Failed state. The run continues.
func (e *DelimitedExporter) fail(r *tableRun, cause error) (Outcome, error) {
	r.to(StateFailed)
	r.outcome.Cause = cause
	stage, reason := failureReason(cause)
	if err := e.runLog.Failure(r.table, stage, reason); err != nil {
		return r.outcome, &IOError{Op: "writing failure log", Err: err}
	}
	return r.outcome, nil
}

// failIO ends a table in the Failed state and returns the I/O error to the
// caller, which stops the run.
func (e *DelimitedExporter) failIO(r *tableRun, cause error) (Outcome, error) {
	r.to(StateFailed)
	r.outcome.Cause = cause
	if err := e.runLog.Failure(r.table, "", cause); err != nil {
		logger.Debug("Could not record failure of %s: %v", r.table, err)
	}
	return r.outcome, cause
}

// failureReason splits a table failure into the stage it happened in and the
// error text recorded against the table. Query failures record the driver error.
func failureReason(cause error) (string, error) {
	var qerr *QueryError
	if errors.As(cause, &qerr) {
		return qerr.Stage, qerr.Err
	}
	var cerr *CodecError
	if errors.As(cause, &cerr) {
		return StageStream, cause
	}
	return "", cause
}
