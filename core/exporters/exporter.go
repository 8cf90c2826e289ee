package exporters

import (
	"context"
	"io"
)

// DefaultDelimiter separates fields when none is configured.
const DefaultDelimiter byte = '|'

// ExportOptions holds export configuration for one table.
type ExportOptions struct {
	TableName    string
	SQL          string
	IndexColumn  string // MAX(<col>) estimate when set and present in the result
	RepColumn    string // column whose values have the delimiter stripped
	OutputRoot   string
	Delimiter    byte
	Compression  string
	TimeFormat   string
	TimeZone     string
	LenientCount bool
	ProgressBar  bool
	ProgressOut  io.Writer
}

// ProgressState tracks streamed rows against the pre-computed estimate.
// Completed may exceed EstimatedTotal.
type ProgressState struct {
	EstimatedTotal uint64
	Completed      uint64
}

// Outcome is the terminal result of one table export.
// Cause is set when the table failed; RowsWritten and OutputPath are
// meaningful on success, including interrupted runs.
type Outcome struct {
	Table       string
	RowsWritten uint64
	OutputPath  string
	Interrupted bool
	Progress    ProgressState
	Cause       error
}

// Failed reports whether the table export ended in the Failed state.
func (o Outcome) Failed() bool {
	return o.Cause != nil
}

// RunLogger receives the lifecycle checkpoints and per-table failures of a run.
type RunLogger interface {
	Checkpoint(format string, args ...any) error
	Failure(table, stage string, cause error) error
}

// Exporter streams the result of a query into a file.
//
// A failure confined to the table (query, estimate or decoding error) is
// reported through Outcome.Cause and the run log; the returned error is
// reserved for conditions fatal to the whole run (connection, file I/O).
type Exporter interface {
	Export(ctx context.Context, options ExportOptions) (Outcome, error)
}

// State is a step of the export state machine.
type State int

const (
	StateConnecting State = iota
	StateProbingHeaders
	StateEstimatingCount
	StatePreparingOutput
	StateStreaming
	StateFinalizing
	StateCompleted
	StateFailed
)

var stateNames = [...]string{
	StateConnecting:      "connecting",
	StateProbingHeaders:  "probing headers",
	StateEstimatingCount: "estimating count",
	StatePreparingOutput: "preparing output",
	StateStreaming:       "streaming",
	StateFinalizing:      "finalizing",
	StateCompleted:       "completed",
	StateFailed:          "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
