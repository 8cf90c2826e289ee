package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	RunLogFile    = "logs.log"
	FailedLogFile = "failed.log"
)

// RunLog appends lifecycle checkpoints to <dir>/logs.log and per-table failures
// to <dir>/failed.log. Every entry is mirrored to the console logger.
// The failure log is only created when the first failure is recorded.
type RunLog struct {
	mu     sync.Mutex
	dir    string
	run    *os.File
	failed *os.File
	now    func() time.Time
}

// OpenRunLog creates dir if needed and opens the run log for appending.
func OpenRunLog(dir string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, RunLogFile)
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}

	Debug("Run log opened: %s", path)
	return &RunLog{dir: dir, run: f, now: time.Now}, nil
}

// Checkpoint writes "<timestamp> => <message>" to the run log.
func (r *RunLog) Checkpoint(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	Info("%s", msg)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeRunLine(msg)
}

// Failure records "<table>: <cause>" in the failure log and mirrors a
// timestamped "Error with <table> (<stage>): <cause>" line into the run log.
// An empty stage is left out of the mirror.
func (r *RunLog) Failure(table, stage string, cause error) error {
	reason := singleLine(cause)
	subject := table
	if stage != "" {
		subject = fmt.Sprintf("%s (%s)", table, stage)
	}
	Error("Error with %s: %s", subject, reason)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failed == nil {
		f, err := openAppend(filepath.Join(r.dir, FailedLogFile))
		if err != nil {
			return err
		}
		r.failed = f
	}

	if _, err := fmt.Fprintf(r.failed, "%s: %s\n", table, reason); err != nil {
		return fmt.Errorf("error writing failure log: %w", err)
	}
	return r.writeRunLine(fmt.Sprintf("Error with %s: %s", subject, reason))
}

// Close closes both log files. It is safe to call more than once.
func (r *RunLog) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, f := range []**os.File{&r.run, &r.failed} {
		if *f == nil {
			continue
		}
		if err := (*f).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		*f = nil
	}
	return firstErr
}

func (r *RunLog) writeRunLine(msg string) error {
	if r.run == nil {
		return fmt.Errorf("run log is closed")
	}
	line := fmt.Sprintf("%s => %s\n", r.now().Format(TimestampLayout), msg)
	if _, err := r.run.WriteString(line); err != nil {
		return fmt.Errorf("error writing run log: %w", err)
	}
	return nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to open log file %s: %w", path, err)
	}
	return f, nil
}

// singleLine keeps driver errors that span several lines on one log line.
func singleLine(err error) string {
	if err == nil {
		return "unknown error"
	}
	return strings.Join(strings.Fields(err.Error()), " ")
}
