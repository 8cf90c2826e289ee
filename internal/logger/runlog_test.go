package logger

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func init() {
	GetLogger().SetOutput(io.Discard)
	GetLogger().SetErrorOutput(io.Discard)
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
}

func TestRunLogCheckpoint(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")

	rl, err := OpenRunLog(dir)
	if err != nil {
		t.Fatalf("OpenRunLog() error = %v", err)
	}
	rl.now = fixedClock

	if err := rl.Checkpoint("Checking %s, please wait...", "users"); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if err := rl.Checkpoint("Download done."); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, RunLogFile))
	if err != nil {
		t.Fatalf("Failed to read run log: %v", err)
	}

	want := "2024-03-09 14:05:07 => Checking users, please wait...\n" +
		"2024-03-09 14:05:07 => Download done.\n"
	if string(content) != want {
		t.Errorf("run log = %q, want %q", string(content), want)
	}

	if _, err := os.Stat(filepath.Join(dir, FailedLogFile)); !os.IsNotExist(err) {
		t.Errorf("failed.log should not exist when nothing failed")
	}
}

func TestRunLogFailure(t *testing.T) {
	dir := t.TempDir()

	rl, err := OpenRunLog(dir)
	if err != nil {
		t.Fatalf("OpenRunLog() error = %v", err)
	}
	rl.now = fixedClock
	defer rl.Close()

	cause := errors.New("Table 'shop.users' doesn't exist\n(1146)")
	if err := rl.Failure("users", "header probe", cause); err != nil {
		t.Fatalf("Failure() error = %v", err)
	}
	rl.Close()

	failed, err := os.ReadFile(filepath.Join(dir, FailedLogFile))
	if err != nil {
		t.Fatalf("Failed to read failure log: %v", err)
	}
	if string(failed) != "users: Table 'shop.users' doesn't exist (1146)\n" {
		t.Errorf("failed.log = %q", string(failed))
	}

	run, err := os.ReadFile(filepath.Join(dir, RunLogFile))
	if err != nil {
		t.Fatalf("Failed to read run log: %v", err)
	}
	if string(run) != "2024-03-09 14:05:07 => Error with users (header probe): Table 'shop.users' doesn't exist (1146)\n" {
		t.Errorf("run log should mirror the failure, got %q", string(run))
	}
}

func TestRunLogAppends(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		rl, err := OpenRunLog(dir)
		if err != nil {
			t.Fatalf("OpenRunLog() error = %v", err)
		}
		rl.Checkpoint("run %d", i)
		rl.Failure("orders", "", errors.New("boom"))
		rl.Close()
	}

	run, _ := os.ReadFile(filepath.Join(dir, RunLogFile))
	if n := strings.Count(string(run), "\n"); n != 4 {
		t.Errorf("run log lines = %d, want 4", n)
	}

	failed, _ := os.ReadFile(filepath.Join(dir, FailedLogFile))
	if string(failed) != "orders: boom\norders: boom\n" {
		t.Errorf("failed.log = %q", string(failed))
	}
}

func TestRunLogCloseTwice(t *testing.T) {
	rl, err := OpenRunLog(t.TempDir())
	if err != nil {
		t.Fatalf("OpenRunLog() error = %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := rl.Checkpoint("late"); err == nil {
		t.Error("Checkpoint() after Close() should fail")
	}
}
