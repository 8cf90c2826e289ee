package cmd

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/fbz-tec/dbxport/core/exporters"
	"github.com/fbz-tec/dbxport/internal/logger"
)

func init() {
	logger.GetLogger().SetOutput(io.Discard)
	logger.GetLogger().SetErrorOutput(io.Discard)
}

func createShopDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()

	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(20))",
		"INSERT INTO users VALUES (1, 'ann'), (2, 'bob')",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, total DECIMAL(10,2))",
		"INSERT INTO orders VALUES (10, '5.50')",
	} {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("setup %q: %v", stmt, err)
		}
	}
	return path
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_DRIVER", "")
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestRootExportSQLite(t *testing.T) {
	dbPath := createShopDB(t)
	out := filepath.Join(t.TempDir(), "out")

	err := runCLI(t, "--driver", "sqlite", "-d", dbPath, "-o", out, "--no-progress",
		"-t", "users", "-s", "SELECT id, name FROM users ORDER BY id LIMIT 50", "-i", "id")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(out, "users", "users.csv"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(content) != "id|name\n1|ann\n2|bob\n" {
		t.Errorf("output = %q", string(content))
	}

	runLog, err := os.ReadFile(filepath.Join(out, logger.RunLogFile))
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.HasSuffix(string(runLog), " => Download done.\n") {
		t.Errorf("run log should end with the done checkpoint:\n%s", runLog)
	}
}

func TestRootConnectionFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")

	err := runCLI(t, "--driver", "mysql", "-H", "127.0.0.1", "-P", "1", "-d", "shop", "-o", out,
		"-t", "users", "-s", "SELECT 1")
	if err == nil {
		t.Fatal("Execute() should fail without a reachable database")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("nothing should be written when the connection fails")
	}
}

func TestBatchSQLite(t *testing.T) {
	dbPath := createShopDB(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	jobs := filepath.Join(dir, "jobs.yaml")
	content := `
- table: users
  sql: SELECT id, name FROM users ORDER BY id
- table: missing
  sql: SELECT * FROM missing
- table: orders
  sql: SELECT id, total FROM orders
  index: id
`
	if err := os.WriteFile(jobs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runCLI(t, "batch", jobs, "--driver", "sqlite", "-d", dbPath, "-o", out, "--no-progress"); err != nil {
		t.Fatalf("batch Execute() error = %v", err)
	}

	orders, err := os.ReadFile(filepath.Join(out, "orders", "orders.csv"))
	if err != nil {
		t.Fatalf("the batch should continue past the failed table: %v", err)
	}
	if string(orders) != "id|total\n10|5.5\n" {
		t.Errorf("orders output = %q", string(orders))
	}

	failed, err := os.ReadFile(filepath.Join(out, logger.FailedLogFile))
	if err != nil {
		t.Fatalf("read failed.log: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(failed)), "\n"); len(lines) != 1 || !strings.HasPrefix(lines[0], "missing: ") {
		t.Errorf("failed.log = %q", string(failed))
	}
}

func TestValidateJobParams(t *testing.T) {
	tests := []struct {
		name                 string
		table, index, repcol string
		wantErr              bool
	}{
		{"valid", "users", "id", "name", false},
		{"no optional columns", "users", "", "", false},
		{"missing table", "", "", "", true},
		{"table with separator", "a/b", "", "", true},
		{"injected index", "users", "id); DROP", "", true},
		{"blank repcol", "users", "", "  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateJobParams(tt.table, tt.index, tt.repcol)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateJobParams() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandleExportResult(t *testing.T) {
	tests := []struct {
		name    string
		outcome exporters.Outcome
		wantErr bool
	}{
		{"success", exporters.Outcome{Table: "users", RowsWritten: 3, OutputPath: "out/users/users.csv"}, false},
		{"empty", exporters.Outcome{Table: "users", OutputPath: "out/users/users.csv"}, false},
		{"table failure is not fatal", exporters.Outcome{Table: "users", Cause: errors.New("boom")}, false},
		{"interrupted", exporters.Outcome{Table: "users", RowsWritten: 5, Interrupted: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleExportResult(tt.outcome)
			if (err != nil) != tt.wantErr {
				t.Fatalf("handleExportResult() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !isInterrupted(err) {
				t.Errorf("interrupted error should wrap context.Canceled: %v", err)
			}
		})
	}
}

func TestPrintSummary(t *testing.T) {
	summary := orderedmap.NewOrderedMap[string, exporters.Outcome]()
	summary.Set("users", exporters.Outcome{Table: "users", RowsWritten: 2})
	summary.Set("missing", exporters.Outcome{Table: "missing", Cause: errors.New("no such table")})
	summary.Set("orders", exporters.Outcome{Table: "orders", Interrupted: true})

	if failed := printSummary(summary, 4); failed != 1 {
		t.Errorf("printSummary() = %d failed, want 1", failed)
	}
}

func TestIsInterrupted(t *testing.T) {
	if isInterrupted(errors.New("other")) {
		t.Error("plain error reported as interrupted")
	}
	if !isInterrupted(context.Canceled) {
		t.Error("context.Canceled not reported as interrupted")
	}
}
