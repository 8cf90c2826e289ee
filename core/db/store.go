package db

import (
	"context"
	"database/sql"
)

// Row is a single-row result; *sql.Row satisfies it.
type Row interface {
	Scan(dest ...any) error
}

// Querier runs queries against an open database handle.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
}

// Store defines the interface for database operations.
// Implementations should handle connection management and query execution.
type Store interface {
	Querier
	Connect() error
	Close() error
}
