package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/fbz-tec/dbxport/internal/logger"
	"github.com/go-sql-driver/mysql"
)

const connectTimeout = 10 * time.Second

// ConnectionError reports a failure to open or reach the database.
// It is fatal to the whole run.
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("unable to connect to %s database: %v", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SQLStore is a Store backed by database/sql. It holds a single open
// connection so every query of a run shares one session.
type SQLStore struct {
	driver string
	dsn    string
	db     *sql.DB
}

// NewSQLStore creates a store for the given driver ("mysql", "postgres",
// "sqlite") and DSN. No connection is made until Connect.
func NewSQLStore(driver, dsn string) *SQLStore {
	return &SQLStore{driver: driver, dsn: dsn}
}

// WrapDB adopts an already opened handle. Connect becomes a no-op.
func WrapDB(db *sql.DB) *SQLStore {
	return &SQLStore{driver: "wrapped", db: db}
}

// Connect opens the handle and verifies connectivity with a ping.
// Calling Connect on a connected store does nothing.
func (s *SQLStore) Connect() error {
	if s.db != nil {
		return nil // already connected
	}

	name, err := SQLDriverName(s.driver)
	if err != nil {
		return &ConnectionError{Driver: s.driver, Err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	logger.Debug("Connection timeout: %v", connectTimeout)
	logger.Debug("Attempting to connect to %s database: %s", s.driver, sanitizeDSN(s.driver, s.dsn))

	db, err := sql.Open(name, s.dsn)
	if err != nil {
		return &ConnectionError{Driver: s.driver, Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger.Debug("Handle opened, verifying connectivity (ping)...")

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return &ConnectionError{Driver: s.driver, Err: fmt.Errorf("unable to ping database: %w", err)}
	}

	logger.Debug("Database ping successful")
	s.db = db
	return nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	logger.Debug("Closing database connection...")

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	if err != nil {
		logger.Debug("Error closing database connection: %v", err)
	} else {
		logger.Debug("Database connection closed successfully")
	}
	s.db = nil
	return err
}

// Query executes a SQL query with the given arguments and returns the result rows.
// Returns an error if the query execution fails or if the store is not connected.
func (s *SQLStore) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.db == nil {
		logger.Debug("No active database connection; query cannot be executed")
		return nil, fmt.Errorf("database not connected")
	}

	logger.Debug("Executing SQL query...")
	logger.Debug("Query: %s", query)

	startTime := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	duration := time.Since(startTime)

	if err != nil {
		logger.Debug("Query failed after %v", duration)
		return nil, err
	}

	logger.Debug("Query executed successfully in %v", duration)
	return rows, nil
}

// QueryRow executes a query expected to return at most one row.
// On a disconnected store the returned row's Scan fails.
func (s *SQLStore) QueryRow(ctx context.Context, query string, args ...any) Row {
	if s.db == nil {
		return errRow{fmt.Errorf("database not connected")}
	}
	logger.Debug("Query: %s", query)
	return s.db.QueryRowContext(ctx, query, args...)
}

// DB returns the underlying handle, nil before Connect.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// sanitizeDSN masks the password inside a DSN before logging.
func sanitizeDSN(driver, dsn string) string {
	switch driver {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "<invalid-dsn>"
		}
		if cfg.Passwd != "" {
			cfg.Passwd = "***"
		}
		return cfg.FormatDSN()
	case DriverSQLite, "sqlite3":
		return dsn
	}

	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "<invalid-dsn>"
	}

	var userInfo string
	if u.User != nil {
		username := u.User.Username()
		if _, hasPwd := u.User.Password(); hasPwd {
			userInfo = fmt.Sprintf("%s:***@", username)
		} else {
			userInfo = fmt.Sprintf("%s@", username)
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return fmt.Sprintf("%s://%s%s%s", u.Scheme, userInfo, u.Host, path)
}
