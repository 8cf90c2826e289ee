package db

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// database/sql driver names registered by the imports above.
var sqlDriverNames = map[string]string{
	DriverMySQL:    "mysql",
	DriverPostgres: "pgx",
	DriverSQLite:   "sqlite",
}

// SupportedDrivers lists the accepted --driver values.
func SupportedDrivers() []string {
	return []string{DriverMySQL, DriverPostgres, DriverSQLite}
}

// SQLDriverName resolves a user-facing driver name to the name registered
// with database/sql. "postgresql" and "pg" are accepted as aliases.
func SQLDriverName(driver string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(driver))
	switch d {
	case "postgresql", "pg":
		d = DriverPostgres
	case "sqlite3":
		d = DriverSQLite
	}
	if name, ok := sqlDriverNames[d]; ok {
		return name, nil
	}
	return "", fmt.Errorf("unsupported driver %q (supported: %s)", driver, strings.Join(SupportedDrivers(), ", "))
}
