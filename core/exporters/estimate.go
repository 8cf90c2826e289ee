package exporters

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"slices"

	"github.com/fbz-tec/dbxport/core/db"
	"github.com/shopspring/decimal"
)

// CountQuery builds the progress denominator query: MAX(index) when the index
// column is part of the result, COUNT(*) otherwise.
func CountQuery(table, index string, columns []ColumnDescriptor) string {
	if index != "" && slices.Contains(columnNames(columns), index) {
		return fmt.Sprintf("SELECT MAX(%s) FROM %s", index, table)
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
}

var maxEstimate = decimal.NewFromUint64(math.MaxUint64)

// EstimateRows runs a scalar count/max query. NULL (empty table) and
// negative values yield 0, fractional values are truncated and values past
// uint64 are clamped.
func EstimateRows(ctx context.Context, q db.Querier, query string) (uint64, error) {
	var raw sql.NullString
	if err := q.QueryRow(ctx, query).Scan(&raw); err != nil {
		return 0, err
	}
	if !raw.Valid {
		return 0, nil
	}

	d, err := decimal.NewFromString(raw.String)
	if err != nil {
		return 0, fmt.Errorf("non-numeric row estimate %q: %w", raw.String, err)
	}
	if d.IsNegative() {
		return 0, nil
	}
	if d.GreaterThan(maxEstimate) {
		return math.MaxUint64, nil
	}
	return d.Truncate(0).BigInt().Uint64(), nil
}
