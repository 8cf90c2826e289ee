package exporters

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/fbz-tec/dbxport/core/db"
	"github.com/fbz-tec/dbxport/core/formatters"
	"github.com/fbz-tec/dbxport/internal/logger"
)

const probeLimit = 10

// From the first LIMIT keyword to the end of the text, across lines.
var limitClause = regexp.MustCompile(`(?is)\blimit\s+\d+(\s*,\s*\d+)?\b.*`)

// ColumnDescriptor describes one result column, in result order.
type ColumnDescriptor struct {
	Name         string
	DeclaredType string
	Kind         formatters.Kind
}

// ProbeQuery rewrites query into a bounded preview: any LIMIT clause and
// what follows it is dropped, then LIMIT 10 is appended.
func ProbeQuery(query string) string {
	if loc := limitClause.FindStringIndex(query); loc != nil {
		query = query[:loc[0]]
	}
	query = strings.TrimRight(query, " \t\r\n;")
	return fmt.Sprintf("%s LIMIT %d", query, probeLimit)
}

// ProbeHeaders runs the preview query and returns the column descriptors.
// An empty preview is not an error: column metadata comes without rows.
func ProbeHeaders(ctx context.Context, q db.Querier, query string) ([]ColumnDescriptor, error) {
	rows, err := q.Query(ctx, ProbeQuery(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}

	columns := make([]ColumnDescriptor, len(types))
	for i, ct := range types {
		declared := ct.DatabaseTypeName()
		columns[i] = ColumnDescriptor{
			Name:         ct.Name(),
			DeclaredType: declared,
			Kind:         formatters.ParseKind(declared),
		}
		logger.Debug("Column %d: %s %s -> %s", i+1, columns[i].Name, declared, columns[i].Kind)
	}

	// some drivers report execution errors only once rows are read
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return columns, nil
}

func columnNames(columns []ColumnDescriptor) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}
