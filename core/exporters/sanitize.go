package exporters

import (
	"strings"

	"github.com/fbz-tec/dbxport/internal/logger"
)

// Sanitizer strips the delimiter from the values of one named column.
// The column index is resolved once; the zero value is disabled.
type Sanitizer struct {
	index int
	delim string
}

// NewSanitizer targets column among columns. An empty or absent name gives a
// disabled sanitizer.
func NewSanitizer(column string, delim byte, columns []ColumnDescriptor) Sanitizer {
	if column == "" {
		return Sanitizer{index: -1}
	}
	for i, c := range columns {
		if c.Name == column {
			return Sanitizer{index: i, delim: string(delim)}
		}
	}
	logger.Debug("Sanitize column %q not in result, nothing to strip", column)
	return Sanitizer{index: -1}
}

// Enabled reports whether a column was matched.
func (s Sanitizer) Enabled() bool {
	return s.delim != "" && s.index >= 0
}

// Apply removes every delimiter byte from the target field of record.
func (s Sanitizer) Apply(record []string) {
	if !s.Enabled() || s.index >= len(record) {
		return
	}
	record[s.index] = strings.ReplaceAll(record[s.index], s.delim, "")
}
