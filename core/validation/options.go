package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/fbz-tec/dbxport/core/formatters"
	"github.com/fbz-tec/dbxport/core/output"
)

// ParseDelimiter converts the user-supplied delimiter into its single byte.
// The escape sequence `\t` and the literal word "tab" select a tab.
func ParseDelimiter(s string) (byte, error) {
	switch s {
	case `\t`, "tab", "\t":
		return '\t', nil
	case "":
		return 0, fmt.Errorf("delimiter cannot be empty")
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	if s == "\n" || s == "\r" {
		return 0, fmt.Errorf("delimiter cannot be a line break")
	}
	return s[0], nil
}

// ValidateTimeZone checks if a timezone string is valid.
// Returns an error if the timezone cannot be loaded. Empty string is considered valid (uses local time).
func ValidateTimeZone(timezone string) error {
	if timezone == "" {
		return nil // Empty is valid (uses Local)
	}

	_, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	return nil
}

// ValidateTimeFormat validates that a time format string is valid by testing it with a known time.
// Returns an error if the format cannot be used to format and parse a time value.
func ValidateTimeFormat(format string) error {

	if format == "" {
		return fmt.Errorf("time format cannot be empty")
	}

	testTime := time.Date(2006, 1, 2, 15, 4, 5, 123456789, time.UTC)
	layout := formatters.ConvertUserTimeFormat(format)

	formatted := testTime.Format(layout)
	_, err := time.Parse(layout, formatted)

	if err != nil {
		return fmt.Errorf("invalid time format %q: %w", format, err)
	}

	return nil
}

// ValidateCompression checks the compression name against the supported set.
func ValidateCompression(compression string) error {
	if !output.IsSupported(compression) {
		return fmt.Errorf("unsupported compression: %s (valid: %s)",
			compression, strings.Join(output.Compressions(), ", "))
	}
	return nil
}

// ValidateTableName checks a name that is both interpolated into the count
// query and used as a directory and file name.
func ValidateTableName(table string) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if strings.ContainsAny(table, " \t\r\n;/\\") {
		return fmt.Errorf("invalid table name %q: whitespace, ';' and path separators are not allowed", table)
	}
	if table == "." || table == ".." {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// ValidateColumnName checks the optional index column used by the MAX estimate.
// An empty name disables the feature and is valid.
func ValidateColumnName(column string) error {
	if column == "" {
		return nil
	}
	if strings.ContainsAny(column, " \t\r\n;()") {
		return fmt.Errorf("invalid column name %q", column)
	}
	return nil
}
