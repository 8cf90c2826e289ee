package formatters

import (
	"regexp"
	"strings"
)

// Kind is the closed set of column encodings. Driver type names are parsed
// into a Kind once per column when headers are probed.
type Kind int

const (
	KindText Kind = iota
	KindChar
	KindDecimal
	KindDouble
	KindFloat
	KindSmallInt
	KindInt
	KindBigInt
	KindUnsignedInt
	KindUnsignedBigInt
	KindDateTime
	KindDate
	KindBool
	KindBlob
)

var kindNames = [...]string{
	KindText:           "text",
	KindChar:           "char",
	KindDecimal:        "decimal",
	KindDouble:         "double",
	KindFloat:          "float",
	KindSmallInt:       "smallint",
	KindInt:            "int",
	KindBigInt:         "bigint",
	KindUnsignedInt:    "int unsigned",
	KindUnsignedBigInt: "bigint unsigned",
	KindDateTime:       "datetime",
	KindDate:           "date",
	KindBool:           "bool",
	KindBlob:           "blob",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// MySQL names first; PostgreSQL (pgx) and SQLite aliases follow on each line.
var kindsByTag = map[string]Kind{
	"DECIMAL": KindDecimal, "NUMERIC": KindDecimal,
	"DOUBLE": KindDouble, "DOUBLE PRECISION": KindDouble, "FLOAT8": KindDouble, "REAL": KindDouble,
	"FLOAT": KindFloat, "FLOAT4": KindFloat,
	"SMALLINT": KindSmallInt, "TINYINT": KindSmallInt, "INT2": KindSmallInt,
	"INT": KindInt, "MEDIUMINT": KindInt, "INTEGER": KindInt, "INT4": KindInt,
	"BIGINT": KindBigInt, "INT8": KindBigInt,
	"INT UNSIGNED": KindUnsignedInt, "UNSIGNED INT": KindUnsignedInt,
	"INTEGER UNSIGNED": KindUnsignedInt, "UNSIGNED INTEGER": KindUnsignedInt,
	"UNSIGNED TINYINT": KindUnsignedInt, "UNSIGNED SMALLINT": KindUnsignedInt, "UNSIGNED MEDIUMINT": KindUnsignedInt,
	"BIGINT UNSIGNED": KindUnsignedBigInt, "UNSIGNED BIGINT": KindUnsignedBigInt,
	"DATETIME": KindDateTime, "TIMESTAMP": KindDateTime, "TIMESTAMPTZ": KindDateTime,
	"DATE": KindDate,
	"BOOLEAN": KindBool, "BOOL": KindBool,
	"TINYBLOB": KindBlob, "BLOB": KindBlob, "MEDIUMBLOB": KindBlob, "LONGBLOB": KindBlob, "BYTEA": KindBlob,
	"CHAR": KindChar, "VARCHAR": KindChar, "BPCHAR": KindChar,
}

var (
	typeParams = regexp.MustCompile(`\([^)]*\)`)
	spaceRuns  = regexp.MustCompile(`\s+`)
)

// NormalizeTypeTag upper-cases a driver type name, drops length/precision
// parameters and collapses whitespace: "int(10) unsigned" -> "INT UNSIGNED".
func NormalizeTypeTag(tag string) string {
	tag = typeParams.ReplaceAllString(tag, " ")
	tag = spaceRuns.ReplaceAllString(strings.TrimSpace(tag), " ")
	return strings.ToUpper(strings.TrimSpace(tag))
}

// ParseKind maps a driver type name to its Kind. Unknown names are KindText.
func ParseKind(tag string) Kind {
	if k, ok := kindsByTag[NormalizeTypeTag(tag)]; ok {
		return k
	}
	return KindText
}
