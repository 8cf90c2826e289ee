package formatters

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fbz-tec/dbxport/internal/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// DefaultTimeFormat is the user-facing layout used for DATETIME/TIMESTAMP columns.
const DefaultTimeFormat = "yyyy-MM-dd HH:mm:ss"

// ErrUnexpectedValue is returned when the driver hands back a Go type that
// cannot carry the column's declared type.
var ErrUnexpectedValue = errors.New("unexpected value type")

var timeFormatReplacer = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
	"SSS", "000", // Milliseconds
	"S", "0", // Deciseconds
)

// Textual timestamp forms sent by drivers that do not parse temporal values.
var driverTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// Codec turns raw driver values into their canonical text form.
// A Codec is not safe for concurrent use.
type Codec struct {
	timeLayout string
	dateLayout string
	loc        *time.Location
	utf8       *encoding.Decoder
}

// NewCodec builds a codec rendering timestamps with the user time format
// (e.g. "yyyy-MM-dd HH:mm:ss") in the given zone. An empty zone means local time.
func NewCodec(userTimefmt, timeZone string) *Codec {
	if strings.TrimSpace(userTimefmt) == "" {
		userTimefmt = DefaultTimeFormat
	}
	layout, loc := UserTimeZoneFormat(userTimefmt, timeZone)
	return &Codec{
		timeLayout: layout,
		dateLayout: ConvertUserTimeFormat(extractUserDateFormat(userTimefmt)),
		loc:        loc,
		utf8:       unicode.UTF8.NewDecoder(),
	}
}

// Encode returns the text form of raw under kind. SQL NULL encodes as "".
func (c *Codec) Encode(kind Kind, raw any) (string, error) {
	if raw == nil {
		return "", nil
	}

	switch kind {
	case KindDecimal:
		return encodeDecimal(raw)

	case KindDouble:
		f, err := decodeFloat(raw, 64)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil

	case KindFloat:
		f, err := decodeFloat(raw, 32)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'f', -1, 32), nil

	case KindSmallInt:
		return encodeSigned(raw, 16)

	case KindInt:
		return encodeSigned(raw, 32)

	case KindBigInt:
		return encodeSigned(raw, 64)

	case KindUnsignedInt:
		return encodeUnsigned(raw, 32)

	case KindUnsignedBigInt:
		return encodeUnsigned(raw, 64)

	case KindBool:
		// booleans are small integers on the wire; keep them numeric
		if b, ok := raw.(bool); ok {
			if b {
				return "1", nil
			}
			return "0", nil
		}
		return encodeSigned(raw, 16)

	case KindDateTime:
		t, err := c.decodeTime(raw)
		if err != nil {
			return "", err
		}
		return t.In(c.loc).Format(c.timeLayout), nil

	case KindDate:
		t, err := c.decodeTime(raw)
		if err != nil {
			return "", err
		}
		return t.Format(c.dateLayout), nil

	case KindBlob:
		return c.encodeBlob(raw)

	case KindChar, KindText:
		return c.encodeText(raw), nil
	}

	return "", fmt.Errorf("no encoding for column kind %d", kind)
}

func encodeDecimal(raw any) (string, error) {
	var d decimal.Decimal
	var err error

	switch v := raw.(type) {
	case []byte:
		d, err = decimal.NewFromString(string(v))
	case string:
		d, err = decimal.NewFromString(v)
	case int64:
		d = decimal.NewFromInt(v)
	case float64:
		d = decimal.NewFromFloat(v)
	case float32:
		d = decimal.NewFromFloat32(v)
	default:
		return "", fmt.Errorf("%w %T for decimal", ErrUnexpectedValue, raw)
	}
	if err != nil {
		return "", fmt.Errorf("invalid decimal %v: %w", raw, err)
	}

	// keep the declared scale: 1.50 stays 1.50
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp), nil
	}
	return d.String(), nil
}

func decodeFloat(raw any, bits int) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return parseFloat(string(v), bits)
	case string:
		return parseFloat(v, bits)
	}
	return 0, fmt.Errorf("%w %T for float", ErrUnexpectedValue, raw)
}

func parseFloat(s string, bits int) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), bits)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q: %w", s, err)
	}
	return f, nil
}

func encodeSigned(raw any, bits int) (string, error) {
	var n int64

	switch v := raw.(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int16:
		n = int64(v)
	case int8:
		n = int64(v)
	case int:
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return "", fmt.Errorf("value %d overflows int%d", v, bits)
		}
		n = int64(v)
	case []byte:
		return parseSigned(string(v), bits)
	case string:
		return parseSigned(v, bits)
	default:
		return "", fmt.Errorf("%w %T for int%d", ErrUnexpectedValue, raw, bits)
	}

	if bits < 64 {
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if n < lo || n > hi {
			return "", fmt.Errorf("value %d overflows int%d", n, bits)
		}
	}
	return strconv.FormatInt(n, 10), nil
}

func parseSigned(s string, bits int) (string, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, bits)
	if err != nil {
		return "", fmt.Errorf("invalid int%d %q: %w", bits, s, err)
	}
	return strconv.FormatInt(n, 10), nil
}

func encodeUnsigned(raw any, bits int) (string, error) {
	var n uint64

	switch v := raw.(type) {
	case uint64:
		n = v
	case uint32:
		n = uint64(v)
	case int64:
		if v < 0 {
			return "", fmt.Errorf("negative value %d for uint%d", v, bits)
		}
		n = uint64(v)
	case []byte:
		return parseUnsigned(string(v), bits)
	case string:
		return parseUnsigned(v, bits)
	default:
		return "", fmt.Errorf("%w %T for uint%d", ErrUnexpectedValue, raw, bits)
	}

	if bits < 64 && n > uint64(1)<<bits-1 {
		return "", fmt.Errorf("value %d overflows uint%d", n, bits)
	}
	return strconv.FormatUint(n, 10), nil
}

func parseUnsigned(s string, bits int) (string, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, bits)
	if err != nil {
		return "", fmt.Errorf("invalid uint%d %q: %w", bits, s, err)
	}
	return strconv.FormatUint(n, 10), nil
}

func (c *Codec) decodeTime(raw any) (time.Time, error) {
	var s string
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return time.Time{}, fmt.Errorf("%w %T for timestamp", ErrUnexpectedValue, raw)
	}

	s = strings.TrimSpace(s)
	if len(s) == len("2006-01-02") {
		if t, err := time.ParseInLocation("2006-01-02", s, c.loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range driverTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func (c *Codec) encodeBlob(raw any) (string, error) {
	var b []byte
	switch v := raw.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return "", fmt.Errorf("%w %T for blob", ErrUnexpectedValue, raw)
	}

	// invalid sequences become U+FFFD instead of failing the row
	out, err := c.utf8.Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding blob: %w", err)
	}
	return string(out), nil
}

func (c *Codec) encodeText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.In(c.loc).Format(c.timeLayout)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// UserTimeZoneFormat converts a user time format to a Go layout and resolves
// the time zone, falling back to local time when it is empty or unknown.
func UserTimeZoneFormat(userTimefmt string, timeZone string) (string, *time.Location) {
	layout := ConvertUserTimeFormat(userTimefmt)

	if timeZone == "" {
		return layout, time.Local
	}

	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		logger.Warn("Invalid timezone %q, using local time: %v", timeZone, err)
		return layout, time.Local
	}

	return layout, loc
}

func ConvertUserTimeFormat(userTimefmt string) string {
	return timeFormatReplacer.Replace(userTimefmt)
}

// extractUserDateFormat extracts only the date portion from a datetime format string.
// For example, "yyyy-MM-dd HH:mm:ss" becomes "yyyy-MM-dd".
func extractUserDateFormat(userFmt string) string {
	dateTokens := []string{"yyyy", "yy", "MM", "dd"}
	last := -1
	for _, tok := range dateTokens {
		idx := strings.LastIndex(userFmt, tok)
		if idx != -1 {
			end := idx + len(tok)
			if end > last {
				last = end
			}
		}
	}

	if last == -1 {
		// No date tokens found, return original
		return userFmt
	}
	return strings.TrimSpace(userFmt[:last])
}
