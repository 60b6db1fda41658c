// Package timefmt validates request dates and converts the epoch timestamps
// the API returns.
package timefmt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/spf13/cast"

	"github.com/tordrt/snaketrade/internal/tabular"
)

// RequestDate is the strftime format the API expects for startDate and endDate
const RequestDate = "%m%d%Y"

// FormatError reports a date string that does not match its format
type FormatError struct {
	Text   string
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("date %q does not match format %q: %v", e.Text, e.Format, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ConversionError reports a value that is not an integer count of epoch
// milliseconds or seconds
type ConversionError struct {
	Value any
	Unit  string
	Err   error
}

func (e *ConversionError) Error() string {
	unit := e.Unit
	if unit == "" {
		unit = "milliseconds"
	}
	if e.Err != nil {
		return fmt.Sprintf("cannot convert %v (%T) to epoch %s: %v", e.Value, e.Value, unit, e.Err)
	}
	return fmt.Sprintf("cannot convert %v (%T) to epoch %s", e.Value, e.Value, unit)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// CheckDateFormat reports whether text parses with the strftime format.
// When strict is set a mismatch is returned as a *FormatError.
func CheckDateFormat(text, format string, strict bool) (bool, error) {
	if _, err := strftime.Parse(format, text); err != nil {
		if strict {
			return false, &FormatError{Text: text, Format: format, Err: err}
		}
		return false, nil
	}
	return true, nil
}

// UTCFromMillis interprets v as milliseconds since the Unix epoch.
//
// Integers, integral floats, json.Number and decimal strings are accepted.
// Values outside the int64 range are a *ConversionError.
func UTCFromMillis(v any) (time.Time, error) {
	ms, err := toInt64(v, "milliseconds")
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// UTCFromSeconds is UTCFromMillis for values counted in seconds
func UTCFromSeconds(v any) (time.Time, error) {
	sec, err := toInt64(v, "seconds")
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}

// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
const maxInt64Float = float64(math.MaxInt64)

func toInt64(v any, unit string) (int64, error) {
	switch n := v.(type) {
	case nil, bool:
		return 0, &ConversionError{Value: v, Unit: unit}
	case float64:
		if !integralInt64(n) {
			return 0, &ConversionError{Value: v, Unit: unit}
		}
		return int64(n), nil
	case float32:
		if !integralInt64(float64(n)) {
			return 0, &ConversionError{Value: v, Unit: unit}
		}
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, &ConversionError{Value: v, Unit: unit, Err: strconv.ErrRange}
		}
	case uint64:
		if n > math.MaxInt64 {
			return 0, &ConversionError{Value: v, Unit: unit, Err: strconv.ErrRange}
		}
	case uintptr:
		if uint64(n) > math.MaxInt64 {
			return 0, &ConversionError{Value: v, Unit: unit, Err: strconv.ErrRange}
		}
	case string:
		// decimal only, cast would also accept hex and octal prefixes
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, &ConversionError{Value: v, Unit: unit, Err: err}
		}
		return i, nil
	case json.Number:
		i, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
		if err != nil {
			return 0, &ConversionError{Value: v, Unit: unit, Err: err}
		}
		return i, nil
	}

	i, err := cast.ToInt64E(v)
	if err != nil {
		return 0, &ConversionError{Value: v, Unit: unit, Err: err}
	}
	return i, nil
}

// integralInt64 reports whether f is a whole number that fits in an int64.
// NaN and the infinities fail every comparison below.
func integralInt64(f float64) bool {
	return f >= math.MinInt64 && f < maxInt64Float && f == math.Trunc(f)
}

// MillisColumn converts every non-null cell of a table column to a UTC timestamp
func MillisColumn(t tabular.Table, column string) error {
	return mapColumn(t, column, UTCFromMillis)
}

// SecondsColumn is MillisColumn for columns counted in seconds
func SecondsColumn(t tabular.Table, column string) error {
	return mapColumn(t, column, UTCFromSeconds)
}

func mapColumn(t tabular.Table, column string, convert func(any) (time.Time, error)) error {
	return t.MapColumn(column, func(v tabular.Value) (tabular.Value, error) {
		ts, err := convert(v.Scalar())
		if err != nil {
			return tabular.Value{}, fmt.Errorf("column %s: %w", column, err)
		}
		return tabular.Scalar(ts), nil
	})
}
