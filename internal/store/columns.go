package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/tordrt/snaketrade/internal/tabular"
)

// ColumnType is the storage class inferred for a column
type ColumnType string

const (
	TypeInteger   ColumnType = "integer"
	TypeNumber    ColumnType = "number"
	TypeBoolean   ColumnType = "boolean"
	TypeTimestamp ColumnType = "timestamp"
	TypeText      ColumnType = "text"
)

// Column is a named, typed target column
type Column struct {
	Name string
	Type ColumnType
}

// DuplicateColumnError is returned for tables that name a column twice.
// Column names are compared case-insensitively, as MySQL and SQLite do.
type DuplicateColumnError struct {
	Table  string
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("table %s has duplicate column %q", e.Table, e.Column)
}

// InferColumns derives one column per table column. A column whose non-null
// values all share a type gets that type; integers mixed with floats become
// numbers and every other mix becomes text. All-null columns are text.
func InferColumns(name string, t tabular.Table) ([]Column, error) {
	seen := make(map[string]bool, len(t.Columns))
	columns := make([]Column, 0, len(t.Columns))

	for i, col := range t.Columns {
		key := strings.ToLower(col)
		if seen[key] {
			return nil, &DuplicateColumnError{Table: name, Column: col}
		}
		seen[key] = true

		values := make([]tabular.Value, 0, len(t.Rows))
		for _, row := range t.Rows {
			if i < len(row) {
				values = append(values, row[i].Value)
			}
		}
		columns = append(columns, Column{Name: col, Type: inferType(values)})
	}
	return columns, nil
}

func inferType(values []tabular.Value) ColumnType {
	var result ColumnType
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		t := valueType(v)
		switch {
		case result == "":
			result = t
		case result == t:
		case isNumeric(result) && isNumeric(t):
			result = TypeNumber
		default:
			return TypeText
		}
	}
	if result == "" {
		return TypeText
	}
	return result
}

func valueType(v tabular.Value) ColumnType {
	if v.Kind() != tabular.KindScalar {
		return TypeText
	}
	switch v.Scalar().(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32, float64:
		return TypeNumber
	case bool:
		return TypeBoolean
	case time.Time:
		return TypeTimestamp
	default:
		return TypeText
	}
}

func isNumeric(t ColumnType) bool {
	return t == TypeInteger || t == TypeNumber
}

// sqlValue converts v to the driver value stored in a column of type t
func sqlValue(v tabular.Value, t ColumnType) (any, error) {
	if v.IsNull() {
		return nil, nil
	}

	switch t {
	case TypeInteger:
		return cast.ToInt64E(v.Scalar())
	case TypeNumber:
		return cast.ToFloat64E(v.Scalar())
	case TypeBoolean:
		return cast.ToBoolE(v.Scalar())
	case TypeTimestamp:
		ts, ok := v.Scalar().(time.Time)
		if !ok {
			return nil, fmt.Errorf("expected timestamp, got %T", v.Scalar())
		}
		return ts.UTC(), nil
	default:
		return v.String(), nil
	}
}

// rowValues converts every row of t for insertion into columns
func rowValues(t tabular.Table, columns []Column) ([][]any, error) {
	out := make([][]any, 0, len(t.Rows))
	for r, row := range t.Rows {
		values := make([]any, len(columns))
		for i, c := range columns {
			var v tabular.Value
			if i < len(row) {
				v = row[i].Value
			}
			converted, err := sqlValue(v, c.Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r, c.Name, err)
			}
			values[i] = converted
		}
		out = append(out, values)
	}
	return out, nil
}
