package tabular

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// ErrInvalidJSON is returned for documents that are not exactly one valid JSON
// value
var ErrInvalidJSON = errors.New("invalid json")

// Decode parses a JSON document into a Value. Object keys keep document order.
// Anything but whitespace after the value is rejected.
func Decode(data []byte) (Value, error) {
	// jsonparser reads the first value and tolerates trailing input
	if !json.Valid(data) {
		return Value{}, fmt.Errorf("failed to decode json: %w", ErrInvalidJSON)
	}
	raw, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return Value{}, fmt.Errorf("failed to decode json: %w", err)
	}
	return decodeValue(raw, dataType)
}

// DecodeRecord parses a JSON document that must be an object
func DecodeRecord(data []byte) (*Record, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	r, ok := v.Record()
	if !ok {
		return nil, &ContractViolation{Op: "decode", Want: KindRecord, Got: v.Kind()}
	}
	return r, nil
}

func decodeValue(raw []byte, dataType jsonparser.ValueType) (Value, error) {
	switch dataType {
	case jsonparser.Object:
		r, err := decodeObject(raw)
		if err != nil {
			return Value{}, err
		}
		return Nested(r), nil

	case jsonparser.Array:
		items, err := decodeArray(raw)
		if err != nil {
			return Value{}, err
		}
		return List(items...), nil

	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return Value{}, fmt.Errorf("invalid string %q: %w", raw, err)
		}
		return Scalar(s), nil

	case jsonparser.Number:
		// Integral values stay int64 so epoch milliseconds round-trip exactly
		if n, err := jsonparser.ParseInt(raw); err == nil {
			return Scalar(n), nil
		}
		f, err := jsonparser.ParseFloat(raw)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", raw, err)
		}
		return Scalar(f), nil

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return Value{}, fmt.Errorf("invalid boolean %q: %w", raw, err)
		}
		return Scalar(b), nil

	case jsonparser.Null:
		return Null(), nil

	default:
		return Value{}, fmt.Errorf("unsupported json value %q", raw)
	}
}

func decodeObject(raw []byte) (*Record, error) {
	r := NewRecord()
	err := jsonparser.ObjectEach(raw, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		v, err := decodeValue(value, dataType)
		if err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		r.Set(string(key), v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func decodeArray(raw []byte) ([]Value, error) {
	items := []Value{}
	var itemErr error
	_, err := jsonparser.ArrayEach(raw, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if itemErr != nil {
			return
		}
		if err != nil {
			itemErr = err
			return
		}
		v, err := decodeValue(value, dataType)
		if err != nil {
			itemErr = fmt.Errorf("item %d: %w", len(items), err)
			return
		}
		items = append(items, v)
	})
	if itemErr != nil {
		return nil, itemErr
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}
