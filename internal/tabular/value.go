package tabular

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindScalar Kind = iota
	KindRecord
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a decoded JSON value: a scalar, a nested Record or a list.
// Scalars are nil, string, int64, float64, bool or time.Time.
type Value struct {
	kind   Kind
	scalar any
	record *Record
	list   []Value
}

// Scalar wraps a scalar value
func Scalar(v any) Value {
	return Value{kind: KindScalar, scalar: v}
}

// Null is the scalar used for missing cells
func Null() Value {
	return Value{kind: KindScalar}
}

// Nested wraps a record
func Nested(r *Record) Value {
	return Value{kind: KindRecord, record: r}
}

// List wraps a sequence of values
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Kind returns the variant held by v
func (v Value) Kind() Kind {
	return v.kind
}

// Scalar returns the scalar payload, or nil for records and lists
func (v Value) Scalar() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Record returns the nested record if v holds one
func (v Value) Record() (*Record, bool) {
	if v.kind != KindRecord || v.record == nil {
		return nil, false
	}
	return v.record, true
}

// List returns the items if v holds a list
func (v Value) List() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// IsNull reports whether v is a null scalar
func (v Value) IsNull() bool {
	return v.kind == KindScalar && v.scalar == nil
}

// String renders v for display. Records and lists render as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		switch s := v.scalar.(type) {
		case nil:
			return ""
		case time.Time:
			return s.Format(time.RFC3339)
		default:
			return cast.ToString(s)
		}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("<%s>", v.kind)
		}
		return string(b)
	}
}

// Interface converts v into plain Go values (map[string]any, []any, scalars).
// Key order is lost.
func (v Value) Interface() any {
	switch v.kind {
	case KindRecord:
		if v.record == nil {
			return map[string]any{}
		}
		return v.record.Interface()
	case KindList:
		items := make([]any, len(v.list))
		for i, item := range v.list {
			items[i] = item.Interface()
		}
		return items
	default:
		return v.scalar
	}
}

// MarshalJSON encodes v, keeping record key order
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindRecord:
		if v.record == nil {
			return []byte("{}"), nil
		}
		return v.record.MarshalJSON()
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return json.Marshal(v.scalar)
	}
}

// Record is an ordered mapping from keys to values, in document order
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{fields: orderedmap.New[string, Value]()}
}

func (r *Record) init() {
	if r.fields == nil {
		r.fields = orderedmap.New[string, Value]()
	}
}

// Set stores a value under key. Existing keys keep their position.
func (r *Record) Set(key string, v Value) *Record {
	r.init()
	r.fields.Set(key, v)
	return r
}

// Get looks up key
func (r *Record) Get(key string) (Value, bool) {
	if r == nil || r.fields == nil {
		return Value{}, false
	}
	return r.fields.Get(key)
}

// Len returns the number of keys
func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Keys returns the keys in order
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.Len())
	r.Each(func(key string, _ Value) {
		keys = append(keys, key)
	})
	return keys
}

// Each calls fn for every key in order
func (r *Record) Each(fn func(key string, v Value)) {
	if r == nil || r.fields == nil {
		return
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Without returns a copy of r without the given keys. Values are shared, r is untouched.
func (r *Record) Without(keys ...string) *Record {
	skip := make(map[string]bool, len(keys))
	for _, k := range keys {
		skip[k] = true
	}

	out := NewRecord()
	r.Each(func(key string, v Value) {
		if !skip[key] {
			out.Set(key, v)
		}
	})
	return out
}

// Interface converts r into a plain map
func (r *Record) Interface() map[string]any {
	m := make(map[string]any, r.Len())
	r.Each(func(key string, v Value) {
		m[key] = v.Interface()
	})
	return m
}

// MarshalJSON encodes r with its key order
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil || r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}
