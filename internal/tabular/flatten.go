package tabular

import "fmt"

// CollisionPolicy decides what happens when flattening produces two columns
// with the same name
type CollisionPolicy uint8

const (
	// KeepFirst keeps the first column with a given name and drops the rest
	KeepFirst CollisionPolicy = iota
	// KeepAll keeps every column, so a Row may carry duplicate names
	KeepAll
)

func (p CollisionPolicy) String() string {
	switch p {
	case KeepFirst:
		return "keep-first"
	case KeepAll:
		return "keep-all"
	default:
		return fmt.Sprintf("CollisionPolicy(%d)", uint8(p))
	}
}

// Options configures Flatten. The zero value flattens nested records and
// keeps the first of any duplicate columns.
type Options struct {
	// KeepNested emits nested records as single cells instead of expanding them
	KeepNested bool

	// Collisions selects the duplicate column policy
	Collisions CollisionPolicy
}

// ContractViolation is returned when an operation receives a value of the
// wrong kind
type ContractViolation struct {
	Op   string
	Want Kind
	Got  Kind
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Op, e.Want, e.Got)
}

// Flatten turns a record value into one Row. Any other kind of value is a
// *ContractViolation.
func Flatten(v Value, opts Options) (Row, error) {
	r, ok := v.Record()
	if !ok {
		return nil, &ContractViolation{Op: "flatten", Want: KindRecord, Got: v.Kind()}
	}
	return FlattenRecord(r, opts), nil
}

// FlattenRecord turns r into one Row.
//
// The record's own non-record fields come first, in key order, followed by the
// flattened columns of each nested record in key order. Lists are never
// expanded; they land in a single cell.
func FlattenRecord(r *Record, opts Options) Row {
	row := make(Row, 0, r.Len())
	var groups []Row

	r.Each(func(key string, v Value) {
		if nested, ok := v.Record(); ok && !opts.KeepNested {
			groups = append(groups, FlattenRecord(nested, opts))
			return
		}
		row = append(row, Cell{Name: key, Value: v})
	})

	for _, g := range groups {
		row = append(row, g...)
	}

	if opts.Collisions == KeepFirst {
		row = row.Dedupe()
	}
	return row
}
