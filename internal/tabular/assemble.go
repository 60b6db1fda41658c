package tabular

import "fmt"

// Envelope separates a response record into the entities listed under one
// field and the remaining metadata
type Envelope struct {
	Entities []*Record
	Meta     *Record
}

// Split pulls the list stored under field out of r.
//
// A single record under field is treated as a one-element list and a missing
// field as an empty one. r is not modified; Meta is a copy without field.
func Split(r *Record, field string) (Envelope, error) {
	env := Envelope{Meta: r.Without(field)}

	v, ok := r.Get(field)
	if !ok || v.IsNull() {
		return env, nil
	}

	switch v.Kind() {
	case KindRecord:
		entity, _ := v.Record()
		env.Entities = []*Record{entity}
	case KindList:
		items, _ := v.List()
		env.Entities = make([]*Record, 0, len(items))
		for i, item := range items {
			entity, ok := item.Record()
			if !ok {
				return Envelope{}, &ContractViolation{
					Op:   fmt.Sprintf("split %s[%d]", field, i),
					Want: KindRecord,
					Got:  item.Kind(),
				}
			}
			env.Entities = append(env.Entities, entity)
		}
	default:
		return Envelope{}, &ContractViolation{Op: "split " + field, Want: KindList, Got: v.Kind()}
	}

	return env, nil
}

// Assemble flattens every entity into one row of the entity table and the
// metadata into the single row of the info table
func Assemble(env Envelope, opts Options) (entities Table, info Table) {
	rows := make([]Row, 0, len(env.Entities))
	for _, e := range env.Entities {
		rows = append(rows, FlattenRecord(e, opts))
	}

	entities = NewTable(rows...)
	info = NewTable(FlattenRecord(env.Meta, opts))
	return entities, info
}

// SplitAndAssemble runs Split then Assemble with the same field
func SplitAndAssemble(r *Record, field string, opts Options) (entities Table, info Table, err error) {
	env, err := Split(r, field)
	if err != nil {
		return Table{}, Table{}, err
	}
	entities, info = Assemble(env, opts)
	return entities, info, nil
}
