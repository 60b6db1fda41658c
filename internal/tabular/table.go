package tabular

// Cell is one named value in a Row
type Cell struct {
	Name  string
	Value Value
}

// Row is a flat, ordered list of cells
type Row []Cell

// Names returns the column names in order, duplicates included
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Get returns the first cell named name
func (r Row) Get(name string) (Value, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return Value{}, false
}

// HasDuplicates reports whether two cells share a name
func (r Row) HasDuplicates() bool {
	seen := make(map[string]bool, len(r))
	for _, c := range r {
		if seen[c.Name] {
			return true
		}
		seen[c.Name] = true
	}
	return false
}

// Dedupe returns r without the later cells of any repeated name
func (r Row) Dedupe() Row {
	seen := make(map[string]bool, len(r))
	out := r[:0:0]
	for _, c := range r {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out
}

// Table is an ordered set of rows aligned to a shared column list.
// Every row holds exactly one cell per column, in column order.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable outer-joins rows on column name. Columns appear in first-seen order
// and missing cells are null. A name repeated within a row is kept
// positionally: the n-th cell of that name lands in the n-th column of that
// name.
func NewTable(rows ...Row) Table {
	type slot struct {
		name string
		n    int
	}

	var columns []string
	index := make(map[slot]int)
	slots := make([][]int, len(rows))
	for r, row := range rows {
		seen := make(map[string]int, len(row))
		slots[r] = make([]int, len(row))
		for i, c := range row {
			k := slot{name: c.Name, n: seen[c.Name]}
			seen[c.Name]++
			j, ok := index[k]
			if !ok {
				j = len(columns)
				index[k] = j
				columns = append(columns, c.Name)
			}
			slots[r][i] = j
		}
	}

	aligned := make([]Row, 0, len(rows))
	for r, row := range rows {
		out := make(Row, len(columns))
		for i, name := range columns {
			out[i] = Cell{Name: name, Value: Null()}
		}
		for i, c := range row {
			out[slots[r][i]].Value = c.Value
		}
		aligned = append(aligned, out)
	}

	return Table{Columns: columns, Rows: aligned}
}

// Concat stacks tables, outer-joining their columns
func Concat(tables ...Table) Table {
	var rows []Row
	for _, t := range tables {
		rows = append(rows, t.Rows...)
	}
	return NewTable(rows...)
}

// Len returns the number of rows
func (t Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table has the named column
func (t Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

// Get returns the cell at row i in the named column
func (t Table) Get(i int, column string) (Value, bool) {
	j := t.columnIndex(column)
	if j < 0 || i < 0 || i >= len(t.Rows) {
		return Value{}, false
	}
	return t.Rows[i][j].Value, true
}

// Column returns every value of the named column
func (t Table) Column(name string) []Value {
	j := t.columnIndex(name)
	if j < 0 {
		return nil
	}
	values := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[j].Value
	}
	return values
}

// WithColumn returns a copy of t with a constant column in first position.
// An existing column of that name is replaced.
func (t Table) WithColumn(name string, v Value) Table {
	rows := make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		out := make(Row, 0, len(row)+1)
		out = append(out, Cell{Name: name, Value: v})
		for _, c := range row {
			if c.Name != name {
				out = append(out, c)
			}
		}
		rows[i] = out
	}

	columns := make([]string, 0, len(t.Columns)+1)
	columns = append(columns, name)
	for _, c := range t.Columns {
		if c != name {
			columns = append(columns, c)
		}
	}
	return Table{Columns: columns, Rows: rows}
}

// MapColumn replaces every non-null cell of the named column with fn's result.
// Repeated columns of that name are all mapped. A missing column is not an
// error. On error the table is left unchanged.
func (t Table) MapColumn(name string, fn func(Value) (Value, error)) error {
	var targets []int
	for j, c := range t.Columns {
		if c == name {
			targets = append(targets, j)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	mapped := make([][]Value, len(t.Rows))
	for i, row := range t.Rows {
		mapped[i] = make([]Value, len(targets))
		for k, j := range targets {
			v := row[j].Value
			if v.IsNull() {
				mapped[i][k] = v
				continue
			}
			out, err := fn(v)
			if err != nil {
				return err
			}
			mapped[i][k] = out
		}
	}

	for i := range t.Rows {
		for k, j := range targets {
			t.Rows[i][j].Value = mapped[i][k]
		}
	}
	return nil
}

func (t Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
