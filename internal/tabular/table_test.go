package tabular

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableOuterJoin(t *testing.T) {
	rows := []Row{
		{{Name: "a", Value: Scalar(int64(1))}, {Name: "b", Value: Scalar("x")}},
		{{Name: "b", Value: Scalar("y")}, {Name: "c", Value: Scalar(true)}},
	}

	table := NewTable(rows...)
	assert.Equal(t, []string{"a", "b", "c"}, table.Columns)
	require.Equal(t, 2, table.Len())

	v, ok := table.Get(1, "a")
	require.True(t, ok)
	assert.True(t, v.IsNull())

	v, _ = table.Get(1, "b")
	assert.Equal(t, "y", v.Scalar())

	for _, row := range table.Rows {
		assert.Equal(t, table.Columns, row.Names())
	}
}

func TestNewTableRepeatedNames(t *testing.T) {
	rows := []Row{
		{{Name: "id", Value: Scalar("outer")}, {Name: "id", Value: Scalar("inner")}},
		{{Name: "id", Value: Scalar("only")}, {Name: "x", Value: Scalar(int64(1))}},
	}

	table := NewTable(rows...)
	assert.Equal(t, []string{"id", "id", "x"}, table.Columns)
	require.Equal(t, 2, table.Len())

	assert.Equal(t, "outer", table.Rows[0][0].Value.Scalar())
	assert.Equal(t, "inner", table.Rows[0][1].Value.Scalar())
	assert.True(t, table.Rows[0][2].Value.IsNull())

	assert.Equal(t, "only", table.Rows[1][0].Value.Scalar())
	assert.True(t, table.Rows[1][1].Value.IsNull())

	v, _ := table.Get(0, "id")
	assert.Equal(t, "outer", v.Scalar())
}

func TestRowDedupe(t *testing.T) {
	row := Row{
		{Name: "id", Value: Scalar("outer")},
		{Name: "v", Value: Scalar(int64(1))},
		{Name: "id", Value: Scalar("inner")},
	}

	out := row.Dedupe()
	assert.Equal(t, []string{"id", "v"}, out.Names())
	assert.Equal(t, "outer", out[0].Value.Scalar())
	assert.Len(t, row, 3)
}

func TestMapColumnRepeated(t *testing.T) {
	table := NewTable(Row{
		{Name: "n", Value: Scalar(int64(1))},
		{Name: "n", Value: Scalar(int64(2))},
	})

	err := table.MapColumn("n", func(v Value) (Value, error) {
		return Scalar(v.Scalar().(int64) * 10), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), table.Rows[0][0].Value.Scalar())
	assert.Equal(t, int64(20), table.Rows[0][1].Value.Scalar())
}

func TestConcat(t *testing.T) {
	first := NewTable(Row{{Name: "a", Value: Scalar(int64(1))}})
	second := NewTable(Row{{Name: "b", Value: Scalar(int64(2))}}, Row{{Name: "a", Value: Scalar(int64(3))}})

	table := Concat(first, second, Table{})
	assert.Equal(t, []string{"a", "b"}, table.Columns)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []any{int64(1), nil, int64(3)}, scalars(table.Column("a")))
}

func TestWithColumn(t *testing.T) {
	table := NewTable(
		Row{{Name: "symbol", Value: Scalar("AAPL")}, {Name: "accountId", Value: Scalar("old")}},
		Row{{Name: "symbol", Value: Scalar("VTI")}},
	)

	tagged := table.WithColumn("accountId", Scalar("840104290"))
	assert.Equal(t, []string{"accountId", "symbol"}, tagged.Columns)
	assert.Equal(t, []any{"840104290", "840104290"}, scalars(tagged.Column("accountId")))

	// the source table is untouched
	assert.Equal(t, []any{"old", nil}, scalars(table.Column("accountId")))
}

func TestMapColumn(t *testing.T) {
	table := NewTable(
		Row{{Name: "n", Value: Scalar(int64(1))}},
		Row{{Name: "m", Value: Scalar(int64(5))}},
		Row{{Name: "n", Value: Scalar(int64(2))}},
	)

	err := table.MapColumn("n", func(v Value) (Value, error) {
		return Scalar(v.Scalar().(int64) * 10), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(10), nil, int64(20)}, scalars(table.Column("n")))

	require.NoError(t, table.MapColumn("missing", func(v Value) (Value, error) {
		return Value{}, errors.New("not called")
	}))

	boom := errors.New("boom")
	err = table.MapColumn("n", func(v Value) (Value, error) {
		if v.Scalar() == int64(20) {
			return Value{}, boom
		}
		return Scalar(int64(0)), nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []any{int64(10), nil, int64(20)}, scalars(table.Column("n")))
}

func scalars(values []Value) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v.Scalar()
	}
	return out
}
