package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/blnkfinance/recon/reconerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(
		Column{Name: "id", Type: StringColumn},
		Column{Name: "amount", Type: NumberColumn},
		Column{Name: "date", Type: TimeColumn},
	)
	require.NoError(t, err)
	day := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, tbl.AddRow(Str("a"), Num(10.10), Date(day)))
	require.NoError(t, tbl.AddRow(Str("b"), Num(20.20), Date(day.AddDate(0, 0, 1))))
	require.NoError(t, tbl.AddRow(Str("a"), Null(), Date(day)))
	return tbl
}

func TestNewTableRejectsDuplicateColumns(t *testing.T) {
	_, err := NewTable(Column{Name: "id"}, Column{Name: "id"})
	require.Error(t, err)
	assert.True(t, reconerr.Is(err, reconerr.ErrInvalidColumn))
}

func TestAddRowValidatesTypes(t *testing.T) {
	tbl := sampleTable(t)

	err := tbl.AddRow(Str("c"), Str("not a number"), Null())
	require.Error(t, err)
	assert.ErrorIs(t, err, &reconerr.Error{Code: reconerr.ErrTypeMismatch, Column: "amount"})

	err = tbl.AddRow(Str("c"))
	require.Error(t, err)
	assert.Equal(t, 3, tbl.Len())
}

func TestAddRecordFillsNulls(t *testing.T) {
	tbl := sampleTable(t)
	require.NoError(t, tbl.AddRecord(map[string]Value{"id": Str("z")}))
	assert.True(t, tbl.Value(3, "amount").IsNull())

	err := tbl.AddRecord(map[string]Value{"unknown": Str("z")})
	assert.True(t, reconerr.Is(err, reconerr.ErrInvalidColumn))
}

func TestFilterDoesNotMutateSource(t *testing.T) {
	tbl := sampleTable(t)
	onlyA := tbl.Where("id", func(v Value) bool { return v.Equal(Str("a")) })

	assert.Equal(t, 2, onlyA.Len())
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, tbl.ColumnNames(), onlyA.ColumnNames())

	require.NoError(t, onlyA.AddRow(Str("q"), Num(1), Null()))
	assert.Equal(t, 3, tbl.Len())
}

func TestSumSkipsNulls(t *testing.T) {
	tbl := sampleTable(t)
	assert.Equal(t, "30.3", tbl.Sum("amount").String())
	assert.True(t, tbl.Sum("missing").IsZero())
	assert.True(t, tbl.Sum("id").IsZero())
}

func TestGroupByKeepsFirstAppearanceOrder(t *testing.T) {
	tbl := sampleTable(t)
	groups := tbl.GroupBy("id")
	require.Len(t, groups, 2)
	assert.Equal(t, []int{0, 2}, groups[0].Rows)
	assert.Equal(t, []int{1}, groups[1].Rows)
	assert.True(t, groups[0].Key[0].Equal(Str("a")))
}

func TestSortedByIsStable(t *testing.T) {
	tbl := sampleTable(t)
	sorted := tbl.SortedBy(func(a, b Row) bool {
		ta, _ := a.Time("date")
		tb, _ := b.Time("date")
		return ta.After(tb)
	})
	ids := []string{}
	for i := 0; i < sorted.Len(); i++ {
		id, _ := sorted.RowAt(i).Text("id")
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"b", "a", "a"}, ids)
	assert.True(t, sorted.Value(2, "amount").IsNull())
}

func TestWithColumn(t *testing.T) {
	tbl := sampleTable(t)
	doubled, err := tbl.WithColumn(Column{Name: "double", Type: NumberColumn}, func(r Row) Value {
		f, ok := r.Float("amount")
		if !ok {
			return Null()
		}
		return Num(f * 2)
	})
	require.NoError(t, err)
	assert.Equal(t, "60.6", doubled.Sum("double").String())
	assert.False(t, tbl.HasColumn("double"))

	_, err = tbl.WithColumn(Column{Name: "amount", Type: NumberColumn}, func(Row) Value { return Null() })
	assert.Error(t, err)
}

func TestValueEquality(t *testing.T) {
	day := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	assert.True(t, Num(0).Equal(Num(math.Copysign(0, -1))))
	assert.False(t, Str("1").Equal(Num(1)))
	assert.True(t, Null().Equal(Null()))
	assert.True(t, Date(day).Equal(Date(day.In(time.FixedZone("x", 3600)))))
	assert.Equal(t, TupleKey(Num(0)), TupleKey(Num(math.Copysign(0, -1))))
	assert.NotEqual(t, TupleKey(Str("a"), Str("bc")), TupleKey(Str("ab"), Str("c")))
	assert.NotEqual(t, TupleKey(Str("1")), TupleKey(Num(1)))
}

func TestTableJSON(t *testing.T) {
	tbl := sampleTable(t)
	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"columns":[{"name":"id","type":"string"},{"name":"amount","type":"number"},{"name":"date","type":"time"}],
		"rows":[["a",10.1,"2024-02-15T00:00:00Z"],["b",20.2,"2024-02-16T00:00:00Z"],["a",null,"2024-02-15T00:00:00Z"]]
	}`, string(data))
}
