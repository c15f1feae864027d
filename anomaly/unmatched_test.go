package anomaly

import (
	"testing"

	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUnmatched(t *testing.T) {
	a := newTable(t, bankColumns,
		[]model.Value{day("2024-02-15"), model.Num(1000), model.Str("Deposit")},
		[]model.Value{day("2024-02-20"), model.Num(-500), model.Str("Check#123")},
	)
	b := newTable(t, bankColumns,
		[]model.Value{day("2024-02-15"), model.Num(1000), model.Str("Deposit")},
		[]model.Value{day("2024-02-25"), model.Num(750), model.Str("ACH")},
	)

	onlyA, onlyB, err := FindUnmatched(a, b, []string{"date", "amt", "desc"})
	require.NoError(t, err)

	require.Equal(t, 1, onlyA.Len())
	assert.Equal(t, []model.Value{day("2024-02-20"), model.Num(-500), model.Str("Check#123")}, onlyA.Row(0))
	require.Equal(t, 1, onlyB.Len())
	assert.Equal(t, []model.Value{day("2024-02-25"), model.Num(750), model.Str("ACH")}, onlyB.Row(0))

	assert.Equal(t, a.ColumnNames(), onlyA.ColumnNames())
	assert.Equal(t, 2, a.Len(), "input must not be modified")
}

func TestFindUnmatchedDuplicatesDoNotHideMatches(t *testing.T) {
	cols := []model.Column{{Name: "k", Type: model.NumberColumn}}
	a := newTable(t, cols, []model.Value{model.Num(1)}, []model.Value{model.Num(1)}, []model.Value{model.Num(2)})
	b := newTable(t, cols, []model.Value{model.Num(1)})

	onlyA, onlyB, err := FindUnmatched(a, b, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, []model.Value{model.Num(2)}, column(onlyA, "k"))
	assert.Equal(t, 0, onlyB.Len())
}

func TestFindUnmatchedIsExact(t *testing.T) {
	cols := []model.Column{{Name: "amount", Type: model.NumberColumn}}
	a := newTable(t, cols, []model.Value{model.Num(100.0)}, []model.Value{model.Num(0)})
	b := newTable(t, cols, []model.Value{model.Num(100.0000001)}, []model.Value{model.Num(-0.0)})

	onlyA, onlyB, err := FindUnmatched(a, b, []string{"amount"})
	require.NoError(t, err)
	assert.Equal(t, []float64{100}, floats(onlyA, "amount"))
	assert.Equal(t, []float64{100.0000001}, floats(onlyB, "amount"))
}

func TestFindUnmatchedNullKeysMatch(t *testing.T) {
	cols := []model.Column{{Name: "check", Type: model.StringColumn}, {Name: "amount", Type: model.NumberColumn}}
	a := newTable(t, cols, []model.Value{model.Null(), model.Num(5)})
	b := newTable(t, cols, []model.Value{model.Null(), model.Num(5)}, []model.Value{model.Str(""), model.Num(5)})

	onlyA, onlyB, err := FindUnmatched(a, b, []string{"check", "amount"})
	require.NoError(t, err)
	assert.Equal(t, 0, onlyA.Len())
	assert.Equal(t, 1, onlyB.Len())
	assert.Equal(t, model.Str(""), onlyB.Value(0, "check"))
}

func TestFindUnmatchedEmptyInput(t *testing.T) {
	a := newTable(t, bankColumns)
	b := newTable(t, bankColumns, []model.Value{day("2024-02-15"), model.Num(1000), model.Str("Deposit")})

	onlyA, onlyB, err := FindUnmatched(a, b, []string{"date", "amt", "desc"})
	require.NoError(t, err)
	assert.Equal(t, 0, onlyA.Len())
	assert.Equal(t, 0, onlyB.Len())
	assert.Equal(t, b.ColumnNames(), onlyB.ColumnNames())

	onlyA, onlyB, err = FindUnmatched(b, a, []string{"no_such_column"})
	require.NoError(t, err)
	assert.Equal(t, 0, onlyA.Len()+onlyB.Len())
}

func TestFindUnmatchedInvalidKeys(t *testing.T) {
	a := newTable(t, bankColumns, []model.Value{day("2024-02-15"), model.Num(1000), model.Str("Deposit")})
	b := newTable(t, []model.Column{
		{Name: "date", Type: model.TimeColumn},
		{Name: "amt", Type: model.StringColumn},
	}, []model.Value{day("2024-02-15"), model.Str("1000")})

	tests := []struct {
		name   string
		keys   []string
		code   reconerr.ErrorCode
		column string
	}{
		{name: "empty key list", keys: nil, code: reconerr.ErrInvalidKey},
		{name: "missing on right", keys: []string{"date", "desc"}, code: reconerr.ErrInvalidKey, column: "desc"},
		{name: "missing everywhere", keys: []string{"nope"}, code: reconerr.ErrInvalidKey, column: "nope"},
		{name: "type differs", keys: []string{"date", "amt"}, code: reconerr.ErrTypeMismatch, column: "amt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onlyA, onlyB, err := FindUnmatched(a, b, tt.keys)
			require.Error(t, err)
			assert.Nil(t, onlyA)
			assert.Nil(t, onlyB)
			assert.ErrorIs(t, err, &reconerr.Error{Code: tt.code, Column: tt.column})
			if tt.column != "" {
				assert.Contains(t, err.Error(), tt.column)
			}
		})
	}
}
