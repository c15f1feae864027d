package anomaly

import (
	"testing"
	"time"

	"github.com/blnkfinance/recon/model"
	"github.com/stretchr/testify/require"
)

func day(s string) model.Value {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return model.Date(t)
}

var bankColumns = []model.Column{
	{Name: "date", Type: model.TimeColumn},
	{Name: "amt", Type: model.NumberColumn},
	{Name: "desc", Type: model.StringColumn},
}

func newTable(t *testing.T, cols []model.Column, rows ...[]model.Value) *model.Table {
	t.Helper()
	tbl, err := model.NewTable(cols...)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, tbl.AddRow(r...))
	}
	return tbl
}

func amounts(t *testing.T, values ...float64) *model.Table {
	t.Helper()
	tbl := newTable(t, []model.Column{{Name: "id", Type: model.NumberColumn}, {Name: "amount", Type: model.NumberColumn}})
	for i, v := range values {
		require.NoError(t, tbl.AddRow(model.Num(float64(i)), model.Num(v)))
	}
	return tbl
}

func column(tbl *model.Table, name string) []model.Value {
	out := make([]model.Value, tbl.Len())
	for i := range out {
		out[i] = tbl.Value(i, name)
	}
	return out
}

func floats(tbl *model.Table, name string) []float64 {
	out := make([]float64, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		f, _ := tbl.Value(i, name).AsFloat()
		out = append(out, f)
	}
	return out
}
