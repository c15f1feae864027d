package recon

import (
	"testing"
	"time"

	"github.com/blnkfinance/recon/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func day(s string) model.Value { return model.Date(date(s)) }

// table builds a table from a schema's columns and records keyed by column name.
func table(t *testing.T, schema model.Schema, records ...map[string]model.Value) *model.Table {
	t.Helper()
	tbl, err := model.NewTable(schema.Columns()...)
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, tbl.AddRecord(r))
	}
	return tbl
}

type rec = map[string]model.Value

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func texts(tbl *model.Table, col string) []string {
	out := make([]string, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		s, _ := tbl.Value(i, col).AsString()
		out = append(out, s)
	}
	return out
}

func testOptions(now string) Options {
	return DefaultOptions(date(now))
}
