package recon

import (
	"testing"

	"github.com/blnkfinance/recon/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arEntry(id, customer, d string, amount float64, kind string) rec {
	return rec{
		"invoice_id": model.Str(id), "customer_id": model.Str(customer),
		"date": day(d), "amount": model.Num(amount), "type": model.Str(kind),
	}
}

func glEntry(id, d string, amount float64, kind string) rec {
	return rec{"invoice_id": model.Str(id), "date": day(d), "amount": model.Num(amount), "type": model.Str(kind)}
}

func sampleAR(t *testing.T) (ar, gl, allowance *model.Table) {
	ar = table(t, model.ARSchema,
		arEntry("INV-1", "C1", "2024-04-20", 100, "invoice"),
		arEntry("INV-2", "C1", "2024-03-15", 200, "invoice"),
		arEntry("INV-3", "C2", "2024-02-15", 300, "write_off"),
		arEntry("INV-4", "C3", "2023-12-01", 400, "accrued"),
	)
	gl = table(t, model.GLARSchema,
		glEntry("INV-1", "2024-04-20", 100, "invoice"),
		glEntry("INV-2", "2024-03-15", 200, "invoice"),
		glEntry("INV-3", "2024-02-15", 300, "invoice"),
		glEntry("INV-5", "2024-04-01", 50, "accrued"),
	)
	allowance = table(t, model.AllowanceSchema,
		rec{"invoice_id": model.Str("INV-9"), "amount": model.Num(50), "type": model.Str("write_off")},
		rec{"invoice_id": model.Str("INV-7"), "amount": model.Num(100), "type": model.Str("reserve")},
	)
	return ar, gl, allowance
}

func TestReconcileAR(t *testing.T) {
	ar, gl, allowance := sampleAR(t)

	res, err := ReconcileAR(ar, gl, allowance, testOptions("2024-04-30"))
	require.NoError(t, err)

	assert.Equal(t, []string{"INV-4"}, texts(res.OnlyInSubledger, "invoice_id"))
	assert.Equal(t, []string{"INV-5"}, texts(res.OnlyInGL, "invoice_id"))
	assertMoney(t, "1000", res.SubledgerTotal)
	assertMoney(t, "650", res.GLTotal)
	assertMoney(t, "350", res.BalanceDifference)
	assert.False(t, res.IsFullyReconciled)
	assert.Equal(t, 0, res.SubledgerOutliers.Len())

	assert.Contains(t, res.Message, "AR Subledger total: $1000.00\nGL AR total: $650.00\nDifference: $350.00\nStatus: Not reconciled")
	assert.Contains(t, res.Message, "- Entries only in AR Subledger: 1")
}

func TestARAging(t *testing.T) {
	ar, gl, _ := sampleAR(t)

	res, err := ReconcileAR(ar, gl, nil, testOptions("2024-04-30"))
	require.NoError(t, err)

	want := map[string]string{BucketCurrent: "100", Bucket31To60: "200", Bucket61To90: "300", BucketOver90: "400"}
	require.Len(t, res.Aging.Buckets, 4)
	for name, total := range want {
		b := res.Aging.Bucket(name)
		assertMoney(t, total, b.Total)
		assert.Equal(t, 1, b.Rows.Len(), name)
	}
	assertMoney(t, "1000", res.Aging.TotalOutstanding)
}

func TestARCustomerExposure(t *testing.T) {
	ar, gl, _ := sampleAR(t)

	res, err := ReconcileAR(ar, gl, nil, testOptions("2024-04-30"))
	require.NoError(t, err)

	require.Len(t, res.Customers.Parties, 3)
	c1 := res.Customers.Parties[0]
	assert.Equal(t, "C1", c1.ID)
	assert.Equal(t, 2, c1.Count)
	assertMoney(t, "300", c1.Total)
	assert.Equal(t, date("2024-03-15"), c1.FirstDate)
	assert.Equal(t, date("2024-04-20"), c1.LastDate)
	assert.Equal(t, "increasing", c1.Trend)
	assert.InDelta(t, 0.3, c1.Concentration, 1e-9)

	assert.Equal(t, "stable", res.Customers.Parties[1].Trend)
	assert.Len(t, res.Customers.HighConcentration, 3)
	require.Len(t, res.Customers.MultipleInvoices, 1)
	assert.Equal(t, "C1", res.Customers.MultipleInvoices[0].ID)
}

func TestARWriteOffs(t *testing.T) {
	ar, gl, allowance := sampleAR(t)

	res, err := ReconcileAR(ar, gl, allowance, testOptions("2024-04-30"))
	require.NoError(t, err)

	w := res.WriteOffs
	assert.Equal(t, []string{"INV-3"}, texts(w.WriteOffs, "invoice_id"))
	assertMoney(t, "150", w.AllowanceBalance)
	assert.InDelta(t, 0.3, w.WriteOffRatio, 1e-9)
	assert.Equal(t, []string{"INV-3"}, texts(w.UnrecordedWriteOffs, "invoice_id"))

	none, err := ReconcileAR(ar, gl, nil, testOptions("2024-04-30"))
	require.NoError(t, err)
	assert.Equal(t, 0, none.WriteOffs.WriteOffs.Len())
	assert.Equal(t, 0, none.WriteOffs.UnrecordedWriteOffs.Len())
	assert.Zero(t, none.WriteOffs.WriteOffRatio)
	assertMoney(t, "0", none.WriteOffs.AllowanceBalance)
}

func TestARWriteOffRecordedInAllowance(t *testing.T) {
	ar, _, _ := sampleAR(t)
	allowance := table(t, model.AllowanceSchema,
		rec{"invoice_id": model.Str("INV-3"), "amount": model.Num(-300), "type": model.Str("write_off")},
	)

	w := analyzeWriteOffs(ar, allowance)
	assert.Equal(t, 0, w.UnrecordedWriteOffs.Len())
	assertMoney(t, "-300", w.AllowanceBalance)
}

func TestARAccruedEntries(t *testing.T) {
	ar, gl, _ := sampleAR(t)

	res, err := ReconcileAR(ar, gl, nil, testOptions("2024-04-30"))
	require.NoError(t, err)

	a := res.Accrued
	assert.Equal(t, []string{"INV-4"}, texts(a.AccruedInSubledger, "invoice_id"))
	assert.Equal(t, []string{"INV-5"}, texts(a.AccruedInGL, "invoice_id"))
	assert.Equal(t, 1, a.UnmatchedSubledger.Len())
	assert.Equal(t, 1, a.UnmatchedGL.Len())
	assertMoney(t, "350", a.Impact)
}

func TestReconcileARFullyReconciled(t *testing.T) {
	ar := table(t, model.ARSchema, arEntry("INV-1", "C1", "2024-04-20", 100.10, "invoice"), arEntry("INV-2", "C2", "2024-04-21", 0.20, "invoice"))
	gl := table(t, model.GLARSchema, glEntry("INV-1", "2024-04-20", 100.10, "invoice"), glEntry("INV-2", "2024-04-21", 0.20, "invoice"))

	res, err := ReconcileAR(ar, gl, nil, testOptions("2024-04-30"))
	require.NoError(t, err)
	assert.True(t, res.IsFullyReconciled)
	assert.Equal(t, 0, res.OnlyInSubledger.Len())
	assert.Contains(t, res.Message, "Status: Fully reconciled")
	assert.NotContains(t, res.Message, "Entries only in")
}
