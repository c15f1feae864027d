package recon

import (
	"testing"

	"github.com/blnkfinance/recon/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asset(id string, amount float64) rec {
	return rec{"asset_id": model.Str(id), "amount": model.Num(amount)}
}

func glAsset(id, d string, amount float64, kind string) rec {
	return rec{"asset_id": model.Str(id), "date": day(d), "amount": model.Num(amount), "transaction_type": model.Str(kind)}
}

func depreciationEntry(d string, amount float64) rec {
	return rec{"date": day(d), "amount": model.Num(amount)}
}

func sampleFixedAssets(t *testing.T) (register, gl, depreciation *model.Table) {
	register = table(t, model.FixedAssetSchema, asset("A1", 1000), asset("A2", 500), asset("A3", 200))
	gl = table(t, model.GLFixedAssetSchema,
		glAsset("A1", "2023-06-01", 1000, "purchase"),
		glAsset("A2", "2024-02-10", 500, "purchase"),
		glAsset("A3", "2024-03-15", 200, "purchase"),
		glAsset("A4", "2024-02-20", -300, "disposal"),
		glAsset("A5", "2024-04-15", 50, "purchase"),
	)
	depreciation = table(t, model.DepreciationSchema,
		depreciationEntry("2023-12-31", 100),
		depreciationEntry("2024-01-31", 20),
		depreciationEntry("2024-02-29", 20),
		depreciationEntry("2024-04-30", 20),
	)
	return register, gl, depreciation
}

func quarterOptions() Options {
	opts := testOptions("2024-04-30")
	opts.PeriodStart, opts.PeriodEnd = date("2024-01-01"), date("2024-03-31")
	return opts
}

func TestReconcileFixedAssets(t *testing.T) {
	register, gl, depreciation := sampleFixedAssets(t)

	res, err := ReconcileFixedAssets(register, gl, depreciation, quarterOptions())
	require.NoError(t, err)

	assertMoney(t, "1000", res.BeginningBalance)
	assertMoney(t, "1400", res.EndingBalance)
	assertMoney(t, "700", res.Movement(MovementAdditions).Total)
	assert.Equal(t, []string{"A2", "A3"}, texts(res.Movement(MovementAdditions).Rows, "asset_id"))
	assertMoney(t, "-300", res.Movement(MovementDisposals).Total)
	assertMoney(t, "0", res.Movement(MovementRetirements).Total)
	assertMoney(t, "0", res.Movement(MovementSales).Total)

	assert.Equal(t, 0, res.OnlyInSubledger.Len())
	assert.Equal(t, []string{"A4", "A5"}, texts(res.OnlyInGL, "asset_id"))
	assertMoney(t, "1700", res.SubledgerTotal)
	assertMoney(t, "1400", res.GLTotal)
	assertMoney(t, "300", res.BalanceDifference)
	assert.False(t, res.IsFullyReconciled)

	d := res.Depreciation
	assertMoney(t, "40", d.CurrentDepreciation)
	assertMoney(t, "140", d.AccumulatedDepreciation)
	assertMoney(t, "1560", d.NetBookValue)
	assert.Equal(t, 2, d.Entries.Len())

	for _, line := range []string{
		"Beginning Balance: $1000.00\n",
		"Additions: $700.00\n",
		"Disposals: $-300.00\n",
		"Ending Balance: $1400.00\n",
		"Net Book Value: $1560.00\n",
		"Difference: $300.00\n",
	} {
		assert.Contains(t, res.Message, line)
	}
}

func TestReconcileFixedAssetsWithoutPeriod(t *testing.T) {
	register, gl, depreciation := sampleFixedAssets(t)

	res, err := ReconcileFixedAssets(register, gl, depreciation, testOptions("2024-04-30"))
	require.NoError(t, err)

	assertMoney(t, "0", res.BeginningBalance)
	assertMoney(t, "1450", res.EndingBalance)
	assertMoney(t, "1750", res.Movement(MovementAdditions).Total)
	assertMoney(t, "160", res.Depreciation.AccumulatedDepreciation)
	assertMoney(t, "160", res.Depreciation.CurrentDepreciation)
}

func TestReconcileFixedAssetsWithoutDepreciation(t *testing.T) {
	register, gl, _ := sampleFixedAssets(t)

	res, err := ReconcileFixedAssets(register, gl, nil, quarterOptions())
	require.NoError(t, err)
	assertMoney(t, "0", res.Depreciation.AccumulatedDepreciation)
	assertMoney(t, "1700", res.Depreciation.NetBookValue)
	assert.Equal(t, 0, res.Depreciation.Entries.Len())
}

func TestReconcileFixedAssetsReconciledAtPeriodEnd(t *testing.T) {
	register := table(t, model.FixedAssetSchema, asset("A1", 1000), asset("A2", 500))
	gl := table(t, model.GLFixedAssetSchema,
		glAsset("A1", "2023-06-01", 1000, "purchase"),
		glAsset("A2", "2024-03-31", 500, "purchase"),
		glAsset("A3", "2024-04-01", 900, "purchase"),
	)

	res, err := ReconcileFixedAssets(register, gl, nil, quarterOptions())
	require.NoError(t, err)
	assert.True(t, res.IsFullyReconciled, "entries after the period end are outside the ending balance")
	assert.Contains(t, res.Message, "Status: Fully reconciled")
}
