package recon

import (
	"testing"

	"github.com/blnkfinance/recon/anomaly"
	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bankTxn(d string, amount float64, desc string, check, kind model.Value) rec {
	return rec{
		"bank_account_id": model.Num(1), "client_id": model.Num(10),
		"txn_date": day(d), "txn_amount": model.Num(amount), "txn_description": model.Str(desc),
		"check_num": check, "txn_type": kind,
	}
}

func stmtLine(d string, amount float64, desc string) rec {
	return rec{
		"bank_account_id": model.Num(1), "client_id": model.Num(10),
		"stmt_start_date": day("2024-02-01"), "stmt_end_date": day("2024-02-29"),
		"txn_date": day(d), "txn_amount": model.Num(amount), "txn_description": model.Str(desc),
	}
}

func sampleBank(t *testing.T) (gl, stmt *model.Table) {
	stmt = table(t, model.BankStatementSchema,
		stmtLine("2024-02-15", 1000, "Deposit"),
		stmtLine("2024-02-20", -500, "Check #123"),
		stmtLine("2024-02-25", -10, "Service Fee"),
	)
	gl = table(t, model.BankTransactionSchema,
		bankTxn("2024-02-15", 1000, "Deposit", model.Null(), model.Str("deposit")),
		bankTxn("2024-02-20", -500, "Check #123", model.Str("123"), model.Str("check")),
		bankTxn("2024-02-25", -750, "Check #456", model.Str("456"), model.Str("check")),
	)
	return gl, stmt
}

func TestReconcileBank(t *testing.T) {
	gl, stmt := sampleBank(t)

	res, err := ReconcileBank(gl, stmt, testOptions("2024-04-01"))
	require.NoError(t, err)

	b := res.Balances
	assertMoney(t, "490", b.BankBalance)
	assertMoney(t, "-250", b.GLBalance)
	assertMoney(t, "-740", b.BalanceDifference)
	assertMoney(t, "-750", b.OutstandingTotal)
	assertMoney(t, "500", b.AdjustedBalance)
	assert.False(t, b.IsReconciled)

	assert.Equal(t, []string{"456"}, texts(b.Outstanding.Checks, "check_num"))
	assert.Equal(t, 0, b.Outstanding.ACHInTransit.Len())
	assert.Equal(t, 0, b.Outstanding.DepositsInTransit.Len())
	assert.Equal(t, 0, b.Outstanding.ServiceFees.Len(), "fee shares its date with a GL entry")

	assert.Equal(t, []string{"Check #456"}, texts(res.GLNotInBank, "txn_description"))
	assert.Equal(t, []string{"Service Fee"}, texts(res.BankNotInGL, "txn_description"))
	assert.Equal(t, 0, res.GLDuplicates.Len())
	assert.Equal(t, 0, res.BankDuplicates.Len())

	assert.Equal(t, 2, res.Dates.SameDateAndAmount.Len())
	assert.Equal(t, 3, res.Dates.OldTransactions.Len())
	assert.Equal(t, 2, res.Patterns.RoundAmounts.Len())

	assert.Contains(t, res.Message, "=== Bank Reconciliation ===\nBank Statement Balance: $490.00\n")
	assert.Contains(t, res.Message, "Adjusted GL Balance: $500.00\nStatus: Not Reconciled\n")
	assert.Contains(t, res.Message, "- Outstanding Checks: $-750.00\n")
	assert.Contains(t, res.Message, "- Unmatched Bank Transactions: 1\n")
}

func TestReconcileBankReconciled(t *testing.T) {
	stmt := table(t, model.BankStatementSchema,
		stmtLine("2024-02-15", 1000, "Deposit"),
		stmtLine("2024-02-20", -500, "Check #123"),
	)
	gl := table(t, model.BankTransactionSchema,
		bankTxn("2024-02-15", 1000, "Deposit", model.Null(), model.Str("deposit")),
		bankTxn("2024-02-20", -500, "Check #123", model.Str("123"), model.Str("check")),
		bankTxn("2024-02-27", -300, "Check #789", model.Str("789"), model.Str("check")),
	)

	res, err := ReconcileBank(gl, stmt, testOptions("2024-03-01"))
	require.NoError(t, err)
	assertMoney(t, "-300", res.Balances.OutstandingTotal)
	assertMoney(t, "500", res.Balances.AdjustedBalance)
	assert.True(t, res.Balances.IsReconciled)
	assert.Contains(t, res.Message, "Status: Reconciled\n")
}

func TestOutstandingItemsInTransitAndFees(t *testing.T) {
	stmt := table(t, model.BankStatementSchema,
		stmtLine("2024-02-15", 1000, "Deposit"),
		stmtLine("2024-02-28", -12.5, "Monthly FEE"),
	)
	gl := table(t, model.BankTransactionSchema,
		bankTxn("2024-02-15", 1000, "Deposit", model.Null(), model.Str("deposit")),
		bankTxn("2024-02-27", 250, "Customer ACH", model.Null(), model.Str("ach")),
		bankTxn("2024-02-26", 400, "Branch deposit", model.Null(), model.Str("deposit")),
	)

	items := identifyOutstandingItems(gl, stmt, model.DefaultMatchKeys().Bank.Match)
	assert.Equal(t, []string{"Customer ACH"}, texts(items.ACHInTransit, "txn_description"))
	assert.Equal(t, []string{"Branch deposit"}, texts(items.DepositsInTransit, "txn_description"))
	assert.Equal(t, []string{"Monthly FEE"}, texts(items.ServiceFees, "txn_description"))
	assert.Equal(t, 0, items.Checks.Len())
}

func TestReconcileBankEmptyStatement(t *testing.T) {
	gl, _ := sampleBank(t)
	stmt := table(t, model.BankStatementSchema)

	res, err := ReconcileBank(gl, stmt, testOptions("2024-03-01"))
	require.NoError(t, err)

	assert.Equal(t, []string{"123", "456"}, texts(res.Balances.Outstanding.Checks, "check_num"))
	assert.Equal(t, 0, res.GLNotInBank.Len(), "unmatched rows are empty when one side is empty")
	assert.Equal(t, 0, res.Dates.SameDateAndAmount.Len())
	assert.Equal(t, 0, res.Dates.OldTransactions.Len())
	assertMoney(t, "0", res.Balances.BankBalance)
}

func TestTransactionPatterns(t *testing.T) {
	gl := table(t, model.BankTransactionSchema,
		bankTxn("2024-02-15", 1000, "Deposit", model.Null(), model.Null()),
		bankTxn("2024-02-15", 1000, "Deposit", model.Null(), model.Null()),
		bankTxn("2024-02-20", 500, "Transfer", model.Null(), model.Null()),
	)

	patterns := analyzeTransactionPatterns(gl)
	assert.Equal(t, 2, patterns.SameDaySameAmount.Len())
	assert.Equal(t, 3, patterns.RoundAmounts.Len())

	empty := analyzeTransactionPatterns(gl.Empty())
	assert.Equal(t, 0, empty.SameDaySameAmount.Len())
	assert.Equal(t, 0, empty.RoundAmounts.Len())
}

func TestReconcileBankOutliers(t *testing.T) {
	gl, stmt := sampleBank(t)
	opts := testOptions("2024-03-01")
	opts.Outliers = anomaly.ZScoreDetector(1.0)

	res, err := ReconcileBank(gl, stmt, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"Deposit"}, texts(res.GLOutliers, "txn_description"))
	assert.Equal(t, []string{"Deposit"}, texts(res.BankOutliers, "txn_description"))
}

func TestReconcileBankMissingColumn(t *testing.T) {
	gl, _ := sampleBank(t)
	stmt := table(t, model.Schema{{Name: "txn_date", Type: model.TimeColumn}, {Name: "txn_amount", Type: model.NumberColumn}})

	_, err := ReconcileBank(gl, stmt, testOptions("2024-03-01"))
	require.Error(t, err)
	assert.True(t, reconerr.Is(err, reconerr.ErrInvalidColumn))
	assert.Equal(t, 2, reconerr.ExitCode(err))
}
