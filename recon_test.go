package recon

import (
	"context"
	"testing"

	"github.com/blnkfinance/recon/config"
	"github.com/blnkfinance/recon/datasource/mocks"
	"github.com/blnkfinance/recon/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRecon(t *testing.T, cnf *config.Configuration) (*Recon, *mocks.MockDataSource) {
	t.Helper()
	config.MockConfig(cnf)
	ds := new(mocks.MockDataSource)
	r, err := NewRecon(ds)
	require.NoError(t, err)
	return r, ds
}

func mockAllDomains(t *testing.T, ds *mocks.MockDataSource) {
	bankGL, stmt := sampleBank(t)
	ds.On("LoadBank", mock.Anything, model.BankQuery{AccountID: 7, ClientID: 9}).
		Return(&model.BankData{Transactions: bankGL, Statements: stmt}, nil)

	ceGL, broker, investments := sampleCashEquivalents(t)
	ds.On("LoadCashEquivalents", mock.Anything).
		Return(&model.CashEquivalentsData{GL: ceGL, Broker: broker, Investments: investments}, nil)

	invGL, counts, market, receipts := sampleInventory(t)
	ds.On("LoadInventory", mock.Anything).
		Return(&model.InventoryData{GL: invGL, Counts: counts, MarketValues: market, APTransactions: receipts}, nil)

	ar, arGL, allowance := sampleAR(t)
	ds.On("LoadAR", mock.Anything).Return(&model.ARData{Subledger: ar, GL: arGL, Allowance: allowance}, nil)

	ap, apGL := sampleAP(t)
	ds.On("LoadAP", mock.Anything).Return(&model.APData{Subledger: ap, GL: apGL}, nil)

	register, faGL, depreciation := sampleFixedAssets(t)
	ds.On("LoadFixedAssets", mock.Anything).
		Return(&model.FixedAssetsData{Register: register, GL: faGL, Depreciation: depreciation}, nil)

	ds.On("LoadPrepaid", mock.Anything).Return(&model.ScheduleData{
		Schedule: table(t, model.PrepaidSchema, prepaid("P1", 1200)),
		GL:       table(t, model.PrepaidSchema, prepaid("P1", 1200)),
	}, nil)
	ds.On("LoadAccrued", mock.Anything).Return(&model.ScheduleData{
		Schedule: table(t, model.AccruedSchema, accrual("A1", 500)),
		GL:       table(t, model.AccruedSchema, accrual("A1", 400)),
	}, nil)
}

func TestRunAll(t *testing.T) {
	r, ds := newTestRecon(t, &config.Configuration{Bank: config.BankConfig{AccountID: 7, ClientID: 9}})
	mockAllDomains(t, ds)

	now := date("2024-06-30")
	report, err := r.RunAll(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, report.Status)
	assert.Contains(t, report.RunID, "recon_")
	assert.Equal(t, now, report.AsOf)
	require.NotNil(t, report.CompletedAt)
	assert.False(t, report.CompletedAt.Before(report.StartedAt))
	assert.Empty(t, report.Error)

	assert.NotNil(t, report.Bank)
	assert.NotNil(t, report.CashEquivalents)
	assert.NotNil(t, report.Inventory)
	assert.NotNil(t, report.AR)
	assert.NotNil(t, report.AP)
	assert.NotNil(t, report.FixedAssets)
	require.NotNil(t, report.Prepaid)
	assert.True(t, report.Prepaid.IsFullyReconciled)
	require.NotNil(t, report.Accrued)
	assertMoney(t, "100", report.Accrued.BalanceDifference)
	ds.AssertExpectations(t)
}

func TestRunAllStopsAtFirstFailure(t *testing.T) {
	r, ds := newTestRecon(t, &config.Configuration{Bank: config.BankConfig{AccountID: 7, ClientID: 9}})
	bankGL, stmt := sampleBank(t)
	ds.On("LoadBank", mock.Anything, mock.Anything).Return(&model.BankData{Transactions: bankGL, Statements: stmt}, nil)
	ceGL, broker, investments := sampleCashEquivalents(t)
	ds.On("LoadCashEquivalents", mock.Anything).
		Return(&model.CashEquivalentsData{GL: ceGL, Broker: broker, Investments: investments}, nil)
	ds.On("LoadInventory", mock.Anything).Return(nil, errors.New("inventory file unreadable"))

	report, err := r.RunAll(context.Background(), date("2024-06-30"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory reconciliation")
	assert.Contains(t, err.Error(), "inventory file unreadable")

	assert.Equal(t, model.StatusFailed, report.Status)
	assert.Equal(t, err.Error(), report.Error)
	assert.NotNil(t, report.CompletedAt)
	assert.NotNil(t, report.Bank)
	assert.NotNil(t, report.CashEquivalents)
	assert.Nil(t, report.Inventory)
	assert.Nil(t, report.AR)
	ds.AssertNotCalled(t, "LoadAR", mock.Anything)
	ds.AssertNotCalled(t, "LoadAccrued", mock.Anything)
}

func TestRunAllCancelled(t *testing.T) {
	r, ds := newTestRecon(t, &config.Configuration{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.RunAll(ctx, date("2024-06-30"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.StatusFailed, report.Status)
	ds.AssertNotCalled(t, "LoadBank", mock.Anything, mock.Anything)
}

func TestReconcileSingleDomain(t *testing.T) {
	r, ds := newTestRecon(t, &config.Configuration{
		Bank:   config.BankConfig{AccountID: 7, ClientID: 9},
		Period: config.PeriodConfig{Start: "2024-02-01", End: "2024-02-29"},
	})
	gl, stmt := sampleBank(t)
	query := model.BankQuery{AccountID: 7, ClientID: 9, PeriodStart: date("2024-02-01"), PeriodEnd: date("2024-02-29")}
	ds.On("LoadBank", mock.Anything, query).Return(&model.BankData{Transactions: gl, Statements: stmt}, nil)

	res, err := r.ReconcileBank(context.Background(), date("2024-04-01"))
	require.NoError(t, err)
	assertMoney(t, "-740", res.Balances.BalanceDifference)
	ds.AssertExpectations(t)

	ds.On("LoadPrepaid", mock.Anything).Return(nil, errors.New("no such file"))
	_, err = r.ReconcilePrepaid(context.Background(), date("2024-04-01"))
	assert.EqualError(t, err, "no such file")
}

func TestOptionsFromConfig(t *testing.T) {
	r, _ := newTestRecon(t, &config.Configuration{
		Tolerance:       0.5,
		InventoryCutoff: "2024-01-31",
		Period:          config.PeriodConfig{Start: "2024-01-01", End: "2024-03-31"},
		Anomaly:         config.AnomalyConfig{Method: config.MethodDensity},
		Keys:            model.MatchKeys{AR: model.KeySpec{Match: []string{"invoice_id"}}},
	})

	opts, err := r.Options(date("2024-04-15"))
	require.NoError(t, err)
	assert.Equal(t, date("2024-04-15"), opts.Now)
	assert.Equal(t, "0.5", opts.Tolerance.String())
	assert.Equal(t, date("2024-01-01"), opts.PeriodStart)
	assert.Equal(t, date("2024-03-31"), opts.PeriodEnd)
	require.NotNil(t, opts.Cutoff)
	assert.Equal(t, date("2024-01-31"), *opts.Cutoff)
	assert.Equal(t, []string{"invoice_id"}, opts.Keys.AR.Match)
	assert.Equal(t, []string{"invoice_id"}, opts.Keys.AR.Duplicate)
	assert.Equal(t, model.DefaultMatchKeys().Bank, opts.Keys.Bank)
	assert.NotNil(t, opts.Outliers)
}

func TestOptionsDefaults(t *testing.T) {
	r, _ := newTestRecon(t, &config.Configuration{})

	opts, err := r.Options(date("2024-04-15"))
	require.NoError(t, err)
	assert.True(t, opts.Tolerance.Equal(DefaultTolerance))
	assert.True(t, opts.PeriodStart.IsZero())
	assert.Nil(t, opts.Cutoff)
	assert.Equal(t, model.DefaultMatchKeys(), opts.Keys)
}

func TestOptionsRejectsBadDates(t *testing.T) {
	r, _ := newTestRecon(t, &config.Configuration{InventoryCutoff: "31/01/2024"})

	_, err := r.Options(date("2024-04-15"))
	assert.Error(t, err)
}
