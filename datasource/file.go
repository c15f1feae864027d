package datasource

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/blnkfinance/recon/config"
	"github.com/blnkfinance/recon/internal/files"
	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
	"github.com/sirupsen/logrus"
)

// FileDataSource reads every table from CSV or JSON files under one directory.
type FileDataSource struct {
	dir   string
	files config.FilesConfig
}

func NewFileDataSource(dir string, names config.FilesConfig) *FileDataSource {
	return &FileDataSource{dir: dir, files: names}
}

// NewDataSource returns the data source described by the configuration.
func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	info, err := os.Stat(configuration.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, reconerr.NotFound(configuration.DataDir, "data directory does not exist")
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, reconerr.LoadFailed(configuration.DataDir, "data directory is not a directory")
	}
	return NewFileDataSource(configuration.DataDir, configuration.Files), nil
}

func (f *FileDataSource) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(f.dir, name)
}

func (f *FileDataSource) load(ctx context.Context, name string, schema model.Schema, filter files.RowFilter) (*model.Table, error) {
	return files.ReadTable(ctx, f.path(name), schema, filter)
}

// loadOptional returns nil when the file is not configured or does not exist.
func (f *FileDataSource) loadOptional(ctx context.Context, name string, schema model.Schema) (*model.Table, error) {
	if name == "" {
		return nil, nil
	}
	tbl, err := f.load(ctx, name, schema, nil)
	if reconerr.Is(err, reconerr.ErrNotFound) {
		logrus.WithField("file", f.path(name)).Warn("optional file not found, skipping")
		return nil, nil
	}
	return tbl, err
}

func sameAccount(query model.BankQuery) files.RowFilter {
	return func(r files.Record) bool {
		account, ok := r.Get("bank_account_id").AsFloat()
		if !ok || account != float64(query.AccountID) {
			return false
		}
		client, ok := r.Get("client_id").AsFloat()
		return ok && client == float64(query.ClientID)
	}
}

func within(t time.Time, ok bool, start, end time.Time) bool {
	if !ok {
		return start.IsZero() && end.IsZero()
	}
	if !start.IsZero() && t.Before(start) {
		return false
	}
	return end.IsZero() || !t.After(end)
}

// LoadBank loads the ledger transactions and statement lines of one bank
// account. Ledger rows are kept when their txn_date falls in the period,
// statement rows when their statement starts and ends inside it.
func (f *FileDataSource) LoadBank(ctx context.Context, query model.BankQuery) (*model.BankData, error) {
	account := sameAccount(query)

	accounts, err := f.load(ctx, f.files.BankAccounts, model.BankAccountSchema, account)
	if err != nil {
		return nil, err
	}
	if accounts.Len() == 0 {
		return nil, reconerr.NotFound(f.path(f.files.BankAccounts),
			"no bank account found for bank_account_id=%d and client_id=%d", query.AccountID, query.ClientID)
	}

	txns, err := f.load(ctx, f.files.BankTransactions, model.BankTransactionSchema, func(r files.Record) bool {
		if !account(r) {
			return false
		}
		d, ok := r.Get("txn_date").AsTime()
		return within(d, ok, query.PeriodStart, query.PeriodEnd)
	})
	if err != nil {
		return nil, err
	}

	stmts, err := f.load(ctx, f.files.BankStatements, model.BankStatementSchema, func(r files.Record) bool {
		if !account(r) {
			return false
		}
		start, ok := r.Get("stmt_start_date").AsTime()
		if !within(start, ok, query.PeriodStart, time.Time{}) {
			return false
		}
		end, ok := r.Get("stmt_end_date").AsTime()
		return within(end, ok, time.Time{}, query.PeriodEnd)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"bank_account_id": query.AccountID,
		"client_id":       query.ClientID,
		"gl_rows":         txns.Len(),
		"statement_rows":  stmts.Len(),
	}).Info("loaded bank data")
	return &model.BankData{Transactions: txns, Statements: stmts}, nil
}

func (f *FileDataSource) LoadAR(ctx context.Context) (*model.ARData, error) {
	ar, err := f.load(ctx, f.files.AR, model.ARSchema, nil)
	if err != nil {
		return nil, err
	}
	gl, err := f.load(ctx, f.files.GLAR, model.GLARSchema, nil)
	if err != nil {
		return nil, err
	}
	allowance, err := f.loadOptional(ctx, f.files.Allowance, model.AllowanceSchema)
	if err != nil {
		return nil, err
	}
	return &model.ARData{Subledger: ar, GL: gl, Allowance: allowance}, nil
}

func (f *FileDataSource) LoadAP(ctx context.Context) (*model.APData, error) {
	ap, err := f.load(ctx, f.files.AP, model.APSchema, nil)
	if err != nil {
		return nil, err
	}
	gl, err := f.load(ctx, f.files.GLAP, model.GLAPSchema, nil)
	if err != nil {
		return nil, err
	}
	card, err := f.loadOptional(ctx, f.files.CreditCard, model.CreditCardSchema)
	if err != nil {
		return nil, err
	}
	batches, err := f.loadOptional(ctx, f.files.BatchPayments, model.BatchPaymentSchema)
	if err != nil {
		return nil, err
	}
	return &model.APData{Subledger: ap, GL: gl, CreditCard: card, BatchPayments: batches}, nil
}

func (f *FileDataSource) LoadFixedAssets(ctx context.Context) (*model.FixedAssetsData, error) {
	register, err := f.load(ctx, f.files.FixedAssets, model.FixedAssetSchema, nil)
	if err != nil {
		return nil, err
	}
	gl, err := f.load(ctx, f.files.GLFixedAssets, model.GLFixedAssetSchema, nil)
	if err != nil {
		return nil, err
	}
	depreciation, err := f.load(ctx, f.files.Depreciation, model.DepreciationSchema, nil)
	if err != nil {
		return nil, err
	}
	return &model.FixedAssetsData{Register: register, GL: gl, Depreciation: depreciation}, nil
}

func (f *FileDataSource) LoadInventory(ctx context.Context) (*model.InventoryData, error) {
	gl, err := f.load(ctx, f.files.GLInventory, model.GLInventorySchema, nil)
	if err != nil {
		return nil, err
	}
	counts, err := f.load(ctx, f.files.PhysicalCounts, model.PhysicalCountSchema, nil)
	if err != nil {
		return nil, err
	}
	market, err := f.load(ctx, f.files.MarketValues, model.MarketValueSchema, nil)
	if err != nil {
		return nil, err
	}
	apTxns, err := f.load(ctx, f.files.APTransactions, model.APTransactionSchema, nil)
	if err != nil {
		return nil, err
	}
	return &model.InventoryData{GL: gl, Counts: counts, MarketValues: market, APTransactions: apTxns}, nil
}

func (f *FileDataSource) loadSchedule(ctx context.Context, schedule, gl string, schema model.Schema) (*model.ScheduleData, error) {
	s, err := f.load(ctx, schedule, schema, nil)
	if err != nil {
		return nil, err
	}
	g, err := f.load(ctx, gl, schema, nil)
	if err != nil {
		return nil, err
	}
	return &model.ScheduleData{Schedule: s, GL: g}, nil
}

func (f *FileDataSource) LoadPrepaid(ctx context.Context) (*model.ScheduleData, error) {
	return f.loadSchedule(ctx, f.files.Prepaid, f.files.GLPrepaid, model.PrepaidSchema)
}

func (f *FileDataSource) LoadAccrued(ctx context.Context) (*model.ScheduleData, error) {
	return f.loadSchedule(ctx, f.files.Accrued, f.files.GLAccrued, model.AccruedSchema)
}

func (f *FileDataSource) LoadCashEquivalents(ctx context.Context) (*model.CashEquivalentsData, error) {
	gl, err := f.load(ctx, f.files.GLCashEquivalents, model.GLCashEquivalentSchema, nil)
	if err != nil {
		return nil, err
	}
	broker, err := f.load(ctx, f.files.BrokerStatements, model.BrokerStatementSchema, nil)
	if err != nil {
		return nil, err
	}
	investments, err := f.load(ctx, f.files.Investments, model.InvestmentSchema, nil)
	if err != nil {
		return nil, err
	}
	return &model.CashEquivalentsData{GL: gl, Broker: broker, Investments: investments}, nil
}
