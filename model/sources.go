package model

import "time"

// BankQuery selects the statement and ledger rows of one bank account.
// Zero period bounds leave the period unfiltered.
type BankQuery struct {
	AccountID   int64
	ClientID    int64
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type BankData struct {
	Transactions *Table
	Statements   *Table
}

type ARData struct {
	Subledger *Table
	GL        *Table
	Allowance *Table
}

type APData struct {
	Subledger     *Table
	GL            *Table
	CreditCard    *Table
	BatchPayments *Table
}

type FixedAssetsData struct {
	Register     *Table
	GL           *Table
	Depreciation *Table
}

type InventoryData struct {
	GL             *Table
	Counts         *Table
	MarketValues   *Table
	APTransactions *Table
}

// ScheduleData is a supporting schedule (prepaid or accrued) and its GL account.
type ScheduleData struct {
	Schedule *Table
	GL       *Table
}

type CashEquivalentsData struct {
	GL          *Table
	Broker      *Table
	Investments *Table
}
