package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Report is the combined result of one reconciliation run. Domains that were
// not run are nil.
type Report struct {
	RunID           string                 `json:"run_id"`
	Status          string                 `json:"status"`
	AsOf            time.Time              `json:"as_of"`
	StartedAt       time.Time              `json:"started_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	Error           string                 `json:"error,omitempty"`
	Bank            *BankResult            `json:"bank,omitempty"`
	CashEquivalents *CashEquivalentsResult `json:"cash_equivalents,omitempty"`
	Inventory       *InventoryResult       `json:"inventory,omitempty"`
	AR              *ARResult              `json:"ar,omitempty"`
	AP              *APResult              `json:"ap,omitempty"`
	FixedAssets     *FixedAssetsResult     `json:"fixed_assets,omitempty"`
	Prepaid         *ScheduleResult        `json:"prepaid,omitempty"`
	Accrued         *ScheduleResult        `json:"accrued,omitempty"`
}

// LedgerComparison is the shared core of every subledger-vs-GL result.
type LedgerComparison struct {
	OnlyInSubledger     *Table          `json:"only_in_subledger"`
	OnlyInGL            *Table          `json:"only_in_gl"`
	SubledgerDuplicates *Table          `json:"subledger_duplicates"`
	GLDuplicates        *Table          `json:"gl_duplicates"`
	SubledgerOutliers   *Table          `json:"subledger_outliers"`
	GLOutliers          *Table          `json:"gl_outliers"`
	SubledgerTotal      decimal.Decimal `json:"subledger_total"`
	GLTotal             decimal.Decimal `json:"gl_total"`
	BalanceDifference   decimal.Decimal `json:"balance_difference"`
	IsFullyReconciled   bool            `json:"is_fully_reconciled"`
}

type OutstandingItems struct {
	Checks            *Table `json:"outstanding_checks"`
	ACHInTransit      *Table `json:"ach_in_transit"`
	DepositsInTransit *Table `json:"deposits_in_transit"`
	ServiceFees       *Table `json:"service_fees"`
}

type BalanceComparison struct {
	BankBalance       decimal.Decimal  `json:"bank_stmt_balance"`
	GLBalance         decimal.Decimal  `json:"gl_balance"`
	BalanceDifference decimal.Decimal  `json:"balance_difference"`
	Outstanding       OutstandingItems `json:"outstanding_items"`
	OutstandingTotal  decimal.Decimal  `json:"outstanding_total"`
	AdjustedBalance   decimal.Decimal  `json:"adjusted_balance"`
	IsReconciled      bool             `json:"is_reconciled"`
}

type DateAnalysis struct {
	SameDateAndAmount *Table `json:"same_date_and_amount"`
	OldTransactions   *Table `json:"old_transactions"`
}

type PatternAnalysis struct {
	SameDaySameAmount *Table `json:"same_day_same_amount"`
	RoundAmounts      *Table `json:"round_amounts"`
}

type BankResult struct {
	GLNotInBank    *Table            `json:"transactions_in_gl_not_bank"`
	BankNotInGL    *Table            `json:"transactions_in_bank_not_gl"`
	GLDuplicates   *Table            `json:"duplicate_gl_transactions"`
	BankDuplicates *Table            `json:"duplicate_bank_transactions"`
	GLOutliers     *Table            `json:"outlier_company_transactions"`
	BankOutliers   *Table            `json:"outlier_bank_transactions"`
	Balances       BalanceComparison `json:"balance_comparison"`
	Dates          DateAnalysis      `json:"date_analysis"`
	Patterns       PatternAnalysis   `json:"pattern_analysis"`
	Message        string            `json:"reconciliation_message"`
}

// AgingBucket is one days-outstanding bracket.
type AgingBucket struct {
	Name  string          `json:"name"`
	Rows  *Table          `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

type AgingAnalysis struct {
	Buckets          []AgingBucket   `json:"buckets"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// Bucket returns the bucket named name, or a zero bucket.
func (a AgingAnalysis) Bucket(name string) AgingBucket {
	for _, b := range a.Buckets {
		if b.Name == name {
			return b
		}
	}
	return AgingBucket{Name: name}
}

// Exposure summarises one counterparty (customer, vendor) of a subledger.
type Exposure struct {
	ID            string          `json:"id"`
	Count         int             `json:"count"`
	Total         decimal.Decimal `json:"total"`
	FirstDate     time.Time       `json:"first_date"`
	LastDate      time.Time       `json:"last_date"`
	Trend         string          `json:"balance_trend"`
	Concentration float64         `json:"concentration"`
}

type ExposureAnalysis struct {
	Parties           []Exposure `json:"parties"`
	HighConcentration []Exposure `json:"high_concentration"`
	MultipleInvoices  []Exposure `json:"multiple_invoices"`
}

type WriteOffAnalysis struct {
	WriteOffs           *Table          `json:"write_offs"`
	AllowanceBalance    decimal.Decimal `json:"allowance_balance"`
	WriteOffRatio       float64         `json:"write_off_ratio"`
	UnrecordedWriteOffs *Table          `json:"unrecorded_write_offs"`
}

type AccruedEntryAnalysis struct {
	AccruedInSubledger *Table          `json:"accrued_in_ar"`
	AccruedInGL        *Table          `json:"accrued_in_gl"`
	UnmatchedSubledger *Table          `json:"unmatched_accrued_ar"`
	UnmatchedGL        *Table          `json:"unmatched_accrued_gl"`
	Impact             decimal.Decimal `json:"accrued_impact"`
}

type ARResult struct {
	LedgerComparison
	Aging     AgingAnalysis        `json:"aging_analysis"`
	Customers ExposureAnalysis     `json:"payment_analysis"`
	WriteOffs WriteOffAnalysis     `json:"write_off_analysis"`
	Accrued   AccruedEntryAnalysis `json:"accrued_analysis"`
	Message   string               `json:"reconciliation_message"`
}

type PeriodMismatch struct {
	Period     string          `json:"period"`
	AP         decimal.Decimal `json:"ap_amount"`
	GL         decimal.Decimal `json:"gl_amount"`
	Difference decimal.Decimal `json:"difference"`
}

type AccrualValidation struct {
	Mismatches      []PeriodMismatch `json:"period_mismatches"`
	IsGAAPCompliant bool             `json:"is_gaap_compliant"`
}

type CreditCardReconciliation struct {
	UnmatchedCharges   *Table          `json:"unmatched_charges"`
	UnmatchedAPEntries *Table          `json:"unmatched_ap_entries"`
	DuplicateCharges   *Table          `json:"duplicate_charges"`
	StatementTotal     decimal.Decimal `json:"statement_total"`
	APCardTotal        decimal.Decimal `json:"ap_card_total"`
	TotalDifference    decimal.Decimal `json:"total_difference"`
	IsReconciled       bool            `json:"is_reconciled"`
}

type BatchSummary struct {
	BatchID      string          `json:"batch_id"`
	Count        int             `json:"count"`
	Total        decimal.Decimal `json:"total"`
	StatusCounts map[string]int  `json:"status_counts"`
}

type BatchPaymentTracking struct {
	Batches     []BatchSummary `json:"batch_summary"`
	Unprocessed *Table         `json:"unprocessed_payments"`
	Failed      *Table         `json:"failed_payments"`
}

type APResult struct {
	LedgerComparison
	Aging      AgingAnalysis            `json:"aging_analysis"`
	Vendors    ExposureAnalysis         `json:"payment_analysis"`
	Accruals   AccrualValidation        `json:"accrual_validation"`
	CreditCard CreditCardReconciliation `json:"credit_card_reconciliation"`
	Batches    BatchPaymentTracking     `json:"batch_payment_tracking"`
	Message    string                   `json:"reconciliation_message"`
}

type AssetMovement struct {
	Type  string          `json:"type"`
	Rows  *Table          `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

type DepreciationAnalysis struct {
	CurrentDepreciation     decimal.Decimal `json:"current_depreciation"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	NetBookValue            decimal.Decimal `json:"net_book_value"`
	Entries                 *Table          `json:"depreciation_entries"`
}

type FixedAssetsResult struct {
	LedgerComparison
	BeginningBalance decimal.Decimal      `json:"beginning_balance"`
	EndingBalance    decimal.Decimal      `json:"ending_balance"`
	Movements        []AssetMovement      `json:"movements"`
	Depreciation     DepreciationAnalysis `json:"depreciation_analysis"`
	Message          string               `json:"reconciliation_message"`
}

// Movement returns the movement of the given type, or a zero movement.
func (r FixedAssetsResult) Movement(kind string) AssetMovement {
	for _, m := range r.Movements {
		if m.Type == kind {
			return m
		}
	}
	return AssetMovement{Type: kind}
}

type DiscrepancySummary struct {
	Type         string          `json:"discrepancy_type"`
	QuantityDiff float64         `json:"quantity_diff"`
	ValueDiff    decimal.Decimal `json:"value_diff"`
	Items        int             `json:"items"`
}

type CountAnalysis struct {
	Summary               []DiscrepancySummary `json:"count_summary"`
	Adjustments           *Table               `json:"adjustment_entries"`
	TotalDiscrepancyValue decimal.Decimal      `json:"total_discrepancy_value"`
	DiscrepancyCount      int                  `json:"discrepancy_count"`
	DuplicateCounts       *Table               `json:"duplicate_counts"`
	DuplicateGL           *Table               `json:"duplicate_gl"`
}

type AgeCategory struct {
	Name         string          `json:"name"`
	Factor       float64         `json:"obsolescence_factor"`
	Quantity     float64         `json:"quantity_gl"`
	MeanUnitCost float64         `json:"unit_cost"`
	Allowance    decimal.Decimal `json:"obsolescence_allowance"`
	Items        int             `json:"items"`
}

type ObsolescenceAnalysis struct {
	AgeSummary        []AgeCategory   `json:"age_summary"`
	TotalObsolescence decimal.Decimal `json:"total_obsolescence"`
	TotalWriteDown    decimal.Decimal `json:"total_write_down"`
	SlowMovingItems   *Table          `json:"slow_moving_items"`
}

type LCMCategory struct {
	Category        string          `json:"item_category"`
	Quantity        float64         `json:"quantity_gl"`
	MeanUnitCost    float64         `json:"unit_cost"`
	MeanMarketValue float64         `json:"market_value"`
	Adjustment      decimal.Decimal `json:"lcm_adjustment"`
}

type LCMAnalysis struct {
	Summary         []LCMCategory   `json:"lcm_summary"`
	TotalAdjustment decimal.Decimal `json:"total_lcm_adjustment"`
	ItemsBelowCost  *Table          `json:"items_below_cost"`
	DuplicateQuotes *Table          `json:"duplicate_market_values"`
}

type VendorAccrual struct {
	VendorID string          `json:"vendor_id"`
	Quantity float64         `json:"quantity"`
	Accrual  decimal.Decimal `json:"accrual_amount"`
}

type CutoffAnalysis struct {
	CutoffDate     time.Time       `json:"cutoff_date"`
	ByVendor       []VendorAccrual `json:"in_transit_summary"`
	TotalAccrual   decimal.Decimal `json:"total_accrual"`
	InTransitItems *Table          `json:"in_transit_items"`
}

type InventoryResult struct {
	TotalGLValue decimal.Decimal      `json:"total_gl_value"`
	Counts       CountAnalysis        `json:"count_analysis"`
	Obsolescence ObsolescenceAnalysis `json:"obsolescence_analysis"`
	LCM          LCMAnalysis          `json:"lcm_analysis"`
	Cutoff       *CutoffAnalysis      `json:"cutoff_analysis,omitempty"`
	Message      string               `json:"reconciliation_message"`
}

// ScheduleResult is the result of a schedule-vs-GL reconciliation such as
// prepaid or accrued expenses.
type ScheduleResult struct {
	Name string `json:"name"`
	LedgerComparison
	Message string `json:"reconciliation_message"`
}

type TypeSummary struct {
	Type     string          `json:"type"`
	Count    int             `json:"count"`
	Amount   decimal.Decimal `json:"amount"`
	MeanDays float64         `json:"mean_days_to_maturity"`
	MaxDays  int             `json:"max_days_to_maturity"`
}

type MaturityValidation struct {
	NonCompliant    *Table          `json:"non_compliant_investments"`
	ByType          []TypeSummary   `json:"summary_by_type"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CompliantAmount decimal.Decimal `json:"compliant_amount"`
}

type MarketTypeSummary struct {
	Type               string          `json:"type"`
	BookValue          decimal.Decimal `json:"book_value"`
	MarketValue        decimal.Decimal `json:"market_value"`
	UnrealizedGainLoss decimal.Decimal `json:"unrealized_gain_loss"`
	MeanReturn         float64         `json:"return"`
}

type MarketValueAnalysis struct {
	TotalBookValue          decimal.Decimal     `json:"total_book_value"`
	TotalMarketValue        decimal.Decimal     `json:"total_market_value"`
	TotalUnrealizedGainLoss decimal.Decimal     `json:"total_unrealized_gain_loss"`
	TotalReturn             float64             `json:"total_return"`
	ByType                  []MarketTypeSummary `json:"summary_by_type"`
	UnmatchedGL             *Table              `json:"unmatched_gl"`
	UnmatchedBroker         *Table              `json:"unmatched_broker"`
}

type YieldSummary struct {
	Type   string          `json:"type"`
	Mean   float64         `json:"mean"`
	Min    float64         `json:"min"`
	Max    float64         `json:"max"`
	Amount decimal.Decimal `json:"amount"`
}

type YieldAnalysis struct {
	ByType       []YieldSummary `json:"yield_summary"`
	AverageYield float64        `json:"average_yield"`
	HighestYield float64        `json:"highest_yield"`
	LowestYield  float64        `json:"lowest_yield"`
}

// Share is one slice of a concentration breakdown.
type Share struct {
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Count         int             `json:"count"`
	Concentration float64         `json:"concentration"`
}

type ConcentrationAnalysis struct {
	ByInstrumentType         []Share `json:"by_instrument_type"`
	ByIssuer                 []Share `json:"by_issuer"`
	HighConcentrationTypes   []Share `json:"high_concentration_types"`
	HighConcentrationIssuers []Share `json:"high_concentration_issuers"`
	IsCompliant              bool    `json:"is_compliant"`
}

type CashEquivalentsResult struct {
	Maturity             MaturityValidation    `json:"maturity_validation"`
	MarketValues         MarketValueAnalysis   `json:"market_value_analysis"`
	Yields               YieldAnalysis         `json:"yield_analysis"`
	Concentration        ConcentrationAnalysis `json:"concentration_analysis"`
	DuplicateInvestments *Table                `json:"duplicate_investments"`
	ComplianceStatus     string                `json:"compliance_status"`
	Message              string                `json:"reconciliation_message"`
}
