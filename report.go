/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package recon

import (
	"fmt"
	"strings"

	"github.com/blnkfinance/recon/model"
	"github.com/shopspring/decimal"
)

// money formats an amount with a dollar sign and two decimals.
func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

func status(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

func bankMessage(r *model.BankResult) string {
	b := r.Balances
	var sb strings.Builder
	sb.WriteString("=== Bank Reconciliation ===\n")
	fmt.Fprintf(&sb, "Bank Statement Balance: %s\n", money(b.BankBalance))
	fmt.Fprintf(&sb, "GL Transactions Balance: %s\n", money(b.GLBalance))
	fmt.Fprintf(&sb, "Outstanding Items Total: %s\n", money(b.OutstandingTotal))
	fmt.Fprintf(&sb, "Adjusted GL Balance: %s\n", money(b.AdjustedBalance))
	fmt.Fprintf(&sb, "Status: %s\n", status(b.IsReconciled, "Reconciled", "Not Reconciled"))
	sb.WriteString("\nOutstanding Items:\n")
	fmt.Fprintf(&sb, "- Outstanding Checks: %s\n", money(b.Outstanding.Checks.Sum(colTxnAmount)))
	fmt.Fprintf(&sb, "- ACH in Transit: %s\n", money(b.Outstanding.ACHInTransit.Sum(colTxnAmount)))
	fmt.Fprintf(&sb, "- Deposits in Transit: %s\n", money(b.Outstanding.DepositsInTransit.Sum(colTxnAmount)))
	fmt.Fprintf(&sb, "- Service Fees: %s\n", money(b.Outstanding.ServiceFees.Sum(colTxnAmount)))
	sb.WriteString("\nTransaction Analysis:\n")
	fmt.Fprintf(&sb, "- Unmatched GL Transactions: %d\n", r.GLNotInBank.Len())
	fmt.Fprintf(&sb, "- Unmatched Bank Transactions: %d\n", r.BankNotInGL.Len())
	fmt.Fprintf(&sb, "- Duplicate GL Transactions: %d\n", r.GLDuplicates.Len())
	fmt.Fprintf(&sb, "- Duplicate Bank Transactions: %d", r.BankDuplicates.Len())
	return sb.String()
}

// ledgerMessage renders the totals of a subledger comparison, followed by
// the count of every non-empty exception list.
func ledgerMessage(subledger, gl string, c model.LedgerComparison) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s total: %s\n", subledger, money(c.SubledgerTotal))
	fmt.Fprintf(&sb, "%s total: %s\n", gl, money(c.GLTotal))
	fmt.Fprintf(&sb, "Difference: %s\n", money(c.BalanceDifference))
	fmt.Fprintf(&sb, "Status: %s", status(c.IsFullyReconciled, "Fully reconciled", "Not reconciled"))

	exceptions := []struct {
		label string
		rows  *model.Table
	}{
		{"Entries only in " + subledger, c.OnlyInSubledger},
		{"Entries only in " + gl, c.OnlyInGL},
		{"Duplicate entries in " + subledger, c.SubledgerDuplicates},
		{"Duplicate entries in " + gl, c.GLDuplicates},
		{"Unusual amounts in " + subledger, c.SubledgerOutliers},
		{"Unusual amounts in " + gl, c.GLOutliers},
	}
	for _, e := range exceptions {
		if e.rows != nil && e.rows.Len() > 0 {
			fmt.Fprintf(&sb, "\n- %s: %d", e.label, e.rows.Len())
		}
	}
	return sb.String()
}

func fixedAssetsMessage(r *model.FixedAssetsResult) string {
	var sb strings.Builder
	sb.WriteString("=== Fixed Assets Reconciliation ===\n")
	sb.WriteString("\nRoll Forward Analysis:\n")
	fmt.Fprintf(&sb, "Beginning Balance: %s\n", money(r.BeginningBalance))
	for _, m := range r.Movements {
		fmt.Fprintf(&sb, "%s: %s\n", movementLabels[m.Type], money(m.Total))
	}
	fmt.Fprintf(&sb, "Ending Balance: %s\n", money(r.EndingBalance))
	sb.WriteString("\nDepreciation Analysis:\n")
	fmt.Fprintf(&sb, "Current Period Depreciation: %s\n", money(r.Depreciation.CurrentDepreciation))
	fmt.Fprintf(&sb, "Accumulated Depreciation: %s\n", money(r.Depreciation.AccumulatedDepreciation))
	fmt.Fprintf(&sb, "Net Book Value: %s\n\n", money(r.Depreciation.NetBookValue))
	sb.WriteString(ledgerMessage("Fixed asset register", "GL fixed assets", r.LedgerComparison))
	return sb.String()
}

func inventoryMessage(r *model.InventoryResult) string {
	var sb strings.Builder
	sb.WriteString("=== Inventory Reconciliation ===\n")
	fmt.Fprintf(&sb, "Total GL Value: %s\n", money(r.TotalGLValue))
	fmt.Fprintf(&sb, "Physical Count Discrepancy: %s\n", money(r.Counts.TotalDiscrepancyValue))
	fmt.Fprintf(&sb, "Obsolescence Allowance: %s\n", money(r.Obsolescence.TotalObsolescence))
	fmt.Fprintf(&sb, "LCM Adjustment: %s", money(r.LCM.TotalAdjustment))
	if r.Cutoff != nil {
		fmt.Fprintf(&sb, "\nCut-off Accrual: %s", money(r.Cutoff.TotalAccrual))
	}
	return sb.String()
}

func cashEquivalentsMessage(r *model.CashEquivalentsResult) string {
	mv, mat := r.MarketValues, r.Maturity
	var sb strings.Builder
	sb.WriteString("=== Cash Equivalents Reconciliation ===\n")
	fmt.Fprintf(&sb, "Total Book Value: %s\n", money(mv.TotalBookValue))
	fmt.Fprintf(&sb, "Total Market Value: %s\n", money(mv.TotalMarketValue))
	fmt.Fprintf(&sb, "Unrealized Gain/Loss: %s\n", money(mv.TotalUnrealizedGainLoss))
	fmt.Fprintf(&sb, "Compliance Status: %s\n", r.ComplianceStatus)
	sb.WriteString("\nMaturity Validation:\n")
	fmt.Fprintf(&sb, "- Total Amount: %s\n", money(mat.TotalAmount))
	fmt.Fprintf(&sb, "- Compliant Amount: %s\n", money(mat.CompliantAmount))
	fmt.Fprintf(&sb, "- Non-compliant Amount: %s\n", money(mat.TotalAmount.Sub(mat.CompliantAmount)))
	sb.WriteString("\nYield Analysis:\n")
	fmt.Fprintf(&sb, "- Average Yield: %s\n", percent(r.Yields.AverageYield))
	fmt.Fprintf(&sb, "- Highest Yield: %s\n", percent(r.Yields.HighestYield))
	fmt.Fprintf(&sb, "- Lowest Yield: %s\n", percent(r.Yields.LowestYield))
	sb.WriteString("\nConcentration Analysis:\n")
	fmt.Fprintf(&sb, "- High Concentration Types: %d\n", len(r.Concentration.HighConcentrationTypes))
	fmt.Fprintf(&sb, "- High Concentration Issuers: %d\n", len(r.Concentration.HighConcentrationIssuers))
	fmt.Fprintf(&sb, "- Overall Compliant: %t", r.Concentration.IsCompliant)
	return sb.String()
}
