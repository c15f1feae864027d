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
	"math"
	"strings"
	"time"

	"github.com/blnkfinance/recon/anomaly"
	"github.com/blnkfinance/recon/model"
	"github.com/pkg/errors"
)

const (
	colTxnDate        = "txn_date"
	colTxnAmount      = "txn_amount"
	colTxnDescription = "txn_description"
	colCheckNum       = "check_num"
	colTxnType        = "txn_type"
)

// staleAfter is the age beyond which an unreconciled GL transaction is old.
const staleAfter = 30 * 24 * time.Hour

var bankColumns = []model.Column{
	{Name: colTxnDate, Type: model.TimeColumn},
	{Name: colTxnAmount, Type: model.NumberColumn},
	{Name: colTxnDescription, Type: model.StringColumn},
}

// ReconcileBank reconciles GL cash transactions against a bank statement.
//
// Parameters:
// - gl: GL transactions with txn_date, txn_amount and txn_description, plus optional check_num and txn_type.
// - stmt: Bank statement lines with the same three columns.
// - opts: Shared options. opts.Now dates the old-transaction check.
//
// Returns:
// - *model.BankResult: Unmatched, duplicate and outlier rows, the balance comparison with
// outstanding items, and the date and pattern analyses.
// - error: If a required column is missing or typed differently on each side.
func ReconcileBank(gl, stmt *model.Table, opts Options) (*model.BankResult, error) {
	opts = opts.withDefaults()
	if gl == nil || stmt == nil {
		return nil, errors.New("bank reconciliation needs both GL transactions and a bank statement")
	}
	if err := gl.RequireColumns(bankColumns...); err != nil {
		return nil, errors.Wrap(err, "GL transactions")
	}
	if err := stmt.RequireColumns(bankColumns...); err != nil {
		return nil, errors.Wrap(err, "bank statement")
	}

	keys := opts.Keys.Bank
	glNotBank, bankNotGL, err := anomaly.FindUnmatched(gl, stmt, keys.Match)
	if err != nil {
		return nil, errors.Wrap(err, "matching GL to bank statement")
	}
	glDupes, err := anomaly.FindDuplicates(gl, keys.Duplicate)
	if err != nil {
		return nil, errors.Wrap(err, "GL duplicates")
	}
	bankDupes, err := anomaly.FindDuplicates(stmt, keys.Duplicate)
	if err != nil {
		return nil, errors.Wrap(err, "bank statement duplicates")
	}
	glOutliers, err := opts.Outliers(gl, colTxnAmount)
	if err != nil {
		return nil, errors.Wrap(err, "GL outliers")
	}
	bankOutliers, err := opts.Outliers(stmt, colTxnAmount)
	if err != nil {
		return nil, errors.Wrap(err, "bank statement outliers")
	}

	result := &model.BankResult{
		GLNotInBank:    glNotBank,
		BankNotInGL:    bankNotGL,
		GLDuplicates:   glDupes,
		BankDuplicates: bankDupes,
		GLOutliers:     glOutliers,
		BankOutliers:   bankOutliers,
		Balances:       compareBankBalances(gl, stmt, keys.Match, opts),
		Dates:          analyzeTransactionDates(gl, stmt, opts.Now),
		Patterns:       analyzeTransactionPatterns(gl),
	}
	result.Message = bankMessage(result)
	return result, nil
}

// identifyOutstandingItems finds the timing differences between the books and the bank.
func identifyOutstandingItems(gl, stmt *model.Table, keys []string) model.OutstandingItems {
	onStatement := tupleSet(stmt, keys)
	checks := gl.Filter(func(r model.Row) bool {
		return !r.Get(colCheckNum).IsNull() && !onStatement.has(r, keys)
	})

	stmtAmounts, stmtDates, stmtDescriptions := stmt.ValueSet(colTxnAmount), stmt.ValueSet(colTxnDate), stmt.ValueSet(colTxnDescription)
	inTransit := func(kind string) *model.Table {
		return gl.Filter(func(r model.Row) bool {
			t, ok := r.Text(colTxnType)
			return ok && t == kind &&
				!stmtAmounts.Contains(r.Get(colTxnAmount)) &&
				!stmtDates.Contains(r.Get(colTxnDate)) &&
				!stmtDescriptions.Contains(r.Get(colTxnDescription))
		})
	}

	glAmounts, glDates, glDescriptions := gl.ValueSet(colTxnAmount), gl.ValueSet(colTxnDate), gl.ValueSet(colTxnDescription)
	fees := stmt.Filter(func(r model.Row) bool {
		desc, ok := r.Text(colTxnDescription)
		return ok && strings.Contains(strings.ToLower(desc), "fee") &&
			!glAmounts.Contains(r.Get(colTxnAmount)) &&
			!glDates.Contains(r.Get(colTxnDate)) &&
			!glDescriptions.Contains(r.Get(colTxnDescription))
	})

	return model.OutstandingItems{
		Checks:            checks,
		ACHInTransit:      inTransit("ach"),
		DepositsInTransit: inTransit("deposit"),
		ServiceFees:       fees,
	}
}

func compareBankBalances(gl, stmt *model.Table, keys []string, opts Options) model.BalanceComparison {
	items := identifyOutstandingItems(gl, stmt, keys)
	cmp := model.BalanceComparison{
		BankBalance: stmt.Sum(colTxnAmount),
		GLBalance:   gl.Sum(colTxnAmount),
		Outstanding: items,
	}
	cmp.BalanceDifference = cmp.GLBalance.Sub(cmp.BankBalance)
	for _, t := range []*model.Table{items.Checks, items.ACHInTransit, items.DepositsInTransit, items.ServiceFees} {
		cmp.OutstandingTotal = cmp.OutstandingTotal.Add(t.Sum(colTxnAmount))
	}
	cmp.AdjustedBalance = cmp.GLBalance.Sub(cmp.OutstandingTotal)
	cmp.IsReconciled = opts.reconciled(cmp.AdjustedBalance.Sub(cmp.BankBalance))
	return cmp
}

// analyzeTransactionDates returns GL rows that meet a statement line on the
// same date and amount, and GL rows older than 30 days at now.
func analyzeTransactionDates(gl, stmt *model.Table, now time.Time) model.DateAnalysis {
	if gl.Len() == 0 || stmt.Len() == 0 {
		return model.DateAnalysis{SameDateAndAmount: gl.Empty(), OldTransactions: gl.Empty()}
	}
	dateAmount := []string{colTxnDate, colTxnAmount}
	onStatement := tupleSet(stmt, dateAmount)
	return model.DateAnalysis{
		SameDateAndAmount: gl.Filter(func(r model.Row) bool { return onStatement.has(r, dateAmount) }),
		OldTransactions: gl.Filter(func(r model.Row) bool {
			d, ok := r.Time(colTxnDate)
			return ok && now.Sub(d) > staleAfter
		}),
	}
}

// analyzeTransactionPatterns flags GL rows sharing a date and amount, and
// round amounts (whole hundreds).
func analyzeTransactionPatterns(gl *model.Table) model.PatternAnalysis {
	sameDay, err := anomaly.FindDuplicates(gl, []string{colTxnDate, colTxnAmount})
	if err != nil {
		sameDay = gl.Empty()
	}
	return model.PatternAnalysis{
		SameDaySameAmount: sameDay,
		RoundAmounts: gl.Filter(func(r model.Row) bool {
			a, ok := r.Float(colTxnAmount)
			return ok && !math.IsInf(a, 0) && math.Mod(a, 100) == 0
		}),
	}
}

// rowSet holds the key tuples of a table.
type rowSet map[string]struct{}

func tupleSet(t *model.Table, keys []string) rowSet {
	set := rowSet{}
	for i := 0; i < t.Len(); i++ {
		set[rowKey(t.RowAt(i), keys)] = struct{}{}
	}
	return set
}

func (s rowSet) has(r model.Row, keys []string) bool {
	_, ok := s[rowKey(r, keys)]
	return ok
}

func rowKey(r model.Row, keys []string) string {
	values := make([]model.Value, len(keys))
	for i, k := range keys {
		values[i] = r.Get(k)
	}
	return model.TupleKey(values...)
}
