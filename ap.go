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
	"sort"

	"github.com/blnkfinance/recon/anomaly"
	"github.com/blnkfinance/recon/model"
	"github.com/pkg/errors"
)

const (
	colBillID        = "bill_id"
	colVendorID      = "vendor_id"
	colPaymentMethod = "payment_method"
	colBatchID       = "batch_id"
	colStatus        = "status"

	paymentCreditCard = "credit_card"
	batchProcessed    = "processed"
	batchFailed       = "failed"

	periodLayout = "2006-01"
)

// ReconcileAP reconciles the accounts payable subledger against the GL
// payable account. creditCard and batches are optional.
func ReconcileAP(ap, gl, creditCard, batches *model.Table, opts Options) (*model.APResult, error) {
	opts = opts.withDefaults()
	if ap == nil || gl == nil {
		return nil, errors.New("AP reconciliation needs the AP subledger and GL entries")
	}
	if err := ap.RequireColumns(model.APSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "AP subledger")
	}
	if err := gl.RequireColumns(model.GLAPSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "GL payables")
	}

	cmp, err := compareLedgers(ap, gl, opts.Keys.AP, colAmount, opts)
	if err != nil {
		return nil, errors.Wrap(err, "AP")
	}
	cards, err := reconcileCreditCards(ap, creditCard, opts)
	if err != nil {
		return nil, err
	}
	tracking, err := trackBatchPayments(ap, batches)
	if err != nil {
		return nil, err
	}

	result := &model.APResult{
		LedgerComparison: cmp,
		Aging:            analyzeAging(ap, colDate, colAmount, opts.Now),
		Vendors:          analyzeExposure(ap, colVendorID, colDate, colAmount),
		Accruals:         validateAccrualPeriods(ap, gl, opts),
		CreditCard:       cards,
		Batches:          tracking,
	}
	result.Message = ledgerMessage("AP Subledger", "GL AP", cmp)
	return result, nil
}

// periodTotals sums amountCol per calendar month of dateCol.
func periodTotals(t *model.Table, dateCol, amountCol string) map[string]*model.Table {
	rows := map[string][]int{}
	for i := 0; i < t.Len(); i++ {
		d, ok := t.Value(i, dateCol).AsTime()
		if !ok {
			continue
		}
		p := d.Format(periodLayout)
		rows[p] = append(rows[p], i)
	}
	periods := make(map[string]*model.Table, len(rows))
	for p, idx := range rows {
		periods[p] = t.Subset(idx)
	}
	return periods
}

// validateAccrualPeriods compares AP and GL totals per accounting month.
// Entries are GAAP compliant when every month agrees within tolerance.
func validateAccrualPeriods(ap, gl *model.Table, opts Options) model.AccrualValidation {
	apPeriods, glPeriods := periodTotals(ap, colDate, colAmount), periodTotals(gl, colDate, colAmount)

	seen := map[string]bool{}
	var periods []string
	for _, m := range []map[string]*model.Table{apPeriods, glPeriods} {
		for p := range m {
			if !seen[p] {
				seen[p] = true
				periods = append(periods, p)
			}
		}
	}
	sort.Strings(periods)

	validation := model.AccrualValidation{}
	for _, p := range periods {
		m := model.PeriodMismatch{Period: p}
		if t, ok := apPeriods[p]; ok {
			m.AP = t.Sum(colAmount)
		}
		if t, ok := glPeriods[p]; ok {
			m.GL = t.Sum(colAmount)
		}
		m.Difference = m.AP.Sub(m.GL)
		if !opts.reconciled(m.Difference) {
			validation.Mismatches = append(validation.Mismatches, m)
		}
	}
	validation.IsGAAPCompliant = len(validation.Mismatches) == 0
	return validation
}

// reconcileCreditCards matches card statement charges to AP entries and
// compares the statement total with AP entries paid by card. No statement
// means nothing to reconcile.
func reconcileCreditCards(ap, cards *model.Table, opts Options) (model.CreditCardReconciliation, error) {
	if cards == nil {
		empty := emptyTable(model.CreditCardSchema)
		return model.CreditCardReconciliation{
			UnmatchedCharges:   empty,
			UnmatchedAPEntries: ap.Empty(),
			DuplicateCharges:   empty,
			IsReconciled:       true,
		}, nil
	}
	if err := cards.RequireColumns(model.CreditCardSchema.Required()...); err != nil {
		return model.CreditCardReconciliation{}, errors.Wrap(err, "credit card statement")
	}

	keys := opts.Keys.CreditCard
	charges, entries, err := anomaly.FindUnmatched(cards, ap, keys.Match)
	if err != nil {
		return model.CreditCardReconciliation{}, errors.Wrap(err, "matching card charges to AP")
	}
	dupes, err := anomaly.FindDuplicates(cards, keys.Duplicate)
	if err != nil {
		return model.CreditCardReconciliation{}, errors.Wrap(err, "card charge duplicates")
	}

	rec := model.CreditCardReconciliation{
		UnmatchedCharges:   charges,
		UnmatchedAPEntries: entries,
		DuplicateCharges:   dupes,
		StatementTotal:     cards.Sum(colAmount),
		APCardTotal: ap.Filter(func(r model.Row) bool {
			m, ok := r.Text(colPaymentMethod)
			return ok && m == paymentCreditCard
		}).Sum(colAmount),
	}
	rec.TotalDifference = rec.StatementTotal.Sub(rec.APCardTotal)
	rec.IsReconciled = opts.reconciled(rec.TotalDifference)
	return rec, nil
}

// trackBatchPayments summarises payment runs and lists AP bills that no
// batch processed along with failed batch lines.
func trackBatchPayments(ap, batches *model.Table) (model.BatchPaymentTracking, error) {
	if batches == nil {
		empty := emptyTable(model.BatchPaymentSchema)
		return model.BatchPaymentTracking{Unprocessed: ap.Empty(), Failed: empty}, nil
	}
	if err := batches.RequireColumns(model.BatchPaymentSchema.Required()...); err != nil {
		return model.BatchPaymentTracking{}, errors.Wrap(err, "batch payments")
	}

	var tracking model.BatchPaymentTracking
	for _, g := range batches.GroupBy(colBatchID) {
		id, ok := g.Key[0].AsString()
		if !ok {
			continue
		}
		batch := batches.Subset(g.Rows)
		amounts, _ := batch.Floats(colAmount)
		summary := model.BatchSummary{
			BatchID:      id,
			Count:        len(amounts),
			Total:        batch.Sum(colAmount),
			StatusCounts: map[string]int{},
		}
		for r := 0; r < batch.Len(); r++ {
			if s, ok := batch.Value(r, colStatus).AsString(); ok {
				summary.StatusCounts[s]++
			}
		}
		tracking.Batches = append(tracking.Batches, summary)
	}
	sort.SliceStable(tracking.Batches, func(i, j int) bool {
		return tracking.Batches[i].BatchID < tracking.Batches[j].BatchID
	})

	withStatus := func(s string) *model.Table {
		return batches.Filter(func(r model.Row) bool {
			v, ok := r.Text(colStatus)
			return ok && v == s
		})
	}
	processed := withStatus(batchProcessed).ValueSet(colBillID)
	tracking.Unprocessed = ap.Filter(func(r model.Row) bool {
		return !processed.Contains(r.Get(colBillID))
	})
	tracking.Failed = withStatus(batchFailed)
	return tracking, nil
}

// emptyTable returns a table with the columns of schema and no rows.
func emptyTable(schema model.Schema) *model.Table {
	t, _ := model.NewTable(schema.Columns()...)
	return t
}
