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
	"github.com/blnkfinance/recon/anomaly"
	"github.com/blnkfinance/recon/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	colAmount     = "amount"
	colDate       = "date"
	colType       = "type"
	colInvoiceID  = "invoice_id"
	colCustomerID = "customer_id"

	entryWriteOff = "write_off"
	entryAccrued  = "accrued"
)

// ReconcileAR reconciles the accounts receivable subledger against the GL
// receivable account. allowance is optional; without it the write-off
// analysis is empty.
func ReconcileAR(ar, gl, allowance *model.Table, opts Options) (*model.ARResult, error) {
	opts = opts.withDefaults()
	if ar == nil || gl == nil {
		return nil, errors.New("AR reconciliation needs the AR subledger and GL entries")
	}
	if err := ar.RequireColumns(model.ARSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "AR subledger")
	}
	if err := gl.RequireColumns(model.GLARSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "GL receivables")
	}

	cmp, err := compareLedgers(ar, gl, opts.Keys.AR, colAmount, opts)
	if err != nil {
		return nil, errors.Wrap(err, "AR")
	}
	accrued, err := analyzeAccruedEntries(ar, gl, opts.Keys.AR.Match)
	if err != nil {
		return nil, err
	}

	result := &model.ARResult{
		LedgerComparison: cmp,
		Aging:            analyzeAging(ar, colDate, colAmount, opts.Now),
		Customers:        analyzeExposure(ar, colCustomerID, colDate, colAmount),
		WriteOffs:        analyzeWriteOffs(ar, allowance),
		Accrued:          accrued,
	}
	result.Message = ledgerMessage("AR Subledger", "GL AR", cmp)
	return result, nil
}

func ofType(t *model.Table, kind string) *model.Table {
	return t.Filter(func(r model.Row) bool {
		v, ok := r.Text(colType)
		return ok && v == kind
	})
}

// analyzeWriteOffs compares AR write-offs with the allowance for doubtful
// accounts. A write-off is unrecorded when its invoice has no write-off
// entry in the allowance.
func analyzeWriteOffs(ar, allowance *model.Table) model.WriteOffAnalysis {
	writeOffs := ofType(ar, entryWriteOff)
	if allowance == nil {
		return model.WriteOffAnalysis{
			WriteOffs:           writeOffs.Empty(),
			AllowanceBalance:    decimal.Zero,
			UnrecordedWriteOffs: writeOffs.Empty(),
		}
	}

	analysis := model.WriteOffAnalysis{
		WriteOffs:        writeOffs,
		AllowanceBalance: allowance.Sum(colAmount),
	}
	if total := ar.Sum(colAmount); total.IsPositive() {
		analysis.WriteOffRatio = model.Ratio(writeOffs.Sum(colAmount), total)
	}
	recorded := ofType(allowance, entryWriteOff).ValueSet(colInvoiceID)
	analysis.UnrecordedWriteOffs = writeOffs.Filter(func(r model.Row) bool {
		return !recorded.Contains(r.Get(colInvoiceID))
	})
	return analysis
}

// analyzeAccruedEntries matches accrued receivables between the subledger and
// the GL. The impact is the subledger accrual total less the GL's.
func analyzeAccruedEntries(ar, gl *model.Table, keys []string) (model.AccruedEntryAnalysis, error) {
	arAccrued, glAccrued := ofType(ar, entryAccrued), ofType(gl, entryAccrued)
	onlyAR, onlyGL, err := anomaly.FindUnmatched(arAccrued, glAccrued, keys)
	if err != nil {
		return model.AccruedEntryAnalysis{}, errors.Wrap(err, "matching accrued entries")
	}
	return model.AccruedEntryAnalysis{
		AccruedInSubledger: arAccrued,
		AccruedInGL:        glAccrued,
		UnmatchedSubledger: onlyAR,
		UnmatchedGL:        onlyGL,
		Impact:             arAccrued.Sum(colAmount).Sub(glAccrued.Sum(colAmount)),
	}, nil
}
