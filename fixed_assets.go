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
	"time"

	"github.com/blnkfinance/recon/model"
	"github.com/pkg/errors"
)

const colTransactionType = "transaction_type"

// Roll-forward movement names.
const (
	MovementAdditions   = "additions"
	MovementDisposals   = "disposals"
	MovementRetirements = "retirements"
	MovementSales       = "sales"
)

var assetMovements = []struct {
	name    string
	txnType string
}{
	{MovementAdditions, "purchase"},
	{MovementDisposals, "disposal"},
	{MovementRetirements, "retirement"},
	{MovementSales, "sale"},
}

var movementLabels = map[string]string{
	MovementAdditions:   "Additions",
	MovementDisposals:   "Disposals",
	MovementRetirements: "Retirements",
	MovementSales:       "Sales",
}

// period is an inclusive date range. A zero bound leaves that side open.
type period struct {
	start, end time.Time
}

func (p period) before(d time.Time) bool { return !p.start.IsZero() && d.Before(p.start) }

func (p period) notAfterEnd(d time.Time) bool { return p.end.IsZero() || !d.After(p.end) }

func (p period) contains(d time.Time) bool { return !p.before(d) && p.notAfterEnd(d) }

func (o Options) period() period { return period{start: o.PeriodStart, end: o.PeriodEnd} }

// dated keeps the rows whose dateCol satisfies keep.
func dated(t *model.Table, dateCol string, keep func(time.Time) bool) *model.Table {
	return t.Filter(func(r model.Row) bool {
		d, ok := r.Time(dateCol)
		return ok && keep(d)
	})
}

// ReconcileFixedAssets reconciles the fixed asset register against GL asset
// entries over the period in opts, and rolls the GL balance forward through
// the period's movements. depreciation may be nil.
//
// The balance difference compares the register total with the GL ending
// balance, not the full GL total.
func ReconcileFixedAssets(register, gl, depreciation *model.Table, opts Options) (*model.FixedAssetsResult, error) {
	opts = opts.withDefaults()
	if register == nil || gl == nil {
		return nil, errors.New("fixed asset reconciliation needs the asset register and GL entries")
	}
	if err := register.RequireColumns(model.FixedAssetSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "fixed asset register")
	}
	if err := gl.RequireColumns(model.GLFixedAssetSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "GL fixed assets")
	}
	if depreciation != nil {
		if err := depreciation.RequireColumns(model.DepreciationSchema.Required()...); err != nil {
			return nil, errors.Wrap(err, "GL depreciation")
		}
	}

	cmp, err := compareLedgers(register, gl, opts.Keys.FixedAssets, colAmount, opts)
	if err != nil {
		return nil, errors.Wrap(err, "fixed assets")
	}

	p := opts.period()
	result := &model.FixedAssetsResult{
		BeginningBalance: dated(gl, colDate, p.before).Sum(colAmount),
		EndingBalance:    dated(gl, colDate, p.notAfterEnd).Sum(colAmount),
		Movements:        analyzeAssetMovements(gl, p),
		Depreciation:     analyzeDepreciation(register, depreciation, p),
	}
	cmp.GLTotal = result.EndingBalance
	cmp.BalanceDifference = cmp.SubledgerTotal.Sub(cmp.GLTotal)
	cmp.IsFullyReconciled = opts.reconciled(cmp.BalanceDifference)
	result.LedgerComparison = cmp
	result.Message = fixedAssetsMessage(result)
	return result, nil
}

func analyzeAssetMovements(gl *model.Table, p period) []model.AssetMovement {
	inPeriod := dated(gl, colDate, p.contains)
	movements := make([]model.AssetMovement, 0, len(assetMovements))
	for _, m := range assetMovements {
		rows := inPeriod.Filter(func(r model.Row) bool {
			t, ok := r.Text(colTransactionType)
			return ok && t == m.txnType
		})
		movements = append(movements, model.AssetMovement{Type: m.name, Rows: rows, Total: rows.Sum(colAmount)})
	}
	return movements
}

// analyzeDepreciation totals depreciation booked in the period and up to its
// end. Net book value is the register cost less accumulated depreciation.
func analyzeDepreciation(register, depreciation *model.Table, p period) model.DepreciationAnalysis {
	if depreciation == nil {
		return model.DepreciationAnalysis{
			NetBookValue: register.Sum(colAmount),
			Entries:      emptyTable(model.DepreciationSchema),
		}
	}
	current := dated(depreciation, colDate, p.contains)
	accumulated := dated(depreciation, colDate, p.notAfterEnd).Sum(colAmount)
	return model.DepreciationAnalysis{
		CurrentDepreciation:     current.Sum(colAmount),
		AccumulatedDepreciation: accumulated,
		NetBookValue:            register.Sum(colAmount).Sub(accumulated),
		Entries:                 current,
	}
}

