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
	"sort"
	"time"

	"github.com/blnkfinance/recon/anomaly"
	"github.com/blnkfinance/recon/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

const (
	colItemID          = "item_id"
	colLocationID      = "location_id"
	colQuantityGL      = "quantity_gl"
	colQuantityCount   = "quantity_count"
	colUnitCost        = "unit_cost"
	colItemCategory    = "item_category"
	colMarketValue     = "market_value"
	colValuationDate   = "valuation_date"
	colTransactionDate = "transaction_date"
	colQuantity        = "quantity"

	statusInTransit = "in_transit"
	uncategorized   = "Uncategorized"
	slowMovingDays  = 180
)

// Discrepancy types of a physical count line.
const (
	CountAboveGL = "Count > GL"
	CountBelowGL = "Count < GL"
	CountMatched = "Matched"
)

var obsolescenceBrackets = []struct {
	name    string
	maxDays int
	factor  float64
}{
	{"0-90 days", 90, 0},
	{"91-180 days", 180, 0.10},
	{"181-365 days", 365, 0.25},
	{">365 days", math.MaxInt, 0.50},
}

var adjustmentColumns = []model.Column{
	{Name: colItemID, Type: model.StringColumn},
	{Name: colLocationID, Type: model.StringColumn},
	{Name: colQuantityGL, Type: model.NumberColumn},
	{Name: colQuantityCount, Type: model.NumberColumn},
	{Name: "quantity_diff", Type: model.NumberColumn},
	{Name: colUnitCost, Type: model.NumberColumn},
	{Name: "value_diff", Type: model.NumberColumn},
	{Name: "discrepancy_type", Type: model.StringColumn},
	{Name: "adjustment_type", Type: model.StringColumn},
	{Name: "adjustment_date", Type: model.TimeColumn},
}

// ReconcileInventory checks GL inventory against physical counts, values it
// for obsolescence and lower of cost or market, and, when opts.Cutoff is set,
// accrues goods still in transit after the cutoff. market and apTxns may be nil.
func ReconcileInventory(glInv, counts, market, apTxns *model.Table, opts Options) (*model.InventoryResult, error) {
	opts = opts.withDefaults()
	if glInv == nil || counts == nil {
		return nil, errors.New("inventory reconciliation needs GL inventory and physical counts")
	}
	if err := glInv.RequireColumns(model.GLInventorySchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "GL inventory")
	}
	if err := counts.RequireColumns(model.PhysicalCountSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "physical counts")
	}
	if market == nil {
		market = emptyTable(model.MarketValueSchema)
	}
	if err := market.RequireColumns(model.MarketValueSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "market values")
	}

	countAnalysis, err := analyzePhysicalCounts(glInv, counts, opts)
	if err != nil {
		return nil, err
	}
	quotes := latestQuotes(market)
	obsolescence, err := analyzeObsolescence(glInv, quotes, opts.Now)
	if err != nil {
		return nil, err
	}
	lcm, err := analyzeLCM(glInv, market, quotes)
	if err != nil {
		return nil, err
	}

	result := &model.InventoryResult{
		TotalGLValue: inventoryValue(glInv),
		Counts:       countAnalysis,
		Obsolescence: obsolescence,
		LCM:          lcm,
	}
	if opts.Cutoff != nil && apTxns != nil {
		cutoff, err := analyzeCutoff(apTxns, *opts.Cutoff)
		if err != nil {
			return nil, err
		}
		result.Cutoff = &cutoff
	}
	result.Message = inventoryMessage(result)
	return result, nil
}

// extended is quantity times unit cost as money.
func extended(qty, cost float64) decimal.Decimal {
	return model.Decimal(qty).Mul(model.Decimal(cost))
}

// inventoryValue is the sum of quantity times unit cost over every GL line.
func inventoryValue(glInv *model.Table) decimal.Decimal {
	total := decimal.Zero
	for i := 0; i < glInv.Len(); i++ {
		r := glInv.RowAt(i)
		qty, okQ := r.Float(colQuantityGL)
		cost, okC := r.Float(colUnitCost)
		if okQ && okC {
			total = total.Add(extended(qty, cost))
		}
	}
	return total
}

type countLine struct {
	key           []model.Value
	glQty         float64
	countQty      float64
	unitCost      float64
	hasCost       bool
	inGL, inCount bool
}

// analyzePhysicalCounts compares counted and booked quantities per item and
// location. A key present on one side only counts as zero on the other.
// Quantities of repeated keys are summed; repeated keys are also reported as
// duplicates.
func analyzePhysicalCounts(glInv, counts *model.Table, opts Options) (model.CountAnalysis, error) {
	keys := opts.Keys.Inventory
	glDupes, err := anomaly.FindDuplicates(glInv, keys.Duplicate)
	if err != nil {
		return model.CountAnalysis{}, errors.Wrap(err, "GL inventory duplicates")
	}
	countDupes, err := anomaly.FindDuplicates(counts, keys.Duplicate)
	if err != nil {
		return model.CountAnalysis{}, errors.Wrap(err, "physical count duplicates")
	}

	var lines []*countLine
	byKey := map[string]*countLine{}
	line := func(r model.Row) *countLine {
		values := make([]model.Value, len(keys.Match))
		for i, k := range keys.Match {
			values[i] = r.Get(k)
		}
		tk := model.TupleKey(values...)
		l, ok := byKey[tk]
		if !ok {
			l = &countLine{key: values}
			byKey[tk] = l
			lines = append(lines, l)
		}
		return l
	}
	for i := 0; i < glInv.Len(); i++ {
		r := glInv.RowAt(i)
		l := line(r)
		l.inGL = true
		if q, ok := r.Float(colQuantityGL); ok {
			l.glQty += q
		}
		if c, ok := r.Float(colUnitCost); ok && !l.hasCost {
			l.unitCost, l.hasCost = c, true
		}
	}
	for i := 0; i < counts.Len(); i++ {
		r := counts.RowAt(i)
		l := line(r)
		l.inCount = true
		if q, ok := r.Float(colQuantityCount); ok {
			l.countQty += q
		}
		if c, ok := r.Float(colUnitCost); ok && !l.hasCost {
			l.unitCost, l.hasCost = c, true
		}
	}

	adjustments, err := model.NewTable(adjustmentColumns...)
	if err != nil {
		return model.CountAnalysis{}, err
	}
	summary := map[string]*model.DiscrepancySummary{}
	analysis := model.CountAnalysis{DuplicateCounts: countDupes, DuplicateGL: glDupes}
	for _, l := range lines {
		diff := l.countQty - l.glQty
		kind := CountMatched
		switch {
		case diff > 0:
			kind = CountAboveGL
		case diff < 0:
			kind = CountBelowGL
		}
		value := decimal.Zero
		if l.hasCost {
			value = extended(diff, l.unitCost)
		}
		s, ok := summary[kind]
		if !ok {
			s = &model.DiscrepancySummary{Type: kind}
			summary[kind] = s
		}
		s.QuantityDiff += diff
		s.ValueDiff = s.ValueDiff.Add(value)
		s.Items++
		analysis.TotalDiscrepancyValue = analysis.TotalDiscrepancyValue.Add(value)

		if diff == 0 {
			continue
		}
		cost := model.Null()
		if l.hasCost {
			cost = model.Num(l.unitCost)
		}
		valueF, _ := value.Float64()
		if err := adjustments.AddRecord(map[string]model.Value{
			colItemID:          lineKey(l, keys.Match, colItemID),
			colLocationID:      lineKey(l, keys.Match, colLocationID),
			colQuantityGL:      present(l.inGL, l.glQty),
			colQuantityCount:   present(l.inCount, l.countQty),
			"quantity_diff":    model.Num(diff),
			colUnitCost:        cost,
			"value_diff":       model.Num(valueF),
			"discrepancy_type": model.Str(kind),
			"adjustment_type":  model.Str("Physical Count Adjustment"),
			"adjustment_date":  model.Date(opts.Now),
		}); err != nil {
			return model.CountAnalysis{}, err
		}
	}

	for _, s := range summary {
		analysis.Summary = append(analysis.Summary, *s)
	}
	sort.Slice(analysis.Summary, func(i, j int) bool { return analysis.Summary[i].Type < analysis.Summary[j].Type })
	analysis.Adjustments = adjustments
	analysis.DiscrepancyCount = adjustments.Len()
	return analysis, nil
}

// lineKey returns the key value named name, or null when it is not a key column.
func lineKey(l *countLine, keys []string, name string) model.Value {
	for i, k := range keys {
		if k == name {
			return l.key[i]
		}
	}
	return model.Null()
}

func present(ok bool, f float64) model.Value {
	if !ok {
		return model.Null()
	}
	return model.Num(f)
}

type quote struct {
	value    float64
	date     time.Time
	category model.Value
}

// latestQuotes keeps one market quote per item: the one with the latest
// valuation date, later rows winning ties.
func latestQuotes(market *model.Table) map[string]quote {
	quotes := map[string]quote{}
	for i := 0; i < market.Len(); i++ {
		r := market.RowAt(i)
		id, ok := r.Text(colItemID)
		if !ok {
			continue
		}
		v, ok := r.Float(colMarketValue)
		if !ok {
			continue
		}
		d, _ := r.Time(colValuationDate)
		if q, seen := quotes[id]; seen && d.Before(q.date) {
			continue
		}
		quotes[id] = quote{value: v, date: d, category: r.Get(colItemCategory)}
	}
	return quotes
}

func quoteFor(quotes map[string]quote, r model.Row) (quote, bool) {
	id, ok := r.Text(colItemID)
	if !ok {
		return quote{}, false
	}
	q, ok := quotes[id]
	return q, ok
}

// analyzeObsolescence ages GL inventory at now and reserves a share of its
// cost per age bracket. Items quoted below cost need a write-down.
func analyzeObsolescence(glInv *model.Table, quotes map[string]quote, now time.Time) (model.ObsolescenceAnalysis, error) {
	var analysis model.ObsolescenceAnalysis
	categories := make([]model.AgeCategory, len(obsolescenceBrackets))
	costs := make([][]float64, len(obsolescenceBrackets))
	for b, bracket := range obsolescenceBrackets {
		categories[b] = model.AgeCategory{Name: bracket.name, Factor: bracket.factor}
	}

	for i := 0; i < glInv.Len(); i++ {
		r := glInv.RowAt(i)
		qty, okQ := r.Float(colQuantityGL)
		cost, okC := r.Float(colUnitCost)
		if d, ok := r.Time(colDate); ok {
			days := model.DaysBetween(d, now)
			for b, bracket := range obsolescenceBrackets {
				if days > bracket.maxDays {
					continue
				}
				c := &categories[b]
				c.Items++
				if okQ {
					c.Quantity += qty
				}
				if okC {
					costs[b] = append(costs[b], cost)
				}
				if okQ && okC {
					allowance := extended(qty, cost).Mul(decimal.NewFromFloat(bracket.factor))
					c.Allowance = c.Allowance.Add(allowance)
					analysis.TotalObsolescence = analysis.TotalObsolescence.Add(allowance)
				}
				break
			}
		}
		if q, ok := quoteFor(quotes, r); ok && okQ && okC && q.value < cost {
			analysis.TotalWriteDown = analysis.TotalWriteDown.Add(extended(qty, cost-q.value))
		}
	}
	for b := range categories {
		if categories[b].Items == 0 {
			continue
		}
		categories[b].MeanUnitCost = mean(costs[b])
		analysis.AgeSummary = append(analysis.AgeSummary, categories[b])
	}

	aged, err := glInv.WithColumn(model.Column{Name: "age_days", Type: model.NumberColumn}, func(r model.Row) model.Value {
		d, ok := r.Time(colDate)
		if !ok {
			return model.Null()
		}
		return model.Num(float64(model.DaysBetween(d, now)))
	})
	if err != nil {
		return analysis, errors.Wrap(err, "aging inventory")
	}
	analysis.SlowMovingItems = aged.Filter(func(r model.Row) bool {
		days, ok := r.Float("age_days")
		return ok && days > slowMovingDays
	}).SortedBy(func(a, b model.Row) bool {
		x, _ := a.Float("age_days")
		y, _ := b.Float("age_days")
		return x > y
	})
	return analysis, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// analyzeLCM values each GL line at the lower of its cost and its latest
// market quote. Lines without a quote need no adjustment.
func analyzeLCM(glInv, market *model.Table, quotes map[string]quote) (model.LCMAnalysis, error) {
	dupes, err := anomaly.FindDuplicates(market, []string{colItemID})
	if err != nil {
		return model.LCMAnalysis{}, errors.Wrap(err, "market value duplicates")
	}

	type bucket struct {
		summary      model.LCMCategory
		costs, marks []float64
	}
	buckets := map[string]*bucket{}
	var below []int
	adjustments := make([]float64, glInv.Len())
	analysis := model.LCMAnalysis{DuplicateQuotes: dupes}

	for i := 0; i < glInv.Len(); i++ {
		r := glInv.RowAt(i)
		q, quoted := quoteFor(quotes, r)

		category := uncategorized
		if c, ok := r.Text(colItemCategory); ok {
			category = c
		} else if c, ok := q.category.AsString(); quoted && ok {
			category = c
		}
		b, ok := buckets[category]
		if !ok {
			b = &bucket{summary: model.LCMCategory{Category: category}}
			buckets[category] = b
		}

		qty, okQ := r.Float(colQuantityGL)
		cost, okC := r.Float(colUnitCost)
		if okQ {
			b.summary.Quantity += qty
		}
		if okC {
			b.costs = append(b.costs, cost)
		}
		if !quoted {
			continue
		}
		b.marks = append(b.marks, q.value)
		if okQ && okC && q.value < cost {
			adj := extended(qty, q.value-cost)
			b.summary.Adjustment = b.summary.Adjustment.Add(adj)
			analysis.TotalAdjustment = analysis.TotalAdjustment.Add(adj)
			adjustments[i], _ = adj.Float64()
			below = append(below, i)
		}
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := buckets[name]
		b.summary.MeanUnitCost = mean(b.costs)
		b.summary.MeanMarketValue = mean(b.marks)
		analysis.Summary = append(analysis.Summary, b.summary)
	}

	withMarket, err := glInv.Subset(below).WithColumn(model.Column{Name: colMarketValue, Type: model.NumberColumn}, func(r model.Row) model.Value {
		q, _ := quoteFor(quotes, r)
		return model.Num(q.value)
	})
	if err != nil {
		return analysis, errors.Wrap(err, "items below cost")
	}
	withAdjustment, err := withMarket.WithColumn(model.Column{Name: "lcm_adjustment", Type: model.NumberColumn}, func(r model.Row) model.Value {
		return model.Num(adjustments[below[r.Index()]])
	})
	if err != nil {
		return analysis, errors.Wrap(err, "items below cost")
	}
	analysis.ItemsBelowCost = withAdjustment.SortedBy(func(a, b model.Row) bool {
		x, _ := a.Float("lcm_adjustment")
		y, _ := b.Float("lcm_adjustment")
		return x < y
	})
	return analysis, nil
}

// analyzeCutoff accrues AP receipts dated after cutoff that are still in
// transit, per vendor.
func analyzeCutoff(apTxns *model.Table, cutoff time.Time) (model.CutoffAnalysis, error) {
	if err := apTxns.RequireColumns(model.APTransactionSchema.Required()...); err != nil {
		return model.CutoffAnalysis{}, errors.Wrap(err, "AP transactions")
	}
	inTransit := apTxns.Filter(func(r model.Row) bool {
		d, okD := r.Time(colTransactionDate)
		s, okS := r.Text(colStatus)
		return okD && okS && d.After(cutoff) && s == statusInTransit
	})
	items, err := inTransit.WithColumn(model.Column{Name: "accrual_amount", Type: model.NumberColumn}, func(r model.Row) model.Value {
		qty, okQ := r.Float(colQuantity)
		cost, okC := r.Float(colUnitCost)
		if !okQ || !okC {
			return model.Null()
		}
		return model.Num(qty * cost)
	})
	if err != nil {
		return model.CutoffAnalysis{}, errors.Wrap(err, "in-transit accruals")
	}

	analysis := model.CutoffAnalysis{CutoffDate: cutoff}
	for _, g := range items.GroupBy(colVendorID) {
		vendor, ok := g.Key[0].AsString()
		if !ok {
			continue
		}
		rows := items.Subset(g.Rows)
		qty, _ := rows.Floats(colQuantity)
		v := model.VendorAccrual{VendorID: vendor, Accrual: rows.Sum("accrual_amount")}
		for _, q := range qty {
			v.Quantity += q
		}
		analysis.ByVendor = append(analysis.ByVendor, v)
	}
	sort.SliceStable(analysis.ByVendor, func(i, j int) bool { return analysis.ByVendor[i].VendorID < analysis.ByVendor[j].VendorID })
	analysis.TotalAccrual = items.Sum("accrual_amount")
	analysis.InTransitItems = items.SortedBy(func(a, b model.Row) bool {
		x, _ := a.Time(colTransactionDate)
		y, _ := b.Time(colTransactionDate)
		return x.Before(y)
	})
	return analysis, nil
}
