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
)

const (
	colInvestmentID   = "investment_id"
	colInstrumentType = "instrument_type"
	colIssuer         = "issuer"
	colPurchaseDate   = "purchase_date"
	colMaturityDate   = "maturity_date"
	colDaysToMaturity = "days_to_maturity"

	// MaxMaturityDays is the longest remaining term of a cash equivalent.
	MaxMaturityDays = 90

	Compliant    = "Compliant"
	NonCompliant = "Non-Compliant"
)

// ReconcileCashEquivalents ties GL cash equivalents to broker statements and
// checks the investment book against the 90 day maturity rule and the
// concentration limit.
func ReconcileCashEquivalents(gl, broker, investments *model.Table, opts Options) (*model.CashEquivalentsResult, error) {
	opts = opts.withDefaults()
	if gl == nil || broker == nil || investments == nil {
		return nil, errors.New("cash equivalents reconciliation needs GL entries, broker statements and investment details")
	}
	if err := gl.RequireColumns(model.GLCashEquivalentSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "GL cash equivalents")
	}
	if err := broker.RequireColumns(model.BrokerStatementSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "broker statements")
	}
	if err := investments.RequireColumns(model.InvestmentSchema.Required()...); err != nil {
		return nil, errors.Wrap(err, "investment details")
	}

	maturity, err := validateMaturities(investments, opts.Now)
	if err != nil {
		return nil, err
	}
	values, err := analyzeMarketValues(gl, broker, opts.Keys.CashEquivalents.Match)
	if err != nil {
		return nil, err
	}
	dupes, err := anomaly.FindDuplicates(investments, opts.Keys.CashEquivalents.Duplicate)
	if err != nil {
		return nil, errors.Wrap(err, "duplicate investments")
	}

	result := &model.CashEquivalentsResult{
		Maturity:             maturity,
		MarketValues:         values,
		Yields:               analyzeYields(investments, broker),
		Concentration:        analyzeConcentration(investments),
		DuplicateInvestments: dupes,
	}
	result.ComplianceStatus = NonCompliant
	if maturity.CompliantAmount.Equal(maturity.TotalAmount) && result.Concentration.IsCompliant {
		result.ComplianceStatus = Compliant
	}
	result.Message = cashEquivalentsMessage(result)
	return result, nil
}

// validateMaturities flags investments maturing more than 90 days after now.
// Investments without a maturity date are neither compliant nor flagged.
func validateMaturities(investments *model.Table, now time.Time) (model.MaturityValidation, error) {
	withDays, err := investments.WithColumn(model.Column{Name: colDaysToMaturity, Type: model.NumberColumn}, func(r model.Row) model.Value {
		d, ok := r.Time(colMaturityDate)
		if !ok {
			return model.Null()
		}
		return model.Num(float64(model.DaysBetween(now, d)))
	})
	if err != nil {
		return model.MaturityValidation{}, errors.Wrap(err, "days to maturity")
	}
	within := func(compliant bool) *model.Table {
		return withDays.Filter(func(r model.Row) bool {
			days, ok := r.Float(colDaysToMaturity)
			return ok && (days <= MaxMaturityDays) == compliant
		})
	}

	validation := model.MaturityValidation{
		NonCompliant:    within(false),
		TotalAmount:     investments.Sum(colAmount),
		CompliantAmount: within(true).Sum(colAmount),
	}
	for _, g := range sortedGroups(withDays, colInstrumentType) {
		rows := withDays.Subset(g.rows)
		amounts, _ := rows.Floats(colAmount)
		days, _ := rows.Floats(colDaysToMaturity)
		s := model.TypeSummary{Type: g.name, Count: len(amounts), Amount: rows.Sum(colAmount), MeanDays: mean(days)}
		for i, d := range days {
			if i == 0 || int(d) > s.MaxDays {
				s.MaxDays = int(d)
			}
		}
		validation.ByType = append(validation.ByType, s)
	}
	return validation, nil
}

type namedGroup struct {
	name string
	rows []int
}

// sortedGroups groups rows by a string column, sorted by value. Rows with a
// null value are left out.
func sortedGroups(t *model.Table, col string) []namedGroup {
	var groups []namedGroup
	for _, g := range t.GroupBy(col) {
		if name, ok := g.Key[0].AsString(); ok {
			groups = append(groups, namedGroup{name: name, rows: g.Rows})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].name < groups[j].name })
	return groups
}

type valuation struct {
	kind           string
	book, market   decimal.Decimal
	hasBook        bool
	hasMarket      bool
	bookF, marketF float64
}

// analyzeMarketValues outer-joins GL book values with broker market values on
// keys. Unrealized gain or loss and returns only count where both sides exist.
func analyzeMarketValues(gl, broker *model.Table, keys []string) (model.MarketValueAnalysis, error) {
	onlyGL, onlyBroker, err := anomaly.FindUnmatched(gl, broker, keys)
	if err != nil {
		return model.MarketValueAnalysis{}, errors.Wrap(err, "matching GL to broker statements")
	}

	byKey := map[string][]int{}
	for i := 0; i < broker.Len(); i++ {
		k := rowKey(broker.RowAt(i), keys)
		byKey[k] = append(byKey[k], i)
	}
	matched := map[int]bool{}
	var rows []valuation
	for i := 0; i < gl.Len(); i++ {
		r := gl.RowAt(i)
		v := valuation{}
		v.bookF, v.hasBook = r.Float(colAmount)
		v.kind, _ = r.Text(colInstrumentType)
		hits := byKey[rowKey(r, keys)]
		if len(hits) == 0 {
			rows = append(rows, v)
			continue
		}
		for _, b := range hits {
			matched[b] = true
			m := v
			m.marketF, m.hasMarket = broker.RowAt(b).Float(colMarketValue)
			if m.kind == "" {
				m.kind, _ = broker.RowAt(b).Text(colInstrumentType)
			}
			rows = append(rows, m)
		}
	}
	for i := 0; i < broker.Len(); i++ {
		if matched[i] {
			continue
		}
		v := valuation{}
		v.marketF, v.hasMarket = broker.RowAt(i).Float(colMarketValue)
		v.kind, _ = broker.RowAt(i).Text(colInstrumentType)
		rows = append(rows, v)
	}

	analysis := model.MarketValueAnalysis{UnmatchedGL: onlyGL, UnmatchedBroker: onlyBroker}
	type acc struct {
		summary model.MarketTypeSummary
		returns []float64
	}
	byType := map[string]*acc{}
	for _, v := range rows {
		v.hasBook = v.hasBook && finite(v.bookF)
		v.hasMarket = v.hasMarket && finite(v.marketF)
		if v.hasBook {
			v.book = model.Decimal(v.bookF)
		}
		if v.hasMarket {
			v.market = model.Decimal(v.marketF)
		}
		analysis.TotalBookValue = analysis.TotalBookValue.Add(v.book)
		analysis.TotalMarketValue = analysis.TotalMarketValue.Add(v.market)

		var a *acc
		if v.kind != "" {
			if a = byType[v.kind]; a == nil {
				a = &acc{summary: model.MarketTypeSummary{Type: v.kind}}
				byType[v.kind] = a
			}
			a.summary.BookValue = a.summary.BookValue.Add(v.book)
			a.summary.MarketValue = a.summary.MarketValue.Add(v.market)
		}
		if !v.hasBook || !v.hasMarket {
			continue
		}
		gain := v.market.Sub(v.book)
		analysis.TotalUnrealizedGainLoss = analysis.TotalUnrealizedGainLoss.Add(gain)
		if a != nil {
			a.summary.UnrealizedGainLoss = a.summary.UnrealizedGainLoss.Add(gain)
			if !v.book.IsZero() {
				a.returns = append(a.returns, model.Ratio(gain, v.book))
			}
		}
	}
	analysis.TotalReturn = model.Ratio(analysis.TotalUnrealizedGainLoss, analysis.TotalBookValue)

	kinds := make([]string, 0, len(byType))
	for k := range byType {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		a := byType[k]
		a.summary.MeanReturn = mean(a.returns)
		analysis.ByType = append(analysis.ByType, a.summary)
	}
	return analysis, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// analyzeYields annualizes each investment's return against its latest
// broker quote over the days from purchase to maturity. Investments without a
// quote, a book value or a positive holding period have no yield.
func analyzeYields(investments, broker *model.Table) model.YieldAnalysis {
	latest := map[string]float64{}
	dates := map[string]time.Time{}
	for i := 0; i < broker.Len(); i++ {
		r := broker.RowAt(i)
		id, okID := r.Text(colInvestmentID)
		v, okV := r.Float(colMarketValue)
		if !okID || !okV {
			continue
		}
		d, _ := r.Time(colDate)
		if prev, seen := dates[id]; seen && d.Before(prev) {
			continue
		}
		latest[id], dates[id] = v, d
	}

	yieldOf := func(r model.Row) (float64, bool) {
		id, _ := r.Text(colInvestmentID)
		market, ok := latest[id]
		book, okB := r.Float(colAmount)
		purchased, okP := r.Time(colPurchaseDate)
		matures, okM := r.Time(colMaturityDate)
		if !ok || !okB || !okP || !okM || book == 0 {
			return 0, false
		}
		holding := model.DaysBetween(purchased, matures)
		if holding <= 0 {
			return 0, false
		}
		y := (market - book) / book * (365 / float64(holding))
		return y, finite(y)
	}

	var analysis model.YieldAnalysis
	var all []float64
	for _, g := range sortedGroups(investments, colInstrumentType) {
		rows := investments.Subset(g.rows)
		s := model.YieldSummary{Type: g.name, Amount: rows.Sum(colAmount)}
		var ys []float64
		for i := 0; i < rows.Len(); i++ {
			if y, ok := yieldOf(rows.RowAt(i)); ok {
				ys = append(ys, y)
			}
		}
		s.Mean, s.Min, s.Max = summarize(ys)
		all = append(all, ys...)
		analysis.ByType = append(analysis.ByType, s)
	}
	analysis.AverageYield, analysis.LowestYield, analysis.HighestYield = summarize(all)
	return analysis
}

// summarize returns the mean, minimum and maximum of xs, all zero when empty.
func summarize(xs []float64) (avg, lo, hi float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return mean(xs), lo, hi
}

// analyzeConcentration reports each instrument type's and issuer's share of
// the total investment amount.
func analyzeConcentration(investments *model.Table) model.ConcentrationAnalysis {
	total := investments.Sum(colAmount)
	shares := func(col string) (all, high []model.Share) {
		for _, g := range sortedGroups(investments, col) {
			rows := investments.Subset(g.rows)
			amounts, _ := rows.Floats(colAmount)
			s := model.Share{Name: g.name, Amount: rows.Sum(colAmount), Count: len(amounts)}
			s.Concentration = model.Ratio(s.Amount, total)
			all = append(all, s)
			if s.Concentration > ConcentrationLimit {
				high = append(high, s)
			}
		}
		return all, high
	}

	var c model.ConcentrationAnalysis
	c.ByInstrumentType, c.HighConcentrationTypes = shares(colInstrumentType)
	c.ByIssuer, c.HighConcentrationIssuers = shares(colIssuer)
	c.IsCompliant = len(c.HighConcentrationTypes) == 0 && len(c.HighConcentrationIssuers) == 0
	return c
}
