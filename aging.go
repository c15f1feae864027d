package recon

import (
	"math"
	"sort"
	"time"

	"github.com/blnkfinance/recon/model"
)

// Aging bucket names, in bucket order.
const (
	BucketCurrent = "current"
	Bucket31To60  = "31-60_days"
	Bucket61To90  = "61-90_days"
	BucketOver90  = "over_90_days"
)

// ConcentrationLimit is the share of a total above which a counterparty,
// instrument type or issuer is reported as a high concentration.
const ConcentrationLimit = 0.1

var agingBrackets = []struct {
	name    string
	maxDays int
}{
	{BucketCurrent, 30},
	{Bucket31To60, 60},
	{Bucket61To90, 90},
	{BucketOver90, math.MaxInt},
}

// analyzeAging buckets rows by whole days between dateCol and now. Rows
// without a date fall in no bucket but still count towards the total.
func analyzeAging(t *model.Table, dateCol, amountCol string, now time.Time) model.AgingAnalysis {
	rows := make([][]int, len(agingBrackets))
	for i := 0; i < t.Len(); i++ {
		d, ok := t.Value(i, dateCol).AsTime()
		if !ok {
			continue
		}
		days := model.DaysBetween(d, now)
		for b, bracket := range agingBrackets {
			if days <= bracket.maxDays {
				rows[b] = append(rows[b], i)
				break
			}
		}
	}

	analysis := model.AgingAnalysis{TotalOutstanding: t.Sum(amountCol)}
	for b, bracket := range agingBrackets {
		subset := t.Subset(rows[b])
		analysis.Buckets = append(analysis.Buckets, model.AgingBucket{
			Name:  bracket.name,
			Rows:  subset,
			Total: subset.Sum(amountCol),
		})
	}
	return analysis
}

// analyzeExposure summarises every counterparty in idCol, sorted by id.
// Rows without an id are left out.
func analyzeExposure(t *model.Table, idCol, dateCol, amountCol string) model.ExposureAnalysis {
	total := t.Sum(amountCol)

	var analysis model.ExposureAnalysis
	for _, g := range t.GroupBy(idCol) {
		id, ok := g.Key[0].AsString()
		if !ok {
			continue
		}
		group := t.Subset(g.Rows)
		e := model.Exposure{ID: id, Total: group.Sum(amountCol)}
		amounts, _ := group.Floats(amountCol)
		e.Count = len(amounts)
		for r := 0; r < group.Len(); r++ {
			d, ok := group.Value(r, dateCol).AsTime()
			if !ok {
				continue
			}
			if e.FirstDate.IsZero() || d.Before(e.FirstDate) {
				e.FirstDate = d
			}
			if e.LastDate.IsZero() || d.After(e.LastDate) {
				e.LastDate = d
			}
		}
		e.Trend = "stable"
		if e.LastDate.After(e.FirstDate) {
			e.Trend = "increasing"
		}
		e.Concentration = model.Ratio(e.Total, total)
		analysis.Parties = append(analysis.Parties, e)
	}

	sort.SliceStable(analysis.Parties, func(i, j int) bool {
		return analysis.Parties[i].ID < analysis.Parties[j].ID
	})
	for _, e := range analysis.Parties {
		if e.Concentration > ConcentrationLimit {
			analysis.HighConcentration = append(analysis.HighConcentration, e)
		}
		if e.Count > 1 {
			analysis.MultipleInvoices = append(analysis.MultipleInvoices, e)
		}
	}
	return analysis
}
