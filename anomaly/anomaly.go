// Package anomaly holds the matching primitives every reconciliation is built
// from: unmatched-entry detection, duplicate detection and outlier detection.
//
// All functions are pure. They never modify their input tables and always
// return new tables that are row subsets of an input, with the same columns
// and the original row order.
package anomaly

import (
	"math"

	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
)

const (
	DefaultZScoreThreshold = 3.0
	DefaultContamination   = 0.1
)

// OutlierDetector flags anomalous rows of a table on one numeric column.
type OutlierDetector func(t *model.Table, column string) (*model.Table, error)

// ZScoreDetector returns a detector that calls FindOutliersZScore with threshold.
func ZScoreDetector(threshold float64) OutlierDetector {
	return func(t *model.Table, column string) (*model.Table, error) {
		return FindOutliersZScore(t, column, threshold)
	}
}

// DensityDetector returns a detector that calls FindOutliersDensity with contamination.
func DensityDetector(contamination float64) OutlierDetector {
	return func(t *model.Table, column string) (*model.Table, error) {
		return FindOutliersDensity(t, column, contamination)
	}
}

// numericColumn checks that column exists in t and holds numbers.
func numericColumn(t *model.Table, column string) error {
	c, ok := t.Column(column)
	if !ok {
		return reconerr.InvalidColumn(column, "value column is missing")
	}
	if c.Type != model.NumberColumn {
		return reconerr.TypeMismatch(column, "value column must be numeric, got %s", c.Type)
	}
	return nil
}

// finiteValues returns the usable numbers of column with their row indices.
// Nulls, NaN and infinities are dropped.
func finiteValues(t *model.Table, column string) ([]float64, []int) {
	values, rows := t.Floats(column)
	keptValues := values[:0:0]
	keptRows := rows[:0:0]
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		keptValues = append(keptValues, v)
		keptRows = append(keptRows, rows[i])
	}
	return keptValues, keptRows
}

// constant reports whether every value is the same.
func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
