package anomaly

import (
	"math"

	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
	"gonum.org/v1/gonum/stat"
)

// FindOutliersZScore flags rows whose value lies more than threshold sample
// standard deviations from the column mean.
//
// Null values are left out of both the statistics and the result. With fewer
// than two values, identical values, or a standard deviation that is zero or
// not finite, no row is flagged whatever the threshold.
func FindOutliersZScore(t *model.Table, column string, threshold float64) (*model.Table, error) {
	if t == nil {
		return nil, reconerr.InvalidArgument("table", "table is nil")
	}
	if math.IsNaN(threshold) {
		return nil, reconerr.InvalidArgument("threshold", "threshold is NaN")
	}
	if t.Len() == 0 {
		return t.Empty(), nil
	}
	if err := numericColumn(t, column); err != nil {
		return nil, err
	}

	values, rows := finiteValues(t, column)
	if len(values) < 2 || constant(values) {
		return t.Empty(), nil
	}

	mean, std := stat.MeanStdDev(values, nil)
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return t.Empty(), nil
	}

	var flagged []int
	for i, v := range values {
		if math.Abs(v-mean)/std > threshold {
			flagged = append(flagged, rows[i])
		}
	}
	return t.Subset(flagged), nil
}
