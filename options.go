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

	"github.com/blnkfinance/recon/anomaly"
	"github.com/blnkfinance/recon/model"
	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest balance difference still treated as reconciled.
var DefaultTolerance = decimal.New(1, -6)

// Options carries the inputs every domain reconciliation shares.
// Now is the reference date for all age and maturity computations.
type Options struct {
	Now         time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	Cutoff      *time.Time
	Tolerance   decimal.Decimal
	Keys        model.MatchKeys
	Outliers    anomaly.OutlierDetector
}

// DefaultOptions returns options with the default keys, tolerance and a
// z-score outlier detector.
func DefaultOptions(now time.Time) Options {
	return Options{
		Now:       now,
		Tolerance: DefaultTolerance,
		Keys:      model.DefaultMatchKeys(),
		Outliers:  anomaly.ZScoreDetector(anomaly.DefaultZScoreThreshold),
	}
}

func (o Options) withDefaults() Options {
	if o.Outliers == nil {
		o.Outliers = anomaly.ZScoreDetector(anomaly.DefaultZScoreThreshold)
	}
	if o.Tolerance.IsZero() {
		o.Tolerance = DefaultTolerance
	}
	o.Keys = o.Keys.WithDefaults()
	return o
}

// reconciled reports whether diff is within tolerance.
func (o Options) reconciled(diff decimal.Decimal) bool {
	return diff.Abs().LessThanOrEqual(o.Tolerance)
}
