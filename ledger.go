package recon

import (
	"github.com/blnkfinance/recon/anomaly"
	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
	"github.com/pkg/errors"
)

// compareLedgers runs the checks shared by every subledger-to-GL
// reconciliation: unmatched entries both ways, duplicates and outliers on
// each side, and the balance difference (subledger minus GL) on column.
func compareLedgers(sub, gl *model.Table, keys model.KeySpec, column string, opts Options) (model.LedgerComparison, error) {
	var cmp model.LedgerComparison
	if sub == nil || gl == nil {
		return cmp, reconerr.InvalidArgument("table", "subledger and GL tables are required")
	}

	onlySub, onlyGL, err := anomaly.FindUnmatched(sub, gl, keys.Match)
	if err != nil {
		return cmp, errors.Wrap(err, "matching subledger to GL")
	}
	subDupes, err := anomaly.FindDuplicates(sub, keys.Duplicate)
	if err != nil {
		return cmp, errors.Wrap(err, "subledger duplicates")
	}
	glDupes, err := anomaly.FindDuplicates(gl, keys.Duplicate)
	if err != nil {
		return cmp, errors.Wrap(err, "GL duplicates")
	}
	subOutliers, err := opts.Outliers(sub, column)
	if err != nil {
		return cmp, errors.Wrap(err, "subledger outliers")
	}
	glOutliers, err := opts.Outliers(gl, column)
	if err != nil {
		return cmp, errors.Wrap(err, "GL outliers")
	}

	cmp = model.LedgerComparison{
		OnlyInSubledger:     onlySub,
		OnlyInGL:            onlyGL,
		SubledgerDuplicates: subDupes,
		GLDuplicates:        glDupes,
		SubledgerOutliers:   subOutliers,
		GLOutliers:          glOutliers,
		SubledgerTotal:      sub.Sum(column),
		GLTotal:             gl.Sum(column),
	}
	cmp.BalanceDifference = cmp.SubledgerTotal.Sub(cmp.GLTotal)
	cmp.IsFullyReconciled = opts.reconciled(cmp.BalanceDifference)
	return cmp, nil
}
