package anomaly

import (
	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
)

// FindDuplicates returns every row whose key tuple occurs at least twice in t.
// All members of a colliding group are returned, not only the later copies.
func FindDuplicates(t *model.Table, keys []string) (*model.Table, error) {
	if t == nil {
		return nil, reconerr.InvalidArgument("table", "table is nil")
	}
	if t.Len() == 0 {
		return t.Empty(), nil
	}

	idx, err := keyIndex(t, keys)
	if err != nil {
		return nil, err
	}

	tuples := make([]string, t.Len())
	counts := make(map[string]int, t.Len())
	for r := range tuples {
		tuples[r] = tupleKey(t, r, idx)
		counts[tuples[r]]++
	}

	var rows []int
	for r, k := range tuples {
		if counts[k] > 1 {
			rows = append(rows, r)
		}
	}
	return t.Subset(rows), nil
}
