package anomaly

import (
	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
)

// FindUnmatched compares two tables on the key columns and returns the rows of
// a whose key tuple never occurs in b, and the rows of b whose key tuple never
// occurs in a.
//
// Matching is exact and typed: no tolerance, no coercion between kinds. Nulls
// in key columns match other nulls. A key tuple repeated within one table is
// tested row by row, so duplication on one side never hides a match.
//
// When either table has no rows both results are empty. Otherwise every key
// column must exist in both tables with the same type.
func FindUnmatched(a, b *model.Table, keys []string) (onlyInA, onlyInB *model.Table, err error) {
	if a == nil || b == nil {
		return nil, nil, reconerr.InvalidArgument("table", "table is nil")
	}
	if a.Len() == 0 || b.Len() == 0 {
		return a.Empty(), b.Empty(), nil
	}

	ia, ib, err := pairedKeyIndex(a, b, keys)
	if err != nil {
		return nil, nil, err
	}

	inA := keySet(a, ia)
	inB := keySet(b, ib)

	return a.Subset(missingFrom(a, ia, inB)), b.Subset(missingFrom(b, ib, inA)), nil
}

func keySet(t *model.Table, idx []int) map[string]struct{} {
	set := make(map[string]struct{}, t.Len())
	for r := 0; r < t.Len(); r++ {
		set[tupleKey(t, r, idx)] = struct{}{}
	}
	return set
}

func missingFrom(t *model.Table, idx []int, other map[string]struct{}) []int {
	var rows []int
	for r := 0; r < t.Len(); r++ {
		if _, ok := other[tupleKey(t, r, idx)]; !ok {
			rows = append(rows, r)
		}
	}
	return rows
}
