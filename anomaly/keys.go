package anomaly

import (
	"github.com/blnkfinance/recon/model"
	"github.com/blnkfinance/recon/reconerr"
)

// keyIndex resolves key column names to positions in t.
func keyIndex(t *model.Table, keys []string) ([]int, error) {
	if len(keys) == 0 {
		return nil, reconerr.InvalidKey("", "key column list is empty")
	}
	idx := make([]int, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for i, k := range keys {
		if _, dup := seen[k]; dup {
			return nil, reconerr.InvalidKey(k, "key column listed more than once")
		}
		seen[k] = struct{}{}
		idx[i] = t.ColumnIndex(k)
		if idx[i] < 0 {
			return nil, reconerr.InvalidKey(k, "key column is missing")
		}
	}
	return idx, nil
}

// pairedKeyIndex resolves keys in both tables and checks the key columns
// carry the same type on each side.
func pairedKeyIndex(a, b *model.Table, keys []string) ([]int, []int, error) {
	ia, err := keyIndex(a, keys)
	if err != nil {
		return nil, nil, err
	}
	ib, err := keyIndex(b, keys)
	if err != nil {
		return nil, nil, err
	}
	for _, k := range keys {
		ca, _ := a.Column(k)
		cb, _ := b.Column(k)
		if ca.Type != cb.Type {
			return nil, nil, reconerr.TypeMismatch(k, "key column is %s on one side and %s on the other", ca.Type, cb.Type)
		}
	}
	return ia, ib, nil
}

// tupleKey encodes the key tuple of one row.
func tupleKey(t *model.Table, row int, idx []int) string {
	values := make([]model.Value, len(idx))
	for i, c := range idx {
		values[i] = t.At(row, c)
	}
	return model.TupleKey(values...)
}
