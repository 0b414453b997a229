// Package archive computes incremental "new vs. retained" row sets across
// snapshots: the current batch always wins on a key match, and prior rows
// survive only when their key is absent from everything accumulated so far.
package archive

import (
	"lakemerge/internal/domain"
	"lakemerge/internal/fingerprint"
	"lakemerge/internal/table"
	"lakemerge/internal/unify"
)

// DiffOne returns current unioned with the subset of previous whose key
// values do not appear in current (anti-join on keys). This is not an
// upsert: a previous row matching a current key is dropped entirely, even
// when its non-key content differs. The union goes through superset-by-name
// semantics, so the two sides may carry different schemas.
func DiffOne(current, previous *table.Table, keys []string) (*table.Table, error) {
	if err := checkKeys(current, keys, "current"); err != nil {
		return nil, err
	}
	if err := checkKeys(previous, keys, "previous"); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, current.NumRows())
	for r := 0; r < current.NumRows(); r++ {
		seen[fingerprint.KeyString(current, current.Row(r), keys)] = struct{}{}
	}
	retained := previous.Filter(func(row []any) bool {
		_, hit := seen[fingerprint.KeyString(previous, row, keys)]
		return !hit
	})

	out, _, err := unify.UnionByName([]*table.Table{current, retained}, unify.FirstWins)
	return out, err
}

// DiffMany folds DiffOne over previousList left to right: each step's result
// becomes the current side of the next. The final result is current plus
// every prior row whose key is absent from everything accumulated before it.
// Fold order is significant and preserved.
func DiffMany(current *table.Table, previousList []*table.Table, keys []string) (*table.Table, error) {
	out := current
	for _, prev := range previousList {
		next, err := DiffOne(out, prev, keys)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func checkKeys(t *table.Table, keys []string, side string) error {
	if len(keys) == 0 {
		return domain.ErrMergeKey("diff requires at least one key")
	}
	for _, k := range keys {
		if !t.HasColumn(k) {
			return domain.ErrMergeKey("key %q not present in %s schema", k, side)
		}
	}
	return nil
}
