// Package merge implements the hash-based SCD1 upsert: candidate rows are
// keyed by business key and compared to the destination by row hash, so
// unchanged rows are never rewritten and destination rows are never deleted.
package merge

import (
	"context"
	"fmt"
	"log/slog"

	"lakemerge/internal/domain"
	"lakemerge/internal/fingerprint"
	"lakemerge/internal/reconcile"
	"lakemerge/internal/table"
)

// Merger merges candidate batches into persisted destination tables through
// the store boundary. Concurrent merges against the same destination must be
// serialized by the caller.
type Merger struct {
	store  domain.TableStore
	logger *slog.Logger
}

// NewMerger creates a Merger.
func NewMerger(store domain.TableStore, logger *slog.Logger) *Merger {
	return &Merger{store: store, logger: logger}
}

// Merge upserts candidate into dest keyed by keys:
//
//   - destination absent: dest is created from the fingerprinted candidate.
//   - key match, hash differs: the destination row is overwritten whole with
//     the candidate's row.
//   - key match, hash equal: no-op.
//   - no key match: the candidate row is inserted.
//   - destination rows with no candidate match are never touched.
//
// A candidate lacking the hash column is fingerprinted over every column not
// named in exclude. When keys are not unique within candidate, the last row
// in batch order wins for each key — duplicates earlier in the batch are
// discarded before the join so the outcome never depends on map iteration
// order.
func (m *Merger) Merge(ctx context.Context, candidate *table.Table, dest domain.Destination, keys, exclude []string) (domain.RunStats, error) {
	var stats domain.RunStats
	if err := checkKeys(candidate, keys, "candidate"); err != nil {
		return stats, err
	}

	candidate, err := fingerprint.WithFingerprint(candidate, exclude)
	if err != nil {
		return stats, fmt.Errorf("fingerprint candidate: %w", err)
	}
	candidate = dedupeLastWins(candidate, keys)

	exists, err := m.store.DestinationExists(ctx, dest)
	if err != nil {
		return stats, fmt.Errorf("check destination %s: %w", dest, err)
	}
	if !exists {
		if err := m.store.WriteTable(ctx, candidate, dest, domain.WriteModeCreate); err != nil {
			return stats, fmt.Errorf("create destination %s: %w", dest, err)
		}
		stats.Inserted = int64(candidate.NumRows())
		stats.RowsWritten = int64(candidate.NumRows())
		m.logger.Info("destination created",
			"destination", dest.String(),
			"rows", candidate.NumRows(),
		)
		return stats, nil
	}

	existing, err := m.store.ReadTable(ctx, dest)
	if err != nil {
		return stats, fmt.Errorf("read destination %s: %w", dest, err)
	}
	if err := checkKeys(existing, keys, "destination"); err != nil {
		return stats, err
	}
	existing, err = fingerprint.WithFingerprint(existing, nil)
	if err != nil {
		return stats, fmt.Errorf("fingerprint destination: %w", err)
	}

	// Project the candidate onto the destination's shape so a row-for-row
	// overwrite is well-defined even when the batch carries extra columns.
	// When the projection changes the hashed column set or order, the carried
	// hash no longer describes the row that will be stored — a stale hash
	// would make content-identical rows look changed on every delivery.
	reshaped := !sameColumns(candidate.Schema(), existing.Schema())
	candidate, err = reconcile.ReconcileSoft(candidate, existing.Schema())
	if err != nil {
		return stats, err
	}
	if reshaped {
		candidate, err = fingerprint.Recompute(candidate, exclude)
		if err != nil {
			return stats, fmt.Errorf("refingerprint candidate: %w", err)
		}
	}

	merged, stats, err := apply(existing, candidate, keys)
	if err != nil {
		return stats, err
	}

	if stats.Inserted == 0 && stats.Updated == 0 {
		m.logger.Info("merge is a no-op", "destination", dest.String(), "unchanged", stats.Unchanged)
		return stats, nil
	}
	if err := m.store.WriteTable(ctx, merged, dest, domain.WriteModeOverwrite); err != nil {
		return stats, fmt.Errorf("write destination %s: %w", dest, err)
	}
	stats.RowsWritten = int64(merged.NumRows())
	m.logger.Info("merge complete",
		"destination", dest.String(),
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
	)
	return stats, nil
}

// apply computes the merged row set: all destination rows (updated in place
// on a hash mismatch) followed by candidate rows with unseen keys.
func apply(existing, candidate *table.Table, keys []string) (*table.Table, domain.RunStats, error) {
	var stats domain.RunStats

	byKey := make(map[string]int, existing.NumRows())
	for r := 0; r < existing.NumRows(); r++ {
		byKey[fingerprint.KeyString(existing, existing.Row(r), keys)] = r
	}

	hashIdx := existing.Schema().Index(fingerprint.Column)
	candHashIdx := candidate.Schema().Index(fingerprint.Column)
	if hashIdx < 0 || candHashIdx < 0 {
		return nil, stats, domain.ErrMergeKey("hash column %q missing after fingerprinting", fingerprint.Column)
	}

	rows := make([][]any, existing.NumRows(), existing.NumRows()+candidate.NumRows())
	for r := 0; r < existing.NumRows(); r++ {
		rows[r] = existing.Row(r)
	}

	for r := 0; r < candidate.NumRows(); r++ {
		row := candidate.Row(r)
		key := fingerprint.KeyString(candidate, row, keys)
		pos, hit := byKey[key]
		if !hit {
			rows = append(rows, row)
			stats.Inserted++
			continue
		}
		if existing.Row(pos)[hashIdx] == row[candHashIdx] {
			stats.Unchanged++
			continue
		}
		rows[pos] = row
		stats.Updated++
	}

	merged, err := table.New(existing.Schema(), rows)
	if err != nil {
		return nil, stats, err
	}
	return merged, stats, nil
}

// dedupeLastWins keeps, for each key value, only the last row in batch
// order. Surviving rows keep their relative order.
func dedupeLastWins(t *table.Table, keys []string) *table.Table {
	last := make(map[string]int, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		last[fingerprint.KeyString(t, t.Row(r), keys)] = r
	}
	if len(last) == t.NumRows() {
		return t
	}
	r := -1
	return t.Filter(func(row []any) bool {
		r++
		return last[fingerprint.KeyString(t, row, keys)] == r
	})
}

// sameColumns reports whether the two schemas carry the same column names in
// the same order, ignoring the hash column: the fingerprint covers columns
// in schema order, so both membership and position matter.
func sameColumns(a, b table.Schema) bool {
	an, bn := nonHashNames(a), nonHashNames(b)
	if len(an) != len(bn) {
		return false
	}
	for i := range an {
		if an[i] != bn[i] {
			return false
		}
	}
	return true
}

func nonHashNames(s table.Schema) []string {
	names := make([]string, 0, len(s))
	for _, f := range s {
		if f.Name != fingerprint.Column {
			names = append(names, f.Name)
		}
	}
	return names
}

func checkKeys(t *table.Table, keys []string, side string) error {
	if len(keys) == 0 {
		return domain.ErrMergeKey("merge requires at least one key")
	}
	for _, k := range keys {
		if !t.HasColumn(k) {
			return domain.ErrMergeKey("merge key %q not present in %s schema", k, side)
		}
	}
	return nil
}
