package merge

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakemerge/internal/domain"
	"lakemerge/internal/fingerprint"
	"lakemerge/internal/table"
	"lakemerge/internal/testutil"
)

var testDest = domain.Destination{Schema: "main", Table: "customers"}

func batch(t *testing.T, rows [][]any) *table.Table {
	t.Helper()
	tbl, err := table.New(
		table.MustSchema(
			table.Field{Name: "id", Type: table.TypeInteger},
			table.Field{Name: "name", Type: table.TypeVarchar, Nullable: true},
		),
		rows,
	)
	require.NoError(t, err)
	return tbl
}

func newMerger(store *testutil.MemoryStore) *Merger {
	return NewMerger(store, slog.New(slog.DiscardHandler))
}

func byID(t *testing.T, tbl *table.Table) map[int64]string {
	t.Helper()
	out := make(map[int64]string, tbl.NumRows())
	for r := 0; r < tbl.NumRows(); r++ {
		id, _ := tbl.Value(r, "id")
		name, _ := tbl.Value(r, "name")
		out[id.(int64)] = name.(string)
	}
	return out
}

func TestMergeCreatesAbsentDestination(t *testing.T) {
	store := testutil.NewMemoryStore()
	m := newMerger(store)

	stats, err := m.Merge(context.Background(), batch(t, [][]any{{int64(1), "a"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Inserted)
	assert.Equal(t, []domain.WriteMode{domain.WriteModeCreate}, store.Writes)

	got := store.Get(testDest)
	require.NotNil(t, got)
	assert.True(t, got.HasColumn(fingerprint.Column))
}

func TestMergeUpdateInsertNoop(t *testing.T) {
	store := testutil.NewMemoryStore()
	m := newMerger(store)
	ctx := context.Background()

	_, err := m.Merge(ctx, batch(t, [][]any{{int64(1), "a"}, {int64(3), "z"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)

	stats, err := m.Merge(ctx, batch(t, [][]any{
		{int64(1), "changed"}, // hash differs: update
		{int64(3), "z"},       // hash equal: no-op
		{int64(2), "new"},     // unseen key: insert
	}), testDest, []string{"id"}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Updated)
	assert.Equal(t, int64(1), stats.Unchanged)
	assert.Equal(t, int64(1), stats.Inserted)

	got := store.Get(testDest)
	require.Equal(t, 3, got.NumRows())
	assert.Equal(t, map[int64]string{1: "changed", 2: "new", 3: "z"}, byID(t, got))
}

func TestMergeNeverDeletes(t *testing.T) {
	store := testutil.NewMemoryStore()
	m := newMerger(store)
	ctx := context.Background()

	_, err := m.Merge(ctx, batch(t, [][]any{{int64(1), "a"}, {int64(2), "b"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)

	// A candidate that omits id=2 leaves it untouched.
	stats, err := m.Merge(ctx, batch(t, [][]any{{int64(3), "c"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Inserted)

	got := store.Get(testDest)
	assert.Equal(t, map[int64]string{1: "a", 2: "b", 3: "c"}, byID(t, got))
}

// Destination holds (1, "a"); the candidate carries the same key twice plus
// a new one. The last duplicate in batch order wins: id=1 becomes "b", id=2
// is inserted, and the destination ends with exactly two rows.
func TestMergeDuplicateKeysLastWins(t *testing.T) {
	store := testutil.NewMemoryStore()
	m := newMerger(store)
	ctx := context.Background()

	_, err := m.Merge(ctx, batch(t, [][]any{{int64(1), "a"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)

	stats, err := m.Merge(ctx, batch(t, [][]any{
		{int64(1), "a"},
		{int64(1), "b"},
		{int64(2), "c"},
	}), testDest, []string{"id"}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Updated)
	assert.Equal(t, int64(1), stats.Inserted)
	assert.Equal(t, int64(0), stats.Unchanged)

	got := store.Get(testDest)
	require.Equal(t, 2, got.NumRows())
	assert.Equal(t, map[int64]string{1: "b", 2: "c"}, byID(t, got))
}

func TestMergeNoopSkipsWrite(t *testing.T) {
	store := testutil.NewMemoryStore()
	m := newMerger(store)
	ctx := context.Background()

	_, err := m.Merge(ctx, batch(t, [][]any{{int64(1), "a"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)
	writes := len(store.Writes)

	stats, err := m.Merge(ctx, batch(t, [][]any{{int64(1), "a"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Unchanged)
	assert.Len(t, store.Writes, writes, "unchanged batch must not rewrite the destination")
}

func TestMergeKeyMissing(t *testing.T) {
	store := testutil.NewMemoryStore()
	m := newMerger(store)

	tests := []struct {
		name string
		keys []string
	}{
		{name: "no_keys", keys: nil},
		{name: "absent_key", keys: []string{"customer_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Merge(context.Background(), batch(t, [][]any{{int64(1), "a"}}), testDest, tt.keys, nil)
			var keyErr *domain.MergeKeyError
			require.ErrorAs(t, err, &keyErr)
			assert.Empty(t, store.Writes, "no destination mutation on key errors")
		})
	}
}

// A batch carrying a column the destination lacks must still be a no-op when
// the surviving content is identical: the hash is recomputed after the
// projection, so neither the wide delivery nor any later narrow one counts
// as an update.
func TestMergeWideCandidateStaysNoop(t *testing.T) {
	store := testutil.NewMemoryStore()
	m := newMerger(store)
	ctx := context.Background()

	_, err := m.Merge(ctx, batch(t, [][]any{{int64(1), "a"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)
	writes := len(store.Writes)

	wide, err := table.New(
		table.MustSchema(
			table.Field{Name: "id", Type: table.TypeInteger},
			table.Field{Name: "name", Type: table.TypeVarchar, Nullable: true},
			table.Field{Name: "note", Type: table.TypeVarchar, Nullable: true},
		),
		[][]any{{int64(1), "a", "dropped on merge"}},
	)
	require.NoError(t, err)

	stats, err := m.Merge(ctx, wide, testDest, []string{"id"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Unchanged)
	assert.Equal(t, int64(0), stats.Updated)
	assert.Len(t, store.Writes, writes, "identical wide batch must not rewrite the destination")

	// The stored hash still describes the stored content, so a shaped
	// redelivery is a no-op too.
	stats, err = m.Merge(ctx, batch(t, [][]any{{int64(1), "a"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Unchanged)
	assert.Equal(t, int64(0), stats.Updated)

	// And a genuine change through the wide shape is still detected.
	wide, err = table.New(wide.Schema(), [][]any{{int64(1), "changed", "x"}})
	require.NoError(t, err)
	stats, err = m.Merge(ctx, wide, testDest, []string{"id"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Updated)
}

func TestMergeReorderedCandidateStaysNoop(t *testing.T) {
	store := testutil.NewMemoryStore()
	m := newMerger(store)
	ctx := context.Background()

	_, err := m.Merge(ctx, batch(t, [][]any{{int64(1), "a"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)

	// Same content with the columns swapped: the hash covers columns in
	// schema order, so it is recomputed after reordering.
	swapped, err := table.New(
		table.MustSchema(
			table.Field{Name: "name", Type: table.TypeVarchar, Nullable: true},
			table.Field{Name: "id", Type: table.TypeInteger},
		),
		[][]any{{"a", int64(1)}},
	)
	require.NoError(t, err)

	stats, err := m.Merge(ctx, swapped, testDest, []string{"id"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Unchanged)
	assert.Equal(t, int64(0), stats.Updated)
}

func TestMergeExclusionsSurviveReshape(t *testing.T) {
	store := testutil.NewMemoryStore()
	m := newMerger(store)
	ctx := context.Background()
	exclude := []string{"loaded_at"}

	tracked := table.MustSchema(
		table.Field{Name: "id", Type: table.TypeInteger},
		table.Field{Name: "name", Type: table.TypeVarchar, Nullable: true},
		table.Field{Name: "loaded_at", Type: table.TypeVarchar, Nullable: true},
	)
	first, err := table.New(tracked, [][]any{{int64(1), "a", "2024-01-01"}})
	require.NoError(t, err)
	_, err = m.Merge(ctx, first, testDest, []string{"id"}, exclude)
	require.NoError(t, err)

	// Redelivery with a new load timestamp and an extra column: the rehash
	// after projection must keep honoring the exclusions, so this is still
	// a no-op.
	wide, err := table.New(
		table.MustSchema(
			table.Field{Name: "id", Type: table.TypeInteger},
			table.Field{Name: "name", Type: table.TypeVarchar, Nullable: true},
			table.Field{Name: "loaded_at", Type: table.TypeVarchar, Nullable: true},
			table.Field{Name: "batch_id", Type: table.TypeVarchar, Nullable: true},
		),
		[][]any{{int64(1), "a", "2024-02-02", "b-7"}},
	)
	require.NoError(t, err)

	stats, err := m.Merge(ctx, wide, testDest, []string{"id"}, exclude)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Unchanged)
	assert.Equal(t, int64(0), stats.Updated)
}

func TestMergePrefingerprintedCandidate(t *testing.T) {
	store := testutil.NewMemoryStore()
	m := newMerger(store)
	ctx := context.Background()

	pre, err := fingerprint.WithFingerprint(batch(t, [][]any{{int64(1), "a"}}), nil)
	require.NoError(t, err)
	_, err = m.Merge(ctx, pre, testDest, []string{"id"}, nil)
	require.NoError(t, err)

	// Same rows, fingerprinted on the fly this time: still a no-op.
	stats, err := m.Merge(ctx, batch(t, [][]any{{int64(1), "a"}}), testDest, []string{"id"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Unchanged)
}
