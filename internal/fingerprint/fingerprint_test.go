package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakemerge/internal/table"
)

func sampleTable(t *testing.T, rows [][]any) *table.Table {
	t.Helper()
	tbl, err := table.New(
		table.MustSchema(
			table.Field{Name: "id", Type: table.TypeInteger},
			table.Field{Name: "name", Type: table.TypeVarchar, Nullable: true},
			table.Field{Name: "loaded_at", Type: table.TypeVarchar, Nullable: true},
		),
		rows,
	)
	require.NoError(t, err)
	return tbl
}

func hashOf(t *testing.T, tbl *table.Table, row int) string {
	t.Helper()
	v, ok := tbl.Value(row, Column)
	require.True(t, ok)
	return v.(string)
}

func TestWithFingerprintDeterministic(t *testing.T) {
	a := sampleTable(t, [][]any{{int64(1), "x", "t1"}, {int64(2), "y", "t2"}})
	b := sampleTable(t, [][]any{{int64(2), "y", "t2"}, {int64(1), "x", "t1"}})

	ha, err := WithFingerprint(a, []string{"loaded_at"})
	require.NoError(t, err)
	hb, err := WithFingerprint(b, []string{"loaded_at"})
	require.NoError(t, err)

	// Same content hashes identically regardless of row position.
	assert.Equal(t, hashOf(t, ha, 0), hashOf(t, hb, 1))
	assert.Equal(t, hashOf(t, ha, 1), hashOf(t, hb, 0))
	assert.NotEqual(t, hashOf(t, ha, 0), hashOf(t, ha, 1))
}

func TestWithFingerprintExclusions(t *testing.T) {
	a := sampleTable(t, [][]any{{int64(1), "x", "t1"}})
	b := sampleTable(t, [][]any{{int64(1), "x", "t2"}})

	ha, err := WithFingerprint(a, []string{"loaded_at"})
	require.NoError(t, err)
	hb, err := WithFingerprint(b, []string{"loaded_at"})
	require.NoError(t, err)
	assert.Equal(t, hashOf(t, ha, 0), hashOf(t, hb, 0))

	// Without the exclusion the audit column participates.
	ha2, err := WithFingerprint(a, nil)
	require.NoError(t, err)
	hb2, err := WithFingerprint(b, nil)
	require.NoError(t, err)
	assert.NotEqual(t, hashOf(t, ha2, 0), hashOf(t, hb2, 0))
}

func TestWithFingerprintIdempotent(t *testing.T) {
	a := sampleTable(t, [][]any{{int64(1), "x", "t1"}})
	once, err := WithFingerprint(a, nil)
	require.NoError(t, err)
	twice, err := WithFingerprint(once, nil)
	require.NoError(t, err)
	assert.Same(t, once, twice)
}

func TestRecompute(t *testing.T) {
	a := sampleTable(t, [][]any{{int64(1), "x", "t1"}})
	all, err := WithFingerprint(a, nil)
	require.NoError(t, err)
	partial, err := Recompute(all, []string{"loaded_at"})
	require.NoError(t, err)
	assert.NotEqual(t, hashOf(t, all, 0), hashOf(t, partial, 0))
	// The hash column never hashes itself: recomputing with the same
	// exclusions is stable.
	again, err := Recompute(partial, []string{"loaded_at"})
	require.NoError(t, err)
	assert.Equal(t, hashOf(t, partial, 0), hashOf(t, again, 0))
}

func TestNullDistinctFromEmptyString(t *testing.T) {
	withNull := sampleTable(t, [][]any{{int64(1), nil, "t"}})
	withEmpty := sampleTable(t, [][]any{{int64(1), "", "t"}})

	ha, err := WithFingerprint(withNull, nil)
	require.NoError(t, err)
	hb, err := WithFingerprint(withEmpty, nil)
	require.NoError(t, err)
	assert.NotEqual(t, hashOf(t, ha, 0), hashOf(t, hb, 0))
}

func TestKeyString(t *testing.T) {
	tbl := sampleTable(t, [][]any{
		{int64(1), "a", "t"},
		{int64(1), "a", "t"},
		{int64(1), nil, "t"},
		{int64(1), "", "t"},
	})
	keys := []string{"id", "name"}
	assert.Equal(t, KeyString(tbl, tbl.Row(0), keys), KeyString(tbl, tbl.Row(1), keys))
	assert.NotEqual(t, KeyString(tbl, tbl.Row(2), keys), KeyString(tbl, tbl.Row(3), keys))
}
