// Package fingerprint derives a stable per-row hash column used by the merge
// engine to detect content changes without comparing every field.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"

	"lakemerge/internal/table"
)

// Column is the name of the derived hash column.
const Column = "_row_hash"

// Field is the schema definition of the hash column.
var Field = table.Field{Name: Column, Type: table.TypeVarchar, Nullable: false}

// WithFingerprint appends the hash column, computed over every column not in
// excluded, in the table's current column order. The hash is deterministic:
// rows with equal values in the included columns hash identically regardless
// of row position. If the table already carries the column, the input is
// returned unchanged; use Recompute to force a fresh hash.
func WithFingerprint(t *table.Table, excluded []string) (*table.Table, error) {
	if t.HasColumn(Column) {
		return t, nil
	}
	return appendHash(t, excluded)
}

// Recompute drops any existing hash column and re-derives it.
func Recompute(t *table.Table, excluded []string) (*table.Table, error) {
	return appendHash(t.DropColumn(Column), excluded)
}

func appendHash(t *table.Table, excluded []string) (*table.Table, error) {
	skip := make(map[string]struct{}, len(excluded)+1)
	skip[Column] = struct{}{}
	for _, name := range excluded {
		skip[name] = struct{}{}
	}
	var include []int
	for i, f := range t.Schema() {
		if _, ok := skip[f.Name]; !ok {
			include = append(include, i)
		}
	}

	values := make([]any, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		values[r] = RowHash(t.Schema(), t.Row(r), include)
	}
	return t.AppendColumn(Field, values)
}

// RowHash computes the hex-encoded SHA-256 of the row restricted to the
// given column indexes. Each contribution is framed as
// len(name) name len(value) value, with NULL encoded as a distinct
// length marker so it never collides with the empty string.
func RowHash(schema table.Schema, row []any, include []int) string {
	h := sha256.New()
	var lenBuf [4]byte
	writeFrame := func(s string) {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}
	for _, i := range include {
		writeFrame(schema[i].Name)
		if row[i] == nil {
			binary.BigEndian.PutUint32(lenBuf[:], ^uint32(0))
			h.Write(lenBuf[:])
			continue
		}
		writeFrame(table.Render(row[i]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// KeyString encodes the values of the named key columns into one comparable
// string, using the same NULL-safe framing as RowHash. Used by the diff and
// merge engines to bucket rows by business key.
func KeyString(t *table.Table, row []any, keys []string) string {
	var b strings.Builder
	for _, k := range keys {
		idx := t.Schema().Index(k)
		v := row[idx]
		if v == nil {
			b.WriteString("-|")
			continue
		}
		s := table.Render(v)
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte('|')
		b.WriteString(s)
	}
	return b.String()
}
