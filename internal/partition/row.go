package partition

import (
	"errors"
	"hash/fnv"
	"sort"
)

// ErrUnparseableRow is raised by the Sampler when a row's timestamp
// cannot be derived while building its preview (spec §7
// "UnparseableRow"). Routing does not raise it: an absent dimension is
// treated as having no value.
var ErrUnparseableRow = errors.New("partition: row is unparseable")

// Row is the minimal view the partitioning schemes need of an input row:
// the ability to look up a dimension's string value. Allocation and
// routing only ever consult named dimensions, never the row's full
// shape, so callers can adapt arbitrary row representations (parsed
// JSON, a database record, a Sampler preview row) by implementing this
// one method.
type Row interface {
	// DimensionValue returns the string value of dim and whether it was
	// present. An absent dimension is treated as "no value" by hashed
	// and range routing alike (spec §4.5: "if key is absent, returns 0").
	DimensionValue(dim string) (string, bool)
}

// MapRow is the common-case Row backed by a plain map, e.g. a row parsed
// by the Sampler before dimension extraction.
type MapRow map[string]string

// DimensionValue implements Row.
func (m MapRow) DimensionValue(dim string) (string, bool) {
	v, ok := m[dim]
	return v, ok
}

// HashDimensions computes the deterministic hash used by hashed
// partitioning (spec §4.3 step 2, §8 property 4). Dimensions are hashed
// in the order given, each value length-prefixed so that ("a","bc") and
// ("ab","c") never collide on the naive concatenation.
func HashDimensions(dims []string, row Row) uint64 {
	h := fnv.New64a()
	for _, dim := range dims {
		v, ok := row.DimensionValue(dim)
		if !ok {
			v = ""
		}
		// length-prefix to avoid ambiguous concatenation
		writeLenPrefixed(h, v)
	}
	return h.Sum64()
}

func writeLenPrefixed(h interface{ Write([]byte) (int, error) }, s string) {
	b := make([]byte, 8+len(s))
	putUvarint(b, uint64(len(s)))
	copy(b[8:], s)
	_, _ = h.Write(b)
}

func putUvarint(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * (7 - i)))
	}
}

// sortedCopy returns a sorted copy of ss without mutating the input.
func sortedCopy(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Strings(out)
	return out
}
