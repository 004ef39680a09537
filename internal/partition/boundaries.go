package partition

import "sort"

// Boundaries is a sorted, immutable array of dimension-value cut points
// for single-dimension range partitioning (spec §3 "Partition
// Boundaries", §4.5). Index 0 and the last index are structural
// sentinels standing in for -infinity and +infinity; nil is used to
// represent them so callers can't mistake a sentinel for a real cut
// point with an empty string.
type Boundaries struct {
	values []*string // len >= 2; values[0] == nil, values[len-1] == nil
}

// NewBoundaries builds a Boundaries from an arbitrary set of candidate
// cut points. The input is deduplicated and sorted, then wrapped with
// the -inf/+inf sentinels (callers pass only the inner cut points,
// e.g. ["c","f"] for three buckets; the sentinels are prepended and
// appended, never substituted for supplied values), per spec §4.5's
// construction rule. Size is always >= 2.
func NewBoundaries(cutPoints []string) *Boundaries {
	deduped := dedupeSorted(cutPoints)

	values := make([]*string, 0, len(deduped)+2)
	values = append(values, nil)
	for i := range deduped {
		v := deduped[i]
		values = append(values, &v)
	}
	values = append(values, nil)

	return &Boundaries{values: values}
}

func dedupeSorted(ss []string) []string {
	sorted := sortedCopy(ss)
	out := sorted[:0:0]
	var prev string
	first := true
	for _, s := range sorted {
		if first || s != prev {
			out = append(out, s)
			prev = s
			first = false
		}
	}
	return out
}

// Size returns the number of entries in the boundary array, including
// both sentinels. Always >= 2.
func (b *Boundaries) Size() int { return len(b.values) }

// NumBuckets returns Size()-1, the number of partitions this boundary
// table describes.
func (b *Boundaries) NumBuckets() int { return len(b.values) - 1 }

// At returns the boundary at index i, or nil if i is a sentinel
// position.
func (b *Boundaries) At(i int) *string { return b.values[i] }

// BucketFor returns the bucket index b such that
// boundaries[b] <= key < boundaries[b+1], with sentinels comparing as
// -infinity/+infinity respectively. A nil key (the dimension was absent
// from the row) always maps to bucket 0, per spec §4.5.
func (b *Boundaries) BucketFor(key *string) int {
	if key == nil {
		return 0
	}
	inner := b.values[1 : len(b.values)-1]
	// idx = count of inner boundaries <= *key; this is already the
	// correct bucket index into the full (sentinel-inclusive) array,
	// since bucket 0 implicitly has boundaries[0] == -inf as its floor.
	idx := sort.Search(len(inner), func(i int) bool {
		return *inner[i] > *key
	})
	return idx
}

// Range returns the (start, end) of bucket b as the pair of boundary
// pointers at indices b and b+1. Either may be nil, meaning
// unbounded below/above respectively.
func (b *Boundaries) Range(bucket int) (start, end *string) {
	return b.values[bucket], b.values[bucket+1]
}
