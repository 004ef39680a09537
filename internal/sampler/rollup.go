package sampler

import (
	"strings"
	"time"

	"github.com/UnicodeSec/druid/internal/allocator"
)

// rollupKey identifies one rollup bucket: a truncated timestamp plus
// the dimension tuple, per spec §4.6 "(truncatedTimestamp,
// dimensionTuple)".
type rollupKey struct {
	bucket time.Time
	dims   string
}

// rollupAccumulator folds rows sharing a rollup bucket via the
// schema's aggregator set, in the order each bucket was first seen so
// SamplerResponse.Data stays deterministic across a run.
type rollupAccumulator struct {
	schema *DataSchema
	rows   map[rollupKey]RawRow
	order  []rollupKey
}

func newRollupAccumulator(schema *DataSchema) *rollupAccumulator {
	return &rollupAccumulator{schema: schema, rows: make(map[rollupKey]RawRow)}
}

// fold folds parsed into its rollup bucket, seeding the bucket from
// raw/parsed on first sight and combining via the schema's aggregators
// on every subsequent row. A no-op when the Sampler isn't configured
// for rollup (Sample never calls it in that case, but the zero-value
// schema pointer is guarded against defensively since this type is
// only ever constructed from the same *DataSchema Sample already
// nil-checked).
func (r *rollupAccumulator) fold(raw, parsed RawRow) {
	if r.schema == nil {
		return
	}
	bucket := truncateForRollup(r.schema.Granularity.QueryGranularity, raw, r.schema.Timestamp)
	key := rollupKey{bucket: bucket, dims: dimensionTupleKey(parsed, r.schema.Dimensions.keysFor(parsed))}

	existing, found := r.rows[key]
	if !found {
		seeded := make(RawRow, len(parsed)+len(r.schema.Aggregators))
		for k, v := range parsed {
			seeded[k] = v
		}
		for _, agg := range r.schema.Aggregators {
			seeded[agg.Name()] = agg.Init(raw)
		}
		r.rows[key] = seeded
		r.order = append(r.order, key)
		return
	}

	merged := make(RawRow, len(existing))
	for k, v := range existing {
		merged[k] = v
	}
	for _, agg := range r.schema.Aggregators {
		merged[agg.Name()] = agg.Combine(merged[agg.Name()], raw)
	}
	r.rows[key] = merged
}

// entries returns one SampleEntry per rollup bucket folded so far, in
// first-seen order.
func (r *rollupAccumulator) entries() []SampleEntry {
	out := make([]SampleEntry, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, SampleEntry{Parsed: r.rows[key]})
	}
	return out
}

// truncateForRollup buckets raw's timestamp column to g, returning the
// exact timestamp (no truncation) when g is allocator.None, and the
// zero time when the column can no longer be parsed (it already parsed
// once to reach this point, so this only guards against a degenerate
// ts spec).
func truncateForRollup(g allocator.Granularity, raw RawRow, ts TimestampSpec) time.Time {
	t, err := ts.Parse(raw)
	if err != nil {
		return time.Time{}
	}
	if g == "" || g == allocator.None {
		return t
	}
	if start, _, ok := allocator.Bucket(g, t); ok {
		return start
	}
	return t
}

func dimensionTupleKey(row RawRow, dims []string) string {
	var b strings.Builder
	for _, d := range dims {
		b.WriteString(d)
		b.WriteByte('=')
		b.WriteString(row[d])
		b.WriteByte(';')
	}
	return b.String()
}
