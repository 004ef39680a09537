package sampler

import (
	"fmt"
	"sort"
	"time"

	"github.com/UnicodeSec/druid/internal/allocator"
	"github.com/UnicodeSec/druid/internal/partition"
)

// TimestampSpec names which raw column carries the event time and how
// to parse it. An empty Layout defaults to RFC3339, the common case for
// already-structured input.
type TimestampSpec struct {
	Column string
	Layout string
}

// Parse extracts and parses the timestamp column from row, wrapping
// both "column missing" and "value doesn't match Layout" as
// partition.ErrUnparseableRow (spec §7 "UnparseableRow").
func (ts TimestampSpec) Parse(row RawRow) (time.Time, error) {
	v, ok := row[ts.Column]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: timestamp column %q is missing", partition.ErrUnparseableRow, ts.Column)
	}
	layout := ts.Layout
	if layout == "" {
		layout = time.RFC3339
	}
	t, err := time.Parse(layout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp column %q value %q: %v", partition.ErrUnparseableRow, ts.Column, v, err)
	}
	return t, nil
}

// DimensionsSpec names which columns survive into the parsed row. An
// empty Dimensions list means "keep everything the row already has",
// matching schema-less ingestion.
type DimensionsSpec struct {
	Dimensions []string
}

func (d DimensionsSpec) apply(row RawRow) RawRow {
	if len(d.Dimensions) == 0 {
		return row
	}
	out := make(RawRow, len(d.Dimensions))
	for _, dim := range d.Dimensions {
		if v, ok := row[dim]; ok {
			out[dim] = v
		}
	}
	return out
}

func (d DimensionsSpec) keysFor(row RawRow) []string {
	if len(d.Dimensions) > 0 {
		return d.Dimensions
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RowTransform rewrites a row before dimension selection (spec §4.6
// "Row-transform expressions are applied before dimension selection").
// An error degrades the row to unparseable without aborting the run.
type RowTransform interface {
	Apply(row RawRow) (RawRow, error)
}

// RowFilter decides whether a row is sampled at all. A rejected row is
// excluded from both numRowsRead and numRowsIndexed (spec §4.6).
type RowFilter interface {
	Accept(row RawRow) bool
}

// TransformSpec bundles the ordered row-transforms and the optional
// row-filter applied after them.
type TransformSpec struct {
	Transforms []RowTransform
	Filter     RowFilter
}

// GranularitySpec controls rollup aggregation. QueryGranularity governs
// the truncation bucket rows are grouped into when Rollup is set;
// allocator.None disables truncation (rows group by exact timestamp).
type GranularitySpec struct {
	QueryGranularity allocator.Granularity
	Rollup           bool
}

// Aggregator folds one metric field across rows sharing a rollup
// bucket (spec §4.6 "combined via the aggregator set"). Name is the
// output column; Init seeds it from the first row's raw fields, and
// Combine folds in each subsequent row's raw fields — raw, not the
// dimension-selected parsed row, so a metric column an aggregator
// reads need not also be listed in DimensionsSpec.
type Aggregator interface {
	Name() string
	Init(row RawRow) string
	Combine(acc string, row RawRow) string
}

// DataSchema is the optional ingestion schema the Sampler uses to
// parse and shape rows (spec §4.6 "dataSchema?"). A nil DataSchema
// means every row is reported raw-only with an unparseable-timestamp
// error, per spec.
type DataSchema struct {
	Timestamp   TimestampSpec
	Dimensions  DimensionsSpec
	Transform   TransformSpec
	Granularity GranularitySpec
	Aggregators []Aggregator
}
