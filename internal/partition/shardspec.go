package partition

// ShardSpec identifies where a single segment sits within its
// interval's partition space, and whether a given row belongs in it
// (spec §3 "Shard Spec", §4.5). Each concrete kind is a distinct Go
// type so the wire encoding's "type" discriminator round-trips through
// Kind() instead of a shared mutable field.
type ShardSpec interface {
	// Kind returns the wire discriminator for this shard spec variant.
	Kind() string

	// PartitionNum returns this shard's position among its siblings.
	// Meaningful for ordering only; two shards of different kinds are
	// never compared against each other.
	PartitionNum() int

	// Accepts reports whether row belongs in this shard, per the
	// variant's own partitioning scheme.
	Accepts(row Row) bool
}

// LinearShardSpec is the legacy append-only numbering scheme: every row
// is accepted, since interval-level locking (not the shard spec) is
// what keeps concurrent writers from colliding.
type LinearShardSpec struct {
	PartitionNumber int
}

func (s LinearShardSpec) Kind() string      { return "linear" }
func (s LinearShardSpec) PartitionNum() int { return s.PartitionNumber }
func (s LinearShardSpec) Accepts(Row) bool  { return true }

// NumberedShardSpec is the default append-only scheme used when no
// partitioning dimension is configured. Core partitions are the ones
// present at publish time; additional partitions may be appended later
// by the same mechanism LinearShardSpec uses.
type NumberedShardSpec struct {
	PartitionNumber   int
	NumCorePartitions int
}

func (s NumberedShardSpec) Kind() string      { return "numbered" }
func (s NumberedShardSpec) PartitionNum() int { return s.PartitionNumber }
func (s NumberedShardSpec) Accepts(Row) bool  { return true }

// HashedShardSpec routes by the hash of a fixed set of dimensions
// modulo the bucket count (spec §4.3, §8 property 4).
type HashedShardSpec struct {
	PartitionNumber     int
	BucketID            int
	NumBuckets          int
	PartitionDimensions []string
}

func (s HashedShardSpec) Kind() string      { return "hashed" }
func (s HashedShardSpec) PartitionNum() int { return s.PartitionNumber }

// Accepts reports whether row's dimension hash lands in this shard's
// bucket.
func (s HashedShardSpec) Accepts(row Row) bool {
	if s.NumBuckets <= 0 {
		return false
	}
	h := HashDimensions(s.PartitionDimensions, row)
	return int(h%uint64(s.NumBuckets)) == s.BucketID
}

// SingleDimShardSpec routes by a single dimension's value against a
// sorted range of [Start, End) boundaries, where a nil Start or End
// means unbounded (spec §4.5).
type SingleDimShardSpec struct {
	PartitionNumber int
	Dimension       string
	Start           *string
	End             *string
}

func (s SingleDimShardSpec) Kind() string      { return "single_dim" }
func (s SingleDimShardSpec) PartitionNum() int { return s.PartitionNumber }

// Accepts reports whether row's Dimension value falls in [Start, End).
func (s SingleDimShardSpec) Accepts(row Row) bool {
	v, ok := row.DimensionValue(s.Dimension)
	if !ok {
		// Absent dimension routes to bucket 0 per spec §4.5; only the
		// shard whose Start is the -inf sentinel accepts it.
		return s.Start == nil
	}
	if s.Start != nil && v < *s.Start {
		return false
	}
	if s.End != nil && v >= *s.End {
		return false
	}
	return true
}

// NumberedOverwriteShardSpec replaces a half-open range of prior partition
// numbers [StartRootPartitionID, EndRootPartitionID) with a new
// generation of shards, used when an interval is recompacted or
// reprocessed under a fresh lease (spec §4.2 "upgrade/downgrade",
// §4.4 Bulk Allocator overwrite mode).
type NumberedOverwriteShardSpec struct {
	PartitionNumber      int
	MinorVersion         int
	StartRootPartitionID int
	EndRootPartitionID   int
}

func (s NumberedOverwriteShardSpec) Kind() string      { return "numbered_overwrite" }
func (s NumberedOverwriteShardSpec) PartitionNum() int { return s.PartitionNumber }
func (s NumberedOverwriteShardSpec) Accepts(Row) bool  { return true }
