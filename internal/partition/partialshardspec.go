package partition

// PartialShardSpec is a ShardSpec missing only the partition number,
// which the Lockbox assigns once it knows what else already exists in
// the interval (spec §3 "Partial Shard Spec", §4.2). Task code builds
// one of these from its ingestion configuration; the Lockbox turns it
// into a concrete ShardSpec under its critical section.
type PartialShardSpec interface {
	// Kind returns the wire discriminator, matching the ShardSpec kind
	// this partial completes into.
	Kind() string

	// Complete derives a concrete ShardSpec continuing the sequence
	// after prev, the previous-maximum ShardSpec already published in
	// the interval (nil if the interval is empty in the historical
	// index). This is the append path (spec §4.2): every variant
	// derives its own next partition number from prev.
	Complete(prev ShardSpec) ShardSpec

	// CompleteOrdinal derives a concrete ShardSpec with partition
	// number n directly, ignoring any prior history. This is the Bulk
	// Allocator path (spec §4.4 step 2): a fresh generation of shards
	// numbered 0..n-1 within one grant, independent of what the
	// historical index says came before.
	CompleteOrdinal(n int) ShardSpec
}

// LinearPartial completes into a LinearShardSpec.
type LinearPartial struct{}

func (LinearPartial) Kind() string { return "linear" }

func (LinearPartial) Complete(prev ShardSpec) ShardSpec {
	return LinearShardSpec{PartitionNumber: nextAfter(prev)}
}

func (LinearPartial) CompleteOrdinal(n int) ShardSpec {
	return LinearShardSpec{PartitionNumber: n}
}

// NumberedPartial completes into a NumberedShardSpec. NumCorePartitions
// is carried forward from the previous shard when one exists, else
// taken from the partial itself.
type NumberedPartial struct {
	NumCorePartitions int
}

func (p NumberedPartial) Kind() string { return "numbered" }

func (p NumberedPartial) Complete(prev ShardSpec) ShardSpec {
	numCore := p.NumCorePartitions
	if ps, ok := prev.(NumberedShardSpec); ok {
		numCore = ps.NumCorePartitions
	}
	return NumberedShardSpec{PartitionNumber: nextAfter(prev), NumCorePartitions: numCore}
}

func (p NumberedPartial) CompleteOrdinal(n int) ShardSpec {
	return NumberedShardSpec{PartitionNumber: n, NumCorePartitions: p.NumCorePartitions}
}

// HashedPartial completes into a HashedShardSpec. BucketID identifies
// which hash bucket this shard serves; NumBuckets is the total bucket
// count for the interval, fixed at lease-creation time.
type HashedPartial struct {
	BucketID            int
	NumBuckets          int
	PartitionDimensions []string
}

func (p HashedPartial) Kind() string { return "hashed" }

// Complete assigns the next integer >= prev.PartitionNum()+1 congruent
// to BucketID modulo NumBuckets (spec §4.2). HashedShardSpec carries no
// core-partition count, which amounts to a count of 0: Open Question 1
// (spec §9) is resolved in favor of the source behavior, since
// segment-level locking never guarantees a single contiguous
// core-partition range up front.
func (p HashedPartial) Complete(prev ShardSpec) ShardSpec {
	return HashedShardSpec{
		PartitionNumber:     nextCongruent(nextAfter(prev), p.BucketID, p.NumBuckets),
		BucketID:            p.BucketID,
		NumBuckets:          p.NumBuckets,
		PartitionDimensions: p.PartitionDimensions,
	}
}

func (p HashedPartial) CompleteOrdinal(n int) ShardSpec {
	return HashedShardSpec{
		PartitionNumber:     n,
		BucketID:            p.BucketID,
		NumBuckets:          p.NumBuckets,
		PartitionDimensions: p.PartitionDimensions,
	}
}

// SingleDimPartial completes into a SingleDimShardSpec, with Start/End
// drawn from a Boundaries table the caller already resolved for this
// bucket.
type SingleDimPartial struct {
	Dimension string
	Start     *string
	End       *string
}

func (p SingleDimPartial) Kind() string { return "single_dim" }

func (p SingleDimPartial) Complete(prev ShardSpec) ShardSpec {
	return SingleDimShardSpec{
		PartitionNumber: nextAfter(prev),
		Dimension:       p.Dimension,
		Start:           p.Start,
		End:             p.End,
	}
}

func (p SingleDimPartial) CompleteOrdinal(n int) ShardSpec {
	return SingleDimShardSpec{
		PartitionNumber: n,
		Dimension:       p.Dimension,
		Start:           p.Start,
		End:             p.End,
	}
}

// NumberedOverwritePartial completes into a NumberedOverwriteShardSpec,
// replacing the root partition range it names with a new minor version
// generation (spec §4.2, §4.4 overwrite mode). Unlike the other kinds,
// its natural construction is per-ordinal: one instance per root
// partition being shadowed, each with its own StartRootPartitionID.
type NumberedOverwritePartial struct {
	StartRootPartitionID int
	EndRootPartitionID   int
	MinorVersion         int
}

func (p NumberedOverwritePartial) Kind() string { return "numbered_overwrite" }

// Complete bumps MinorVersion by one past prev's when prev is itself a
// NumberedOverwriteShardSpec over the same root range; otherwise it
// starts the new generation at p.MinorVersion.
func (p NumberedOverwritePartial) Complete(prev ShardSpec) ShardSpec {
	minor := p.MinorVersion
	partitionNum := p.StartRootPartitionID
	if ps, ok := prev.(NumberedOverwriteShardSpec); ok && ps.StartRootPartitionID == p.StartRootPartitionID {
		minor = ps.MinorVersion + 1
		partitionNum = ps.PartitionNumber
	}
	return NumberedOverwriteShardSpec{
		PartitionNumber:      partitionNum,
		MinorVersion:         minor,
		StartRootPartitionID: p.StartRootPartitionID,
		EndRootPartitionID:   p.EndRootPartitionID,
	}
}

func (p NumberedOverwritePartial) CompleteOrdinal(n int) ShardSpec {
	return NumberedOverwriteShardSpec{
		PartitionNumber:      n,
		MinorVersion:         p.MinorVersion,
		StartRootPartitionID: p.StartRootPartitionID,
		EndRootPartitionID:   p.EndRootPartitionID,
	}
}

// nextAfter returns prev.PartitionNum()+1, or 0 if prev is nil.
func nextAfter(prev ShardSpec) int {
	if prev == nil {
		return 0
	}
	return prev.PartitionNum() + 1
}

// nextCongruent returns the smallest integer >= start that is
// congruent to bucketID modulo numBuckets.
func nextCongruent(start, bucketID, numBuckets int) int {
	if numBuckets <= 0 {
		return bucketID
	}
	mod := bucketID - start%numBuckets
	if mod < 0 {
		mod += numBuckets
	}
	return start + mod
}
