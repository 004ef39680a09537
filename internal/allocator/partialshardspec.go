package allocator

import (
	"fmt"

	"github.com/UnicodeSec/druid/internal/lease"
	"github.com/UnicodeSec/druid/internal/lockbox"
	"github.com/UnicodeSec/druid/internal/partition"
)

// buildPartialShardSpec dispatches on req.Analysis's partitioning
// scheme and on whether req.Granularity is TIME_CHUNK or SEGMENT
// locking, per spec §4.3 step 2. Hashed and Range partitioning are
// never permitted under segment-level locking — a segment-granularity
// lease covers too little of the interval's partition space for the
// allocator to guarantee the bucket assignment a hash or range scheme
// promises — so those combinations return lockbox.ErrUnsupportedCombination.
func buildPartialShardSpec(req AllocateRequest) (partition.PartialShardSpec, error) {
	segmentLocked := req.Granularity == lease.Segment

	switch analysis := req.Analysis.(type) {
	case partition.DynamicAnalysis:
		if segmentLocked && req.Overwrite != nil {
			return partition.NumberedOverwritePartial{
				StartRootPartitionID: req.Overwrite.StartRootPartitionID,
				EndRootPartitionID:   req.Overwrite.EndRootPartitionID,
				MinorVersion:         req.Overwrite.MinorVersion,
			}, nil
		}
		return partition.NumberedPartial{NumCorePartitions: analysis.NumCorePartitions}, nil

	case partition.HashedAnalysis:
		if segmentLocked {
			return nil, fmt.Errorf("%w: hashed partitioning under segment-level locking", lockbox.ErrUnsupportedCombination)
		}
		if analysis.NumBuckets <= 0 {
			return nil, fmt.Errorf("%w: numBuckets=%d", ErrIllFormedPartitioning, analysis.NumBuckets)
		}
		bucketID := int(partition.HashDimensions(analysis.PartitionDimensions, req.Row) % uint64(analysis.NumBuckets))
		return partition.HashedPartial{
			BucketID:            bucketID,
			NumBuckets:          analysis.NumBuckets,
			PartitionDimensions: analysis.PartitionDimensions,
		}, nil

	case partition.SingleDimAnalysis:
		if segmentLocked {
			return nil, fmt.Errorf("%w: range partitioning under segment-level locking", lockbox.ErrUnsupportedCombination)
		}
		v, ok := req.Row.DimensionValue(analysis.Dimension)
		var key *string
		if ok {
			key = &v
		}
		bucket := analysis.Boundaries.BucketFor(key)
		start, end := analysis.Boundaries.Range(bucket)
		return partition.SingleDimPartial{Dimension: analysis.Dimension, Start: start, End: end}, nil

	default:
		return nil, fmt.Errorf("allocator: unrecognized partition analysis kind %q", req.Analysis.Kind())
	}
}
