package allocator

import (
	"fmt"

	"github.com/UnicodeSec/druid/internal/interval"
	"github.com/UnicodeSec/druid/internal/lease"
	"github.com/UnicodeSec/druid/internal/lockbox"
	"github.com/UnicodeSec/druid/internal/partition"

	"github.com/go-kit/log/level"
)

// BulkRequest is the Bulk Allocator's input: one interval, one fresh
// EXCLUSIVE lease, and a partial shard spec per ordinal the caller
// already knows it wants to mint (spec §4.4). OvershadowedPartitions,
// when non-nil, names the partition numbers this batch supersedes —
// carried through for audit logging; the Lockbox's own revocation
// already handles anything those segments were locked under.
type BulkRequest struct {
	TaskID     string
	DataSource string
	Interval   interval.Interval
	Priority   int

	BaseSequenceName       string
	Specs                  []partition.PartialShardSpec
	OvershadowedPartitions []int
}

// AllocateBulk locks req.Interval EXCLUSIVE and mints len(req.Specs)
// contiguous partition identities in that one grant, per spec §4.4:
// ordinal i is completed via Specs[i].CompleteOrdinal(i), and every
// identity shares the version minted for the grant. Because the whole
// operation runs inside one lockbox.MintUnderLock call, it is
// serialized with every other lease operation on this data source;
// there is no window in which the lease could be revoked partway
// through minting the batch (spec §4.4 step 3 "if the lease is revoked
// during the call, fail the whole batch"). A request naming more specs
// than the Lockbox's configured MaxNumBatchTasks is rejected outright.
func (a *Allocator) AllocateBulk(req BulkRequest) ([]SegmentIdWithShardSpec, error) {
	if len(req.Specs) == 0 {
		return nil, fmt.Errorf("%w: bulk request names zero partial shard specs", lockbox.ErrPartitionMismatch)
	}
	if max := a.lb.Config().MaxNumBatchTasks; len(req.Specs) > max {
		return nil, fmt.Errorf("%w: %d specs, max %d", ErrBatchTooLarge, len(req.Specs), max)
	}
	if req.OvershadowedPartitions != nil && len(req.OvershadowedPartitions) != len(req.Specs) {
		return nil, fmt.Errorf("%w: %d overshadowed partitions for %d specs",
			lockbox.ErrPartitionMismatch, len(req.OvershadowedPartitions), len(req.Specs))
	}

	_, ids, err := lockbox.MintUnderLock(a.lb, req.TaskID, req.Interval, lease.Exclusive, lease.TimeChunk, "",
		func(l lease.Lease) ([]SegmentIdWithShardSpec, error) {
			out := make([]SegmentIdWithShardSpec, len(req.Specs))
			for i, partial := range req.Specs {
				spec := partial.CompleteOrdinal(i)
				out[i] = SegmentIdWithShardSpec{
					SegmentID: SegmentID{DataSource: req.DataSource, Interval: req.Interval, Version: l.Version},
					ShardSpec: spec,
				}
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}
	if len(ids) != len(req.Specs) {
		return nil, fmt.Errorf("%w: minted %d, requested %d", lockbox.ErrPartitionMismatch, len(ids), len(req.Specs))
	}

	a.metrics.AllocationsTotal.WithLabelValues("bulk").Add(float64(len(ids)))
	level.Info(a.logger).Log("msg", "bulk segments allocated", "task", req.TaskID, "sequence", req.BaseSequenceName,
		"interval", req.Interval, "count", len(ids), "overshadowed", fmt.Sprint(req.OvershadowedPartitions))
	return ids, nil
}
