package journal

import (
	"sync"

	"github.com/UnicodeSec/druid/internal/interval"
	"github.com/UnicodeSec/druid/internal/partition"
)

// MemorySegmentIndex is an in-memory SegmentIndex, standing in for the
// deep-storage-backed historical segment index spec §1 places outside
// the core. Tests pre-announce segments (spec scenario S3/S4) via
// Announce before exercising the allocator against them.
type MemorySegmentIndex struct {
	mu       sync.RWMutex
	segments []DataSegment
}

// NewMemorySegmentIndex returns an empty MemorySegmentIndex.
func NewMemorySegmentIndex() *MemorySegmentIndex {
	return &MemorySegmentIndex{}
}

// Announce records seg as already published, making it visible to
// subsequent MaxPartitionSpec and SegmentsOverlapping queries.
func (idx *MemorySegmentIndex) Announce(seg DataSegment) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.segments = append(idx.segments, seg)
}

// MaxPartitionSpec implements SegmentIndex.
func (idx *MemorySegmentIndex) MaxPartitionSpec(dataSource string, iv interval.Interval) (partition.ShardSpec, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var (
		best    partition.ShardSpec
		found   bool
	)
	for _, seg := range idx.segments {
		if seg.DataSource != dataSource || !seg.Interval.Equal(iv) {
			continue
		}
		if !found || seg.ShardSpec.PartitionNum() > best.PartitionNum() {
			best = seg.ShardSpec
			found = true
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	return best, nil
}

// SegmentsOverlapping implements SegmentIndex.
func (idx *MemorySegmentIndex) SegmentsOverlapping(dataSource string, iv interval.Interval) ([]DataSegment, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []DataSegment
	for _, seg := range idx.segments {
		if seg.DataSource == dataSource && seg.Interval.Overlaps(iv) {
			out = append(out, seg)
		}
	}
	return out, nil
}
