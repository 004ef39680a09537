package allocator

import (
	"fmt"
	"time"

	"github.com/UnicodeSec/druid/internal/interval"
	"github.com/UnicodeSec/druid/internal/partition"
)

// SegmentID identifies a data source's interval/version pair, the
// coordinate every shard within one lease shares (spec §3).
type SegmentID struct {
	DataSource string
	Interval   interval.Interval
	Version    string
}

// String renders the identifier in the teacher's "dataSource_interval_version"
// style, used as the opaque previousSegmentId token the Segment
// Allocator's sequence-lineage check compares against (spec §4.3 step 5).
func (id SegmentID) String() string {
	return fmt.Sprintf("%s_%s_%s", id.DataSource, id.Interval, id.Version)
}

// SegmentIdWithShardSpec pairs a SegmentID with the concrete ShardSpec
// minted for it, the return type of both the Segment Allocator and the
// Bulk Allocator (spec §4.3, §4.4).
type SegmentIdWithShardSpec struct {
	SegmentID SegmentID
	ShardSpec partition.ShardSpec
}

// TimestampedRow extends partition.Row with the one additional piece
// of information the allocator needs that routing doesn't: the row's
// own event timestamp, used to pick the candidate interval (spec §4.3
// step 1).
type TimestampedRow interface {
	partition.Row
	Timestamp() (t time.Time, ok bool)
}
