package allocator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/UnicodeSec/druid/internal/interval"
	"github.com/UnicodeSec/druid/internal/journal"
	"github.com/UnicodeSec/druid/internal/lease"
	"github.com/UnicodeSec/druid/internal/lockbox"
	"github.com/UnicodeSec/druid/internal/logging"
	"github.com/UnicodeSec/druid/internal/metrics"
	"github.com/UnicodeSec/druid/internal/partition"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
)

// Allocator is the Segment Allocator / Bulk Allocator / Supervisor-Wrap
// layer (spec §2, §4.3, §4.4). It holds no lease state of its own —
// that all lives in the Lockbox — except the per-sequence lineage
// table the streaming Allocate entry point needs for its resume check
// (spec §4.3 step 5) and the highest shard spec it has minted per
// interval, which is why it carries its own small mutex rather than
// reusing the Lockbox's.
type Allocator struct {
	lb    *lockbox.Lockbox
	index journal.SegmentIndex

	mu           sync.Mutex
	sequenceTail map[string]string              // sequenceName -> last-minted SegmentID.String()
	lastMinted   map[string]partition.ShardSpec // dataSource|interval -> highest spec minted by Allocate

	logger  kitlog.Logger
	metrics *metrics.AllocatorMetrics
}

// New returns an Allocator that grants leases through lb and reads
// published-segment history from index. reg is the
// prometheus.Registerer the allocations-total counter registers with;
// a nil reg is valid, per lockbox.New.
func New(lb *lockbox.Lockbox, index journal.SegmentIndex, logger kitlog.Logger, reg prometheus.Registerer) *Allocator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Allocator{
		lb:           lb,
		index:        index,
		sequenceTail: make(map[string]string),
		lastMinted:   make(map[string]partition.ShardSpec),
		logger:       logger,
		metrics:      metrics.NewAllocatorMetrics(reg),
	}
}

// OverwriteSpec carries the cached root-generation bounds needed to
// complete a NumberedOverwrite partial shard spec, the one variant
// whose completion depends on state the caller tracks rather than on
// the historical index (spec §4.2 "NumberedOverwrite").
type OverwriteSpec struct {
	StartRootPartitionID int
	EndRootPartitionID   int
	MinorVersion         int
}

// AllocateRequest is the Segment Allocator's per-row request (spec
// §4.3 "allocate(row, sequenceName, previousSegmentId, skipLineageCheck)").
type AllocateRequest struct {
	TaskID     string
	DataSource string
	GroupID    string
	Priority   int
	Kind       lease.Kind // SHARED for ordinary concurrent append, EXCLUSIVE for overwrite/compaction

	Row         TimestampedRow
	Analysis    partition.Analysis
	Granularity lease.Granularity // TIME_CHUNK or SEGMENT locking

	QueryGranularity            Granularity
	PreferredSegmentGranularity Granularity

	SequenceName      string
	PreviousSegmentID string
	SkipLineageCheck  bool

	// Overwrite, when non-nil, requests a NumberedOverwrite partial
	// shard spec instead of the analysis-driven default; only valid
	// combined with Granularity == lease.Segment over a Dynamic
	// analysis (spec §4.3 step 2 "Linear + segment-lock + overwrite").
	Overwrite *OverwriteSpec

	// SupervisorID, when set via SupervisorWrap, is logged alongside
	// the allocation outcome for audit/routing but never changes it
	// (spec §2 "Supervisor-Wrap Layer").
	SupervisorID string
}

// SupervisorWrap annotates req with a supervising-task identity for
// audit/routing purposes. It returns a copy; the original request is
// untouched, and no field besides SupervisorID is altered (spec §2
// "thin wrapper ... does not alter outcomes").
func SupervisorWrap(supervisorID string, req AllocateRequest) AllocateRequest {
	req.SupervisorID = supervisorID
	return req
}

// Allocate mints the next segment identity for req, or returns
// (nil, nil) for the two documented "cannot allocate" outcomes that are
// not themselves errors: a forked sequence (spec §4.3 step 5) or a query
// granularity the effective segment granularity can't satisfy (step
// 4). Unsupported partitioning/locking combinations and malformed
// requests are returned as errors, since spec §7 lists
// UnsupportedCombination alongside the Lockbox's other named error
// kinds rather than as a silent null.
func (a *Allocator) Allocate(req AllocateRequest) (*SegmentIdWithShardSpec, error) {
	ts, ok := req.Row.Timestamp()
	if !ok {
		return nil, fmt.Errorf("%w: sequence=%s", ErrUnparseableTimestamp, req.SequenceName)
	}
	kind := req.Kind
	if kind == "" {
		kind = lease.Shared
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !req.SkipLineageCheck {
		if tail := a.sequenceTail[req.SequenceName]; tail != req.PreviousSegmentID {
			level.Debug(a.logger).Log("msg", "allocate: sequence lineage mismatch, signalling fork",
				"sequence", req.SequenceName, "want", tail, "got", req.PreviousSegmentID)
			return nil, nil
		}
	}

	iv, effectiveGranularity, err := a.resolveInterval(req.DataSource, ts, req.PreferredSegmentGranularity)
	if err != nil {
		return nil, err
	}
	if Coarser(req.QueryGranularity, effectiveGranularity) {
		level.Debug(a.logger).Log("msg", "allocate: query granularity coarser than effective segment granularity",
			"query", req.QueryGranularity, "effective", effectiveGranularity, "interval", iv)
		return nil, nil
	}

	partial, err := buildPartialShardSpec(req)
	if err != nil {
		return nil, err
	}

	_, seg, err := lockbox.MintUnderLock(a.lb, req.TaskID, iv, kind, req.Granularity, "",
		func(l lease.Lease) (SegmentIdWithShardSpec, error) {
			prev, err := a.index.MaxPartitionSpec(req.DataSource, iv)
			if err != nil && !errors.Is(err, journal.ErrNotFound) {
				return SegmentIdWithShardSpec{}, fmt.Errorf("allocator: reading previous max partition spec: %w", err)
			}
			if errors.Is(err, journal.ErrNotFound) {
				prev = nil
			}
			// Identities minted here are not yet published, so the index
			// alone would hand out the same partition number again.
			key := req.DataSource + "|" + iv.String()
			if last, ok := a.lastMinted[key]; ok && (prev == nil || last.PartitionNum() > prev.PartitionNum()) {
				prev = last
			}
			spec := partial.Complete(prev)
			a.lastMinted[key] = spec
			id := SegmentID{DataSource: req.DataSource, Interval: iv, Version: l.Version}
			return SegmentIdWithShardSpec{SegmentID: id, ShardSpec: spec}, nil
		})
	if err != nil {
		return nil, err
	}

	a.sequenceTail[req.SequenceName] = seg.SegmentID.String()
	a.metrics.AllocationsTotal.WithLabelValues(string(req.Analysis.Kind())).Inc()
	level.Info(a.logger).Log("msg", "segment allocated", "task", req.TaskID, "sequence", req.SequenceName,
		"interval", iv, "version", seg.SegmentID.Version, "partition", seg.ShardSpec.PartitionNum(),
		"supervisor", req.SupervisorID)
	return &seg, nil
}

// resolveInterval picks the interval a new allocation for ts should
// target, aligning to whatever granularity existing historical
// segments were published under rather than trusting preferred
// blindly in either direction (spec §4.3 "Finer preferred granularity
// than existing segments: snap upward to existing coarser bucket").
// The scenarios in spec §8 (S3 snaps a coarser DAY request down to an
// existing HOUR bucket; S4 then refuses a DAY query against that same
// HOUR-governed interval) only resolve consistently if "snap" applies
// symmetrically regardless of which direction preferred differs from
// history, which is the reading this implementation commits to.
func (a *Allocator) resolveInterval(dataSource string, ts time.Time, preferred Granularity) (interval.Interval, Granularity, error) {
	start, end, ok := Bucket(preferred, ts)
	if !ok {
		return interval.Interval{}, "", fmt.Errorf("allocator: preferred segment granularity %q has no bucket", preferred)
	}
	candidate, err := interval.New(start, end)
	if err != nil {
		return interval.Interval{}, "", err
	}

	segs, err := a.index.SegmentsOverlapping(dataSource, candidate)
	if err != nil {
		return interval.Interval{}, "", fmt.Errorf("allocator: querying historical segments: %w", err)
	}

	for _, seg := range segs {
		if seg.Interval.Duration() != candidate.Duration() && seg.Interval.Contains(ts) {
			return seg.Interval, granularityForDuration(seg.Interval.Duration()), nil
		}
	}
	for _, seg := range segs {
		if seg.Interval.Duration() >= candidate.Duration() {
			continue
		}
		g := granularityForDuration(seg.Interval.Duration())
		if g == "" {
			continue
		}
		if s, e, ok := Bucket(g, ts); ok {
			if iv, err := interval.New(s, e); err == nil {
				return iv, g, nil
			}
		}
	}
	return candidate, preferred, nil
}
