package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/UnicodeSec/druid/internal/allocator"
	"github.com/UnicodeSec/druid/internal/interval"
	"github.com/UnicodeSec/druid/internal/journal"
	"github.com/UnicodeSec/druid/internal/lease"
	"github.com/UnicodeSec/druid/internal/lockbox"
	"github.com/UnicodeSec/druid/internal/partition"

	"github.com/spf13/cobra"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario [name]",
	Short: "Run one of the spec's worked end-to-end scenarios (spec §8)",
	Long: `scenario reproduces one of the six concrete end-to-end scenarios
named in spec §8 (S1 "many segments, one interval" through S6 "bulk
with revocation") against a fresh harness and prints what happened.
With no argument it runs all six in order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScenario,
}

func at(hour int) time.Time {
	return time.Date(2024, 5, 1, hour, 0, 0, 0, time.UTC)
}

type scenarioResult struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
	OK     bool   `json:"ok"`
}

var scenarios = map[string]func() scenarioResult{
	"s1": scenarioManySegmentsOneInterval,
	"s2": scenarioResumeSequence,
	"s3": scenarioSnapToExisting,
	"s4": scenarioForbiddenCoarserQuery,
	"s5": scenarioRangeRouting,
	"s6": scenarioBulkWithRevocation,
}

func runScenario(cmd *cobra.Command, args []string) error {
	names := []string{"s1", "s2", "s3", "s4", "s5", "s6"}
	if len(args) == 1 {
		if _, ok := scenarios[args[0]]; !ok {
			return fmt.Errorf("unrecognized scenario %q (want one of s1..s6)", args[0])
		}
		names = []string{args[0]}
	}

	results := make([]scenarioResult, 0, len(names))
	for _, name := range names {
		results = append(results, scenarios[name]())
	}
	return printJSON(results)
}

// scenarioManySegmentsOneInterval reproduces S1: three allocations for
// rows in the same hour bucket return partition numbers 0, 1, 2
// sharing one version.
func scenarioManySegmentsOneInterval() scenarioResult {
	h := newHarness()
	task := h.addTask("", "g1", "ds", 1)
	r := cliRow{MapRow: partition.MapRow{}, ts: at(12)}

	var got []int
	prev := ""
	for i := 0; i < 3; i++ {
		req := baseAllocRequest(task.ID, r, partition.DynamicAnalysis{})
		req.PreviousSegmentID = prev
		req.SkipLineageCheck = i == 0
		seg, err := h.alloc.Allocate(req)
		if err != nil || seg == nil {
			return scenarioResult{Name: "S1", OK: false, Detail: fmt.Sprintf("allocation %d failed: %v", i, err)}
		}
		got = append(got, seg.ShardSpec.PartitionNum())
		prev = seg.SegmentID.String()
	}
	ok := len(got) == 3 && got[0] == 0 && got[1] == 1 && got[2] == 2
	return scenarioResult{Name: "S1", OK: ok, Detail: fmt.Sprintf("partition numbers minted: %v", got)}
}

// scenarioResumeSequence reproduces S2: resuming a sequence with a
// stale previous pointer returns nil (forked), but a genuinely new
// interval still allocates.
func scenarioResumeSequence() scenarioResult {
	h := newHarness()
	task := h.addTask("", "g1", "ds", 1)
	r := cliRow{MapRow: partition.MapRow{}, ts: at(12)}

	first := baseAllocRequest(task.ID, r, partition.DynamicAnalysis{})
	first.SkipLineageCheck = true
	id1, err := h.alloc.Allocate(first)
	if err != nil || id1 == nil {
		return scenarioResult{Name: "S2", OK: false, Detail: fmt.Sprintf("seed allocation failed: %v", err)}
	}

	forked := baseAllocRequest(task.ID, r, partition.DynamicAnalysis{})
	// The empty pointer the sequence started from is stale once id1 is its tail.
	forked.PreviousSegmentID = ""
	forked.SkipLineageCheck = false
	seg, err := h.alloc.Allocate(forked)
	if err != nil {
		return scenarioResult{Name: "S2", OK: false, Detail: fmt.Sprintf("unexpected error: %v", err)}
	}
	if seg != nil {
		return scenarioResult{Name: "S2", OK: false, Detail: "expected nil for a forked sequence, got a segment"}
	}

	distantRow := cliRow{MapRow: partition.MapRow{}, ts: time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)}
	distant := baseAllocRequest(task.ID, distantRow, partition.DynamicAnalysis{})
	distant.PreviousSegmentID = id1.SegmentID.String()
	distant.SkipLineageCheck = false
	distantSeg, err := h.alloc.Allocate(distant)
	if err != nil || distantSeg == nil {
		return scenarioResult{Name: "S2", OK: false, Detail: fmt.Sprintf("distant-interval allocation failed: %v", err)}
	}
	return scenarioResult{Name: "S2", OK: true, Detail: "forked sequence returned nil; distinct-interval allocation succeeded"}
}

// scenarioSnapToExisting reproduces S3: with hourly NumberedShardSpec
// segments already published, a DAY-preferred/NONE-query allocation
// snaps down to the hour bucket and returns partition 2.
func scenarioSnapToExisting() scenarioResult {
	h := newHarness()
	task := h.addTask("", "g1", "ds", 1)
	hourIv := interval.MustNew(at(12), at(13))
	h.index.Announce(journal.DataSegment{DataSource: "ds", Interval: hourIv, Version: "v1", ShardSpec: partition.NumberedShardSpec{PartitionNumber: 0, NumCorePartitions: 2}})
	h.index.Announce(journal.DataSegment{DataSource: "ds", Interval: hourIv, Version: "v1", ShardSpec: partition.NumberedShardSpec{PartitionNumber: 1, NumCorePartitions: 2}})

	r := cliRow{MapRow: partition.MapRow{}, ts: at(12)}
	req := baseAllocRequest(task.ID, r, partition.DynamicAnalysis{})
	req.QueryGranularity = allocator.None
	req.PreferredSegmentGranularity = allocator.Day
	req.SkipLineageCheck = true

	seg, err := h.alloc.Allocate(req)
	if err != nil || seg == nil {
		return scenarioResult{Name: "S3", OK: false, Detail: fmt.Sprintf("allocation failed: %v", err)}
	}
	ok := seg.ShardSpec.PartitionNum() == 2 && seg.SegmentID.Interval.Equal(hourIv)
	return scenarioResult{Name: "S3", OK: ok, Detail: fmt.Sprintf("snapped to %s, partition %d", seg.SegmentID.Interval, seg.ShardSpec.PartitionNum())}
}

// scenarioForbiddenCoarserQuery reproduces S4: the same historical
// setup as S3, but a DAY query granularity against an effective HOUR
// bucket is refused (nil, no error).
func scenarioForbiddenCoarserQuery() scenarioResult {
	h := newHarness()
	task := h.addTask("", "g1", "ds", 1)
	hourIv := interval.MustNew(at(12), at(13))
	h.index.Announce(journal.DataSegment{DataSource: "ds", Interval: hourIv, Version: "v1", ShardSpec: partition.NumberedShardSpec{PartitionNumber: 0, NumCorePartitions: 2}})
	h.index.Announce(journal.DataSegment{DataSource: "ds", Interval: hourIv, Version: "v1", ShardSpec: partition.NumberedShardSpec{PartitionNumber: 1, NumCorePartitions: 2}})

	r := cliRow{MapRow: partition.MapRow{}, ts: at(12)}
	req := baseAllocRequest(task.ID, r, partition.DynamicAnalysis{})
	req.QueryGranularity = allocator.Day
	req.PreferredSegmentGranularity = allocator.Day
	req.SkipLineageCheck = true

	seg, err := h.alloc.Allocate(req)
	if err != nil {
		return scenarioResult{Name: "S4", OK: false, Detail: fmt.Sprintf("unexpected error: %v", err)}
	}
	ok := seg == nil
	return scenarioResult{Name: "S4", OK: ok, Detail: "DAY query against an HOUR-governed interval refused as expected"}
}

// scenarioRangeRouting reproduces S5: boundaries built from [c, f]
// route "b","d","g" to buckets 0, 1, 2 respectively.
func scenarioRangeRouting() scenarioResult {
	b := partition.NewBoundaries([]string{"c", "f"})
	got := map[string]int{
		"b": b.BucketFor(strPtr("b")),
		"d": b.BucketFor(strPtr("d")),
		"g": b.BucketFor(strPtr("g")),
	}
	ok := got["b"] == 0 && got["d"] == 1 && got["g"] == 2
	return scenarioResult{Name: "S5", OK: ok, Detail: fmt.Sprintf("buckets: %v", got)}
}

// scenarioBulkWithRevocation reproduces S6: a priority-5 bulk
// allocation over an interval already held by a priority-1 task
// revokes it; the priority-1 task's next try_lock sees ErrRevoked.
func scenarioBulkWithRevocation() scenarioResult {
	h := newHarness()
	low := h.addTask("", "low", "ds", 1)
	high := h.addTask("", "high", "ds", 5)
	iv := interval.MustNew(at(0), at(1))

	if _, err := h.lockbox.TryLock(low.ID, iv, lease.Exclusive); err != nil {
		return scenarioResult{Name: "S6", OK: false, Detail: fmt.Sprintf("low-priority lock failed: %v", err)}
	}

	ids, err := h.alloc.AllocateBulk(allocator.BulkRequest{
		TaskID:     high.ID,
		DataSource: "ds",
		Interval:   iv,
		Priority:   5,
		Specs:      []partition.PartialShardSpec{partition.NumberedPartial{}, partition.NumberedPartial{}},
	})
	if err != nil {
		return scenarioResult{Name: "S6", OK: false, Detail: fmt.Sprintf("bulk allocation failed: %v", err)}
	}

	_, lockErr := h.lockbox.TryLock(low.ID, iv, lease.Exclusive)
	ok := len(ids) == 2 && errors.Is(lockErr, lockbox.ErrRevoked)
	return scenarioResult{Name: "S6", OK: ok, Detail: fmt.Sprintf("minted %d ids; low-priority task now sees: %v", len(ids), lockErr)}
}

func baseAllocRequest(taskID string, r allocator.TimestampedRow, analysis partition.Analysis) allocator.AllocateRequest {
	return allocator.AllocateRequest{
		TaskID:                      taskID,
		DataSource:                  "ds",
		GroupID:                     "g1",
		Priority:                    1,
		Kind:                        lease.Shared,
		Row:                         r,
		Analysis:                    analysis,
		Granularity:                 lease.TimeChunk,
		QueryGranularity:            allocator.None,
		PreferredSegmentGranularity: allocator.Hour,
		SequenceName:                "seq1",
	}
}

func strPtr(s string) *string { return &s }
