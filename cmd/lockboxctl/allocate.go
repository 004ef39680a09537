package main

import (
	"fmt"
	"time"

	"github.com/UnicodeSec/druid/internal/allocator"
	"github.com/UnicodeSec/druid/internal/lease"
	"github.com/UnicodeSec/druid/internal/partition"

	"github.com/spf13/cobra"
)

var (
	allocTask          string
	allocGroup         string
	allocDataSource    string
	allocPriority      int
	allocTimestamp     string
	allocSequence      string
	allocPrev          string
	allocSkipLineage   bool
	allocLockGran      string
	allocSegmentGran   string
	allocQueryGran     string
	allocScheme        string
	allocDims          []string
	allocBuckets       int
	allocRangeDim      string
	allocBoundaries    []string
	allocRow           map[string]string
)

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Mint one segment identity for a single row (spec §4.3)",
	Long: `allocate builds a fresh Lockbox and Allocator, registers one task,
and calls Allocate once for a single row built from --row key=value
pairs and --ts. It prints the minted SegmentIdWithShardSpec as JSON, or
"null" for the documented non-error "cannot allocate" outcome.`,
	RunE: runAllocate,
}

func init() {
	f := allocateCmd.Flags()
	f.StringVar(&allocTask, "task", "", "task id (default: generated)")
	f.StringVar(&allocGroup, "group", "group-1", "group id")
	f.StringVar(&allocDataSource, "datasource", "wikipedia", "data source name")
	f.IntVar(&allocPriority, "priority", 1, "task priority")
	f.StringVar(&allocTimestamp, "ts", "", "row event timestamp, RFC3339 (required)")
	f.StringVar(&allocSequence, "sequence", "seq1", "sequence name")
	f.StringVar(&allocPrev, "prev", "", "previous segment id for the sequence-lineage check")
	f.BoolVar(&allocSkipLineage, "skip-lineage", true, "skip the sequence-lineage check")
	f.StringVar(&allocLockGran, "lock-granularity", "TIME_CHUNK", "TIME_CHUNK or SEGMENT")
	f.StringVar(&allocSegmentGran, "segment-granularity", "HOUR", "preferred segment granularity")
	f.StringVar(&allocQueryGran, "query-granularity", "NONE", "query granularity")
	f.StringVar(&allocScheme, "scheme", "dynamic", "dynamic, hashed, or single_dim")
	f.StringSliceVar(&allocDims, "dims", nil, "hashed scheme: partition dimensions")
	f.IntVar(&allocBuckets, "buckets", 4, "hashed scheme: number of buckets")
	f.StringVar(&allocRangeDim, "range-dim", "", "single_dim scheme: partitioning dimension")
	f.StringSliceVar(&allocBoundaries, "boundaries", nil, "single_dim scheme: sorted cut points")
	f.StringToStringVar(&allocRow, "row", nil, "row dimension values, key=value (repeatable)")
	_ = allocateCmd.MarkFlagRequired("ts")
}

func runAllocate(cmd *cobra.Command, args []string) error {
	ts, err := time.Parse(time.RFC3339, allocTimestamp)
	if err != nil {
		return fmt.Errorf("--ts: %w", err)
	}

	analysis, err := buildAnalysis()
	if err != nil {
		return err
	}

	h := newHarness()
	task := h.addTask(allocTask, allocGroup, allocDataSource, allocPriority)

	req := allocator.AllocateRequest{
		TaskID:                      task.ID,
		DataSource:                  allocDataSource,
		GroupID:                     allocGroup,
		Priority:                    allocPriority,
		Kind:                        lease.Shared,
		Row:                         cliRow{MapRow: partition.MapRow(allocRow), ts: ts},
		Analysis:                    analysis,
		Granularity:                 lease.Granularity(allocLockGran),
		QueryGranularity:            allocator.Granularity(allocQueryGran),
		PreferredSegmentGranularity: allocator.Granularity(allocSegmentGran),
		SequenceName:                allocSequence,
		PreviousSegmentID:           allocPrev,
		SkipLineageCheck:            allocSkipLineage,
	}

	seg, err := h.alloc.Allocate(req)
	if err != nil {
		return err
	}
	return printJSON(seg)
}

func buildAnalysis() (partition.Analysis, error) {
	switch allocScheme {
	case "dynamic":
		return partition.DynamicAnalysis{}, nil
	case "hashed":
		return partition.HashedAnalysis{NumBuckets: allocBuckets, PartitionDimensions: allocDims}, nil
	case "single_dim":
		if allocRangeDim == "" {
			return nil, fmt.Errorf("--range-dim is required for the single_dim scheme")
		}
		return partition.SingleDimAnalysis{Dimension: allocRangeDim, Boundaries: partition.NewBoundaries(allocBoundaries)}, nil
	default:
		return nil, fmt.Errorf("unrecognized --scheme %q (want dynamic, hashed, or single_dim)", allocScheme)
	}
}
