package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/UnicodeSec/druid/internal/interval"
	"github.com/UnicodeSec/druid/internal/lease"
	"github.com/UnicodeSec/druid/internal/partition"
)

func dayIV(n int) interval.Interval {
	start := time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
	return interval.MustNew(start, start.Add(24*time.Hour))
}

func TestMemoryJournalAppendAndList(t *testing.T) {
	j := NewMemoryJournal()
	l := lease.Lease{DataSource: "ds", Interval: dayIV(1), Version: "v1"}

	if err := j.Append("task-1", l); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := j.ListByTask("task-1")
	if err != nil {
		t.Fatalf("ListByTask: %v", err)
	}
	if len(got) != 1 || got[0] != l {
		t.Fatalf("ListByTask = %+v, want [%+v]", got, l)
	}
}

func TestMemoryJournalReplace(t *testing.T) {
	j := NewMemoryJournal()
	old := lease.Lease{DataSource: "ds", Interval: dayIV(1), Version: "v1"}
	new := lease.Lease{DataSource: "ds", Interval: dayIV(1), Version: "v1", Upgraded: true}

	_ = j.Append("task-1", old)
	if err := j.Replace("task-1", old, new); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, _ := j.ListByTask("task-1")
	if len(got) != 1 || got[0] != new {
		t.Fatalf("ListByTask after Replace = %+v, want [%+v]", got, new)
	}
}

func TestMemoryJournalReplaceUnknownFails(t *testing.T) {
	j := NewMemoryJournal()
	unknown := lease.Lease{Version: "nope"}
	if err := j.Replace("task-1", unknown, unknown); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Replace on unknown record: got %v, want ErrNotFound", err)
	}
}

func TestMemoryJournalRemoveIdempotent(t *testing.T) {
	j := NewMemoryJournal()
	l := lease.Lease{DataSource: "ds", Interval: dayIV(1), Version: "v1"}
	_ = j.Append("task-1", l)

	if err := j.Remove("task-1", l); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// removing again must not error
	if err := j.Remove("task-1", l); err != nil {
		t.Fatalf("second Remove: %v", err)
	}

	got, _ := j.ListByTask("task-1")
	if len(got) != 0 {
		t.Fatalf("ListByTask after Remove = %+v, want empty", got)
	}
}

func TestMemoryJournalListActiveTasks(t *testing.T) {
	j := NewMemoryJournal()
	_ = j.Append("task-1", lease.Lease{Version: "v1"})
	_ = j.Append("task-2", lease.Lease{Version: "v1"})

	active, err := j.ListActiveTasks()
	if err != nil {
		t.Fatalf("ListActiveTasks: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("ListActiveTasks = %v, want 2 entries", active)
	}
}

func TestFailingJournalFailsWrites(t *testing.T) {
	fj := FailingJournal{Journal: NewMemoryJournal()}
	if err := fj.Append("task-1", lease.Lease{}); err == nil {
		t.Fatal("expected Append to fail")
	}
	if err := fj.Replace("task-1", lease.Lease{}, lease.Lease{}); err == nil {
		t.Fatal("expected Replace to fail")
	}
}

func TestMemoryTaskCatalog(t *testing.T) {
	c := NewMemoryTaskCatalog()
	info := lease.TaskInfo{ID: "task-1", GroupID: "g1", DataSource: "ds", Priority: 5}
	c.Put(info)

	got, err := c.TaskByID("task-1")
	if err != nil {
		t.Fatalf("TaskByID: %v", err)
	}
	if got != info {
		t.Fatalf("TaskByID = %+v, want %+v", got, info)
	}

	if _, err := c.TaskByID("unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("TaskByID(unknown) = %v, want ErrNotFound", err)
	}

	c.Remove("task-1")
	if _, err := c.TaskByID("task-1"); !errors.Is(err, ErrNotFound) {
		t.Fatal("expected task to be gone after Remove")
	}
}

func TestMemorySegmentIndexMaxPartitionSpec(t *testing.T) {
	idx := NewMemorySegmentIndex()
	iv := dayIV(1)

	if _, err := idx.MaxPartitionSpec("ds", iv); !errors.Is(err, ErrNotFound) {
		t.Fatalf("MaxPartitionSpec on empty index = %v, want ErrNotFound", err)
	}
}

func TestMemorySegmentIndexMaxPartitionSpecPicksHighest(t *testing.T) {
	idx := NewMemorySegmentIndex()
	iv := dayIV(1)
	idx.Announce(DataSegment{DataSource: "ds", Interval: iv, Version: "v1", ShardSpec: partition.NumberedShardSpec{PartitionNumber: 0}})
	idx.Announce(DataSegment{DataSource: "ds", Interval: iv, Version: "v1", ShardSpec: partition.NumberedShardSpec{PartitionNumber: 2}})
	idx.Announce(DataSegment{DataSource: "ds", Interval: iv, Version: "v1", ShardSpec: partition.NumberedShardSpec{PartitionNumber: 1}})

	max, err := idx.MaxPartitionSpec("ds", iv)
	if err != nil {
		t.Fatalf("MaxPartitionSpec: %v", err)
	}
	if max.PartitionNum() != 2 {
		t.Fatalf("MaxPartitionSpec().PartitionNum() = %d, want 2", max.PartitionNum())
	}
}

func TestMemorySegmentIndexSegmentsOverlapping(t *testing.T) {
	idx := NewMemorySegmentIndex()
	iv := dayIV(1)
	idx.Announce(DataSegment{DataSource: "ds", Interval: iv, Version: "v1"})

	overlapping, err := idx.SegmentsOverlapping("ds", iv)
	if err != nil {
		t.Fatalf("SegmentsOverlapping: %v", err)
	}
	if len(overlapping) != 1 {
		t.Fatalf("SegmentsOverlapping = %v, want 1 entry", overlapping)
	}

	disjoint := dayIV(5)
	overlapping, _ = idx.SegmentsOverlapping("ds", disjoint)
	if len(overlapping) != 0 {
		t.Fatalf("SegmentsOverlapping(disjoint) = %v, want empty", overlapping)
	}
}
