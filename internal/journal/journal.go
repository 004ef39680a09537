// Package journal defines the three external collaborators the
// Lockbox core consumes but never owns (spec §1, §6): a durable lock
// journal, a task catalog, and a historical segment index. The
// interfaces here are intentionally narrow — append/replace/remove/list
// for the journal, lookup/enumerate for the catalog, two read queries
// for the segment index — mirroring how the teacher's storage package
// exposes a minimal Store interface rather than a general database
// client.
package journal

import (
	"errors"
	"sort"
	"sync"

	"github.com/UnicodeSec/druid/internal/interval"
	"github.com/UnicodeSec/druid/internal/lease"
	"github.com/UnicodeSec/druid/internal/partition"
)

// ErrNotFound is returned when a lookup finds nothing, mirroring the
// teacher's ErrKeyNotFound sentinel so callers can errors.Is against a
// single well-known value instead of string-matching.
var ErrNotFound = errors.New("journal: not found")

// Journal is the append-only durable log of lease records (spec §6
// "Lock journal"). Durability is the implementation's responsibility,
// not the Lockbox's; the core only needs these five operations to stay
// consistent with whatever backs them.
type Journal interface {
	// Append records a new lease held by taskID.
	Append(taskID string, l lease.Lease) error

	// Replace atomically swaps an existing record for a new lease
	// value, used by revoke/upgrade/downgrade which mutate a lease in
	// place rather than releasing and re-granting it.
	Replace(taskID string, old, new lease.Lease) error

	// Remove deletes the record for taskID holding l. Removing an
	// unknown record is not an error: callers (Lockbox.unlock,
	// Lockbox.remove) treat it as idempotent.
	Remove(taskID string, l lease.Lease) error

	// ListByTask returns every lease record held by taskID, ordered by
	// Version ascending.
	ListByTask(taskID string) ([]lease.Lease, error)

	// ListActiveTasks returns the distinct set of task ids with at
	// least one journal record, used by sync_from_storage to rebuild
	// the active-task set on restart.
	ListActiveTasks() ([]string, error)
}

// TaskCatalog looks up task metadata the Lockbox needs but does not
// own itself (spec §6 "Task catalog").
type TaskCatalog interface {
	// TaskByID returns the task's descriptor, or ErrNotFound.
	TaskByID(id string) (lease.TaskInfo, error)

	// ActiveTasks enumerates every task the catalog currently considers
	// active, consulted during sync_from_storage.
	ActiveTasks() ([]lease.TaskInfo, error)
}

// SegmentIndex answers the two read-only historical queries the
// allocator needs (spec §6 "Historical segment index"): the
// previous-maximum shard spec in an interval, and which published
// segments overlap a candidate interval.
type SegmentIndex interface {
	// MaxPartitionSpec returns the shard spec with the greatest
	// partition number already published for (dataSource, iv), or
	// ErrNotFound if the interval has no published segments yet.
	MaxPartitionSpec(dataSource string, iv interval.Interval) (partition.ShardSpec, error)

	// SegmentsOverlapping returns every published segment whose
	// interval overlaps iv, used to snap preferred granularity to an
	// existing coarser bucket and to detect "cannot add to existing
	// single-dim shards".
	SegmentsOverlapping(dataSource string, iv interval.Interval) ([]DataSegment, error)
}

// DataSegment is the minimal published-segment record the core reads
// back from the segment index: enough to know its interval, version
// and shard spec, never its physical storage location.
type DataSegment struct {
	DataSource string
	Interval   interval.Interval
	Version    string
	ShardSpec  partition.ShardSpec
}

// MemoryJournal is an in-memory Journal, the reference implementation
// used by tests and by cmd/lockboxctl when no external journal is
// configured. It has no persistence across process restarts — exactly
// the posture spec §1 assigns to the journal's durability contract
// being external to the core, just inverted for convenience: here the
// "external" store happens to live in the same process.
type MemoryJournal struct {
	mu      sync.RWMutex
	records map[string][]lease.Lease // taskID -> leases held, in append order
}

// NewMemoryJournal returns an empty MemoryJournal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{records: make(map[string][]lease.Lease)}
}

// Append implements Journal.
func (j *MemoryJournal) Append(taskID string, l lease.Lease) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records[taskID] = append(j.records[taskID], l)
	return nil
}

// Replace implements Journal.
func (j *MemoryJournal) Replace(taskID string, old, new lease.Lease) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	leases := j.records[taskID]
	for i, l := range leases {
		if l == old {
			leases[i] = new
			return nil
		}
	}
	return ErrNotFound
}

// Remove implements Journal. Removing a record that isn't present is a
// no-op, matching the Lockbox's idempotent unlock/remove contract.
func (j *MemoryJournal) Remove(taskID string, l lease.Lease) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	leases := j.records[taskID]
	for i, cur := range leases {
		if cur == l {
			j.records[taskID] = append(leases[:i], leases[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListByTask implements Journal.
func (j *MemoryJournal) ListByTask(taskID string) ([]lease.Lease, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]lease.Lease, len(j.records[taskID]))
	copy(out, j.records[taskID])
	sort.SliceStable(out, func(a, b int) bool { return out[a].Version < out[b].Version })
	return out, nil
}

// ListActiveTasks implements Journal.
func (j *MemoryJournal) ListActiveTasks() ([]string, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]string, 0, len(j.records))
	for taskID, leases := range j.records {
		if len(leases) > 0 {
			out = append(out, taskID)
		}
	}
	return out, nil
}

// FailingJournal wraps a Journal and forces Append and Replace to fail
// (Remove and the reads pass through to the wrapped Journal),
// exercising the Lockbox's JournalFailure rollback path (spec §5
// "Shared resources", §7 "JournalFailure") without needing a real
// unreliable backend.
type FailingJournal struct {
	Journal
	Err error
}

// Append always fails.
func (f FailingJournal) Append(string, lease.Lease) error { return f.failure() }

// Replace always fails.
func (f FailingJournal) Replace(string, lease.Lease, lease.Lease) error { return f.failure() }

func (f FailingJournal) failure() error {
	if f.Err != nil {
		return f.Err
	}
	return errors.New("journal: simulated write failure")
}
