// Package lease defines the Lease (TaskLock) entity and its supporting
// enums, shared by the Lockbox, the journal, and the allocator so none
// of them has to import one another just to talk about the same
// record (spec §3 "Entity: Lease (TaskLock)").
package lease

import "github.com/UnicodeSec/druid/internal/interval"

// Kind distinguishes a shared (co-held) lease from an exclusive one.
type Kind string

const (
	Shared    Kind = "SHARED"
	Exclusive Kind = "EXCLUSIVE"
)

// Granularity names whether a lease covers a whole time-chunk bucket or
// a single segment-level slice of one.
type Granularity string

const (
	TimeChunk Granularity = "TIME_CHUNK"
	Segment   Granularity = "SEGMENT"
)

// Lease is the tuple {kind, granularity, groupId, dataSource, interval,
// version, priority, revoked, upgraded} from spec §3. Revoked is a
// sticky flag: once true, it is never cleared. Upgraded is meaningful
// only for Exclusive leases and makes the lease immune to preemption.
type Lease struct {
	Kind        Kind              `json:"kind"`
	Granularity Granularity       `json:"granularity"`
	GroupID     string            `json:"groupId"`
	DataSource  string            `json:"dataSource"`
	Interval    interval.Interval `json:"interval"`
	Version     string            `json:"version"`
	Priority    int               `json:"priority"`
	Revoked     bool              `json:"revoked"`
	Upgraded    bool              `json:"upgraded"`
}

// Revocable reports whether this lease may be preempted by a requester
// of requesterPriority, per spec §4.1 step 4: strictly lower priority
// and not upgraded.
func (l Lease) Revocable(requesterPriority int) bool {
	return !l.Upgraded && l.Priority < requesterPriority
}

// TaskInfo is the task-catalog-resident descriptor of a task: the
// fields the Lockbox needs to validate a request and to group it with
// others (spec §6 "Task catalog").
type TaskInfo struct {
	ID         string
	GroupID    string
	DataSource string
	Priority   int
}

// Record is what the journal persists: a lease paired with the id of
// one task holding it. A posse with N holder tasks is N journal
// records sharing the same Lease value.
type Record struct {
	TaskID string
	Lease  Lease
}
