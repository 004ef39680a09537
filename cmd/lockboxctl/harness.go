package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/UnicodeSec/druid/internal/allocator"
	"github.com/UnicodeSec/druid/internal/clock"
	"github.com/UnicodeSec/druid/internal/journal"
	"github.com/UnicodeSec/druid/internal/lease"
	"github.com/UnicodeSec/druid/internal/lockbox"
	"github.com/UnicodeSec/druid/internal/lockconfig"
	"github.com/UnicodeSec/druid/internal/logging"
	"github.com/UnicodeSec/druid/internal/partition"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// jsonEncoder returns an indenting JSON encoder, used by every
// subcommand's final print step.
func jsonEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}

// harness bundles one freshly constructed, empty instance of every
// collaborator the library needs: the reference Journal, TaskCatalog
// and SegmentIndex, plus the Lockbox and Allocator built on top of
// them. Every lockboxctl subcommand builds one of these, runs a single
// operation, and throws it away — there is no persistence across
// invocations, matching the "demonstration tool, not a service"
// posture in SPEC_FULL.md.
type harness struct {
	journal *journal.MemoryJournal
	catalog *journal.MemoryTaskCatalog
	index   *journal.MemorySegmentIndex
	clock   *clock.FakeClock
	lockbox *lockbox.Lockbox
	alloc   *allocator.Allocator
}

func newHarness() *harness {
	j := journal.NewMemoryJournal()
	cat := journal.NewMemoryTaskCatalog()
	idx := journal.NewMemorySegmentIndex()
	fc := clock.NewFakeClock(time.Now().UTC())
	vers := clock.NewVersioner(fc)
	logger := logging.NewLogger()
	reg := prometheus.NewRegistry()
	lb := lockbox.New(j, cat, vers, fc, lockconfig.DefaultConfig(), logger, reg)
	a := allocator.New(lb, idx, logger, reg)
	return &harness{journal: j, catalog: cat, index: idx, clock: fc, lockbox: lb, alloc: a}
}

// addTask registers a task with both the catalog and the Lockbox,
// generating a fresh task id via google/uuid when the caller didn't
// name one — the CLI equivalent of a real caller minting its own task
// id before it ever talks to the Lockbox.
func (h *harness) addTask(taskID, groupID, dataSource string, priority int) lease.TaskInfo {
	if taskID == "" {
		taskID = uuid.New().String()
	}
	t := lease.TaskInfo{ID: taskID, GroupID: groupID, DataSource: dataSource, Priority: priority}
	h.catalog.Put(t)
	h.lockbox.Add(t)
	return t
}

// cliRow is the TimestampedRow implementation lockboxctl feeds into
// the Segment Allocator: a flat dimension map plus the fixed event
// timestamp the --ts flag names.
type cliRow struct {
	partition.MapRow
	ts time.Time
}

func (r cliRow) Timestamp() (time.Time, bool) { return r.ts, true }
