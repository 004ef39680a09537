package lockbox_test

import (
	"errors"
	"testing"
	"time"

	"github.com/UnicodeSec/druid/internal/clock"
	"github.com/UnicodeSec/druid/internal/interval"
	"github.com/UnicodeSec/druid/internal/journal"
	"github.com/UnicodeSec/druid/internal/lease"
	"github.com/UnicodeSec/druid/internal/lockbox"
	"github.com/UnicodeSec/druid/internal/lockconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 3, n, 0, 0, 0, 0, time.UTC)
}

func newTestLockbox(t *testing.T) (*lockbox.Lockbox, *journal.MemoryJournal, *journal.MemoryTaskCatalog, *clock.FakeClock) {
	t.Helper()
	j := journal.NewMemoryJournal()
	cat := journal.NewMemoryTaskCatalog()
	fc := clock.NewFakeClock(day(1))
	vers := clock.NewVersioner(fc)
	lb := lockbox.New(j, cat, vers, fc, lockconfig.DefaultConfig(), nil, nil)
	return lb, j, cat, fc
}

// TestExclusivityRejectsOverlappingExclusive verifies property 1: once
// one EXCLUSIVE lease holds an interval, a second task of equal
// priority cannot also acquire EXCLUSIVE over any overlapping range.
func TestExclusivityRejectsOverlappingExclusive(t *testing.T) {
	lb, _, _, _ := newTestLockbox(t)
	lb.Add(lease.TaskInfo{ID: "t1", GroupID: "g1", DataSource: "ds", Priority: 1})
	lb.Add(lease.TaskInfo{ID: "t2", GroupID: "g2", DataSource: "ds", Priority: 1})

	iv := interval.MustNew(day(1), day(2))
	_, err := lb.TryLock("t1", iv, lease.Exclusive)
	require.NoError(t, err)

	_, err = lb.TryLock("t2", iv, lease.Exclusive)
	assert.ErrorIs(t, err, lockbox.ErrContention)
}

// TestSharedLeasesCoexistWithinOneGroup verifies that multiple tasks
// in the same group can hold a SHARED lease over the same interval
// (property 1's "all-SHARED" branch).
func TestSharedLeasesCoexistWithinOneGroup(t *testing.T) {
	lb, _, _, _ := newTestLockbox(t)
	lb.Add(lease.TaskInfo{ID: "t1", GroupID: "g1", DataSource: "ds", Priority: 1})
	lb.Add(lease.TaskInfo{ID: "t2", GroupID: "g1", DataSource: "ds", Priority: 1})

	iv := interval.MustNew(day(1), day(2))
	l1, err := lb.TryLock("t1", iv, lease.Shared)
	require.NoError(t, err)
	l2, err := lb.TryLock("t2", iv, lease.Shared)
	require.NoError(t, err)

	assert.Equal(t, l1.Version, l2.Version)
}

// TestVersionMonotonicityAcrossSequentialGrants verifies property 2:
// successive grants over the same interval mint strictly increasing
// versions once the earlier lease has been released.
func TestVersionMonotonicityAcrossSequentialGrants(t *testing.T) {
	lb, _, _, fc := newTestLockbox(t)
	lb.Add(lease.TaskInfo{ID: "t1", GroupID: "g1", DataSource: "ds", Priority: 1})

	iv := interval.MustNew(day(1), day(2))
	l1, err := lb.TryLock("t1", iv, lease.Exclusive)
	require.NoError(t, err)

	lb.Unlock("t1", iv)
	fc.Advance(time.Second)

	l2, err := lb.TryLock("t1", iv, lease.Exclusive)
	require.NoError(t, err)

	assert.True(t, clock.Less(l1.Version, l2.Version), "expected %s < %s", l1.Version, l2.Version)
}

// TestPreemptionRevokesLowerPriorityHolder verifies property 6 /
// scenario S6: a higher-priority EXCLUSIVE request revokes a
// lower-priority holder's overlapping lease, and the revoked holder's
// next try_lock observes ErrRevoked.
func TestPreemptionRevokesLowerPriorityHolder(t *testing.T) {
	lb, _, _, _ := newTestLockbox(t)
	lb.Add(lease.TaskInfo{ID: "low", GroupID: "g1", DataSource: "ds", Priority: 1})
	lb.Add(lease.TaskInfo{ID: "high", GroupID: "g2", DataSource: "ds", Priority: 5})

	iv := interval.MustNew(day(1), day(2))
	_, err := lb.TryLock("low", iv, lease.Exclusive)
	require.NoError(t, err)

	_, err = lb.TryLock("high", iv, lease.Exclusive)
	require.NoError(t, err)

	_, err = lb.TryLock("low", iv, lease.Exclusive)
	assert.ErrorIs(t, err, lockbox.ErrRevoked)
}

// TestUpgradeGrantsPreemptionImmunity verifies property 7: an upgraded
// EXCLUSIVE lease is never revoked, regardless of a competing
// requester's priority.
func TestUpgradeGrantsPreemptionImmunity(t *testing.T) {
	lb, _, _, _ := newTestLockbox(t)
	lb.Add(lease.TaskInfo{ID: "protected", GroupID: "g1", DataSource: "ds", Priority: 1})
	lb.Add(lease.TaskInfo{ID: "attacker", GroupID: "g2", DataSource: "ds", Priority: 100})

	iv := interval.MustNew(day(1), day(2))
	_, err := lb.TryLock("protected", iv, lease.Exclusive)
	require.NoError(t, err)

	_, err = lb.Upgrade("protected", iv)
	require.NoError(t, err)

	_, err = lb.TryLock("attacker", iv, lease.Exclusive)
	assert.ErrorIs(t, err, lockbox.ErrContention)

	still, err := lb.TryLock("protected", iv, lease.Exclusive)
	require.NoError(t, err)
	assert.False(t, still.Revoked)
}

// TestDowngradeWakesBlockedWaiter verifies that clearing the upgraded
// flag makes a previously-immune lease revocable again, and that a
// blocked Lock() call notices before its timeout elapses.
func TestDowngradeWakesBlockedWaiter(t *testing.T) {
	lb, _, _, _ := newTestLockbox(t)
	lb.Add(lease.TaskInfo{ID: "holder", GroupID: "g1", DataSource: "ds", Priority: 1})
	lb.Add(lease.TaskInfo{ID: "waiter", GroupID: "g2", DataSource: "ds", Priority: 5})

	iv := interval.MustNew(day(1), day(2))
	_, err := lb.TryLock("holder", iv, lease.Exclusive)
	require.NoError(t, err)
	_, err = lb.Upgrade("holder", iv)
	require.NoError(t, err)

	// Make the holder revocable again concurrently with a long blocking
	// Lock() call from a higher-priority waiter.
	done := make(chan error, 1)
	go func() {
		_, err := lb.Lock("waiter", iv, lease.Exclusive, time.Minute)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	_, err = lb.Downgrade("holder", iv)
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Lock() did not wake up after Downgrade")
	}
}

// TestUnlockIsIdempotentOnUnknownInterval verifies spec §5: releasing
// an interval a task does not hold is a no-op, not an error.
func TestUnlockIsIdempotentOnUnknownInterval(t *testing.T) {
	lb, _, _, _ := newTestLockbox(t)
	lb.Add(lease.TaskInfo{ID: "t1", GroupID: "g1", DataSource: "ds", Priority: 1})

	assert.NotPanics(t, func() {
		lb.Unlock("t1", interval.MustNew(day(1), day(2)))
	})
}

// TestEmptyIntervalRejected verifies the EmptyInterval error kind.
func TestEmptyIntervalRejected(t *testing.T) {
	lb, _, _, _ := newTestLockbox(t)
	lb.Add(lease.TaskInfo{ID: "t1", GroupID: "g1", DataSource: "ds", Priority: 1})

	bad := interval.Interval{Start: day(2), End: day(1)}
	_, err := lb.TryLock("t1", bad, lease.Exclusive)
	assert.ErrorIs(t, err, lockbox.ErrEmptyInterval)
}

// TestInactiveTaskRejected verifies that an unknown task id is
// refused rather than silently granted.
func TestInactiveTaskRejected(t *testing.T) {
	lb, _, _, _ := newTestLockbox(t)
	_, err := lb.TryLock("ghost", interval.MustNew(day(1), day(2)), lease.Shared)
	assert.ErrorIs(t, err, lockbox.ErrInactiveTask)
}

// TestSyncFromStorageReplayEquivalence verifies property 8: rebuilding
// a Lockbox from the journal/catalog reproduces the same grant state
// (exclusivity, revocation, priority) the original process had.
func TestSyncFromStorageReplayEquivalence(t *testing.T) {
	lb, j, cat, _ := newTestLockbox(t)
	cat.Put(lease.TaskInfo{ID: "low", GroupID: "g1", DataSource: "ds", Priority: 1})
	cat.Put(lease.TaskInfo{ID: "high", GroupID: "g2", DataSource: "ds", Priority: 5})
	lb.Add(lease.TaskInfo{ID: "low", GroupID: "g1", DataSource: "ds", Priority: 1})
	lb.Add(lease.TaskInfo{ID: "high", GroupID: "g2", DataSource: "ds", Priority: 5})

	iv := interval.MustNew(day(1), day(2))
	_, err := lb.TryLock("low", iv, lease.Exclusive)
	require.NoError(t, err)
	_, err = lb.TryLock("high", iv, lease.Exclusive)
	require.NoError(t, err)

	fresh := lockbox.New(j, cat, clock.NewVersioner(clock.NewFakeClock(day(1))), clock.NewFakeClock(day(1)), lockconfig.DefaultConfig(), nil, nil)
	require.NoError(t, fresh.SyncFromStorage())

	lowLeases := fresh.FindLocksForTask("low")
	require.Len(t, lowLeases, 1)
	assert.True(t, lowLeases[0].Revoked)

	highLeases := fresh.FindLocksForTask("high")
	require.Len(t, highLeases, 1)
	assert.False(t, highLeases[0].Revoked)
}

// TestJournalFailureRollsBackGrant verifies that a journal write
// failure surfaces ErrJournalFailure and leaves no partial grant
// behind: the task holds no lease afterwards.
func TestJournalFailureRollsBackGrant(t *testing.T) {
	j := journal.FailingJournal{Journal: journal.NewMemoryJournal()}
	cat := journal.NewMemoryTaskCatalog()
	fc := clock.NewFakeClock(day(1))
	lb := lockbox.New(j, cat, clock.NewVersioner(fc), fc, lockconfig.DefaultConfig(), nil, nil)
	lb.Add(lease.TaskInfo{ID: "t1", GroupID: "g1", DataSource: "ds", Priority: 1})

	_, err := lb.TryLock("t1", interval.MustNew(day(1), day(2)), lease.Exclusive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lockbox.ErrJournalFailure))
	assert.Empty(t, lb.FindLocksForTask("t1"))
}
