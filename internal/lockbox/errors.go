package lockbox

import "errors"

// Error kinds surfaced by the Lockbox (spec §7). These are sentinel
// values rather than a closed exception hierarchy: callers compare
// with errors.Is and the core never retries on any of them itself.
var (
	// ErrInactiveTask is returned when an operation names a task the
	// Lockbox has not seen via Add, or has since forgotten via Remove.
	ErrInactiveTask = errors.New("lockbox: task is not active")

	// ErrEmptyInterval is returned when a lock request names an
	// interval whose duration is not strictly positive.
	ErrEmptyInterval = errors.New("lockbox: interval has zero or negative duration")

	// ErrRevoked is returned when the lease the caller holds, or the
	// one they're asking about, has been preempted.
	ErrRevoked = errors.New("lockbox: lease has been revoked")

	// ErrContention is returned when a request cannot be granted right
	// now but is not a permanent refusal; the caller may retry.
	ErrContention = errors.New("lockbox: request cannot be granted right now")

	// ErrLockTimeout is returned by Lock when its wait budget expires
	// before a lease becomes available. Like ErrContention, this is
	// not permanent.
	ErrLockTimeout = errors.New("lockbox: timed out waiting for a lease")

	// ErrJournalFailure is returned when the durable journal refuses a
	// write; the in-memory grant that triggered it is rolled back
	// before this error reaches the caller.
	ErrJournalFailure = errors.New("lockbox: journal write failed, grant rolled back")

	// ErrPartitionMismatch is returned by the Bulk Allocator path when
	// the number of identities it was able to mint differs from the
	// number requested.
	ErrPartitionMismatch = errors.New("lockbox: allocated partition count does not match the request")

	// ErrUnsupportedCombination is returned when hashed or range
	// partitioning is requested together with segment-level locking,
	// a combination the allocator never permits (spec §4.3).
	ErrUnsupportedCombination = errors.New("lockbox: hashed or range partitioning cannot be combined with segment-level locking")

	// ErrNotExclusive is returned by Upgrade/Downgrade when the named
	// lease is SHARED; only EXCLUSIVE leases carry the upgraded flag.
	ErrNotExclusive = errors.New("lockbox: upgrade/downgrade only applies to an EXCLUSIVE lease")

	// errConsistencyFault marks an invariant violation in the posse
	// set itself (e.g. two SHARED posses matching the same group and
	// containing interval) rather than an ordinary contention outcome.
	// Unexported: it signals a programming error in the caller or in
	// the Lockbox itself, not a condition a well-behaved client should
	// branch on.
	errConsistencyFault = errors.New("lockbox: overlapping posse set violates the exclusivity invariant")
)
