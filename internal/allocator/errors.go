package allocator

import "errors"

// ErrIllFormedPartitioning is returned when a request names a
// partitioning scheme that cannot possibly be satisfied, independent
// of any lease state — e.g. hashed partitioning with numBuckets <= 0
// (spec §4.3 "numBuckets = 0: reject as ill-formed").
var ErrIllFormedPartitioning = errors.New("allocator: partitioning scheme is ill-formed")

// ErrUnparseableTimestamp is returned when a row carries no derivable
// event timestamp, a condition spec §4.3 says should never reach
// allocation in a well-formed pipeline (the Sampler is expected to
// have already filtered it out) but which the allocator still refuses
// outright rather than guessing at an interval.
var ErrUnparseableTimestamp = errors.New("allocator: row timestamp is unparseable")

// ErrBatchTooLarge is returned when a BulkRequest names more partial
// shard specs than the Lockbox's configured MaxNumBatchTasks allows.
var ErrBatchTooLarge = errors.New("allocator: bulk request exceeds MaxNumBatchTasks")
