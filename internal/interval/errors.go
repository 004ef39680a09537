package interval

import "errors"

// ErrEmpty is returned when a requested interval has non-positive
// duration (End <= Start). Corresponds to spec error kind EmptyInterval.
var ErrEmpty = errors.New("interval: empty or negative duration")
