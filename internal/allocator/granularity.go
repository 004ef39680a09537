// Package allocator implements the Segment Allocator, the Bulk
// Allocator, and the thin Supervisor-Wrap layer above both (spec §2,
// §4.3, §4.4): the per-row and per-interval entry points that turn a
// granted Lockbox lease into concrete segment identities, grounded on
// the same critical-section-under-one-mutex shape the Lockbox itself
// uses, via lockbox.MintUnderLock.
package allocator

import "time"

// Granularity names a time-bucketing scheme: either a query
// granularity (NONE included, meaning "no truncation") or a segment
// granularity (always one of the concrete buckets). The two uses share
// one type because spec §4.3 step 4 compares them directly.
type Granularity string

const (
	None    Granularity = "NONE"
	Minute  Granularity = "MINUTE"
	Hour    Granularity = "HOUR"
	SixHour Granularity = "SIX_HOUR"
	Day     Granularity = "DAY"
	Week    Granularity = "WEEK"
	Month   Granularity = "MONTH"
	Year    Granularity = "YEAR"
)

// rank orders granularities from finest to coarsest. NONE ranks finer
// than every concrete bucket since it means "don't truncate at all".
var rank = map[Granularity]int{
	None:    0,
	Minute:  10,
	Hour:    20,
	SixHour: 25,
	Day:     30,
	Week:    35,
	Month:   40,
	Year:    50,
}

// Coarser reports whether a is a coarser bucket than b, i.e. a's
// bucket fully contains more than one of b's buckets in the general
// case. Used by the Segment Allocator's step-4 refusal rule (spec
// §4.3, §8 scenarios S3/S4): a query granularity coarser than the
// segment granularity actually in effect cannot be satisfied, since a
// single query-granularity bucket would then have to span more than
// one already-published segment.
func Coarser(a, b Granularity) bool {
	return rank[a] > rank[b]
}

// Bucket truncates t to the start of its g-sized bucket and returns
// the resulting half-open interval. NONE has no bucket of its own —
// it exists only as a query-granularity value — and is rejected.
func Bucket(g Granularity, t time.Time) (start, end time.Time, ok bool) {
	t = t.UTC()
	switch g {
	case Minute:
		start = t.Truncate(time.Minute)
		end = start.Add(time.Minute)
	case Hour:
		start = t.Truncate(time.Hour)
		end = start.Add(time.Hour)
	case SixHour:
		dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		block := (t.Hour() / 6) * 6
		start = dayStart.Add(time.Duration(block) * time.Hour)
		end = start.Add(6 * time.Hour)
	case Day:
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	case Week:
		dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// ISO week starts Monday; time.Weekday Sunday==0.
		offset := (int(dayStart.Weekday()) + 6) % 7
		start = dayStart.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 7)
	case Month:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	case Year:
		start = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	default:
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// durationOf returns the fixed wall-clock duration of one g-sized
// bucket, or 0 for granularities whose bucket length varies with the
// calendar (Month, Year) or that have no bucket at all (NONE).
func durationOf(g Granularity) time.Duration {
	switch g {
	case Minute:
		return time.Minute
	case Hour:
		return time.Hour
	case SixHour:
		return 6 * time.Hour
	case Day:
		return 24 * time.Hour
	case Week:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// granularityForDuration maps a fixed-length interval's duration back
// to the Granularity that produces it, used to infer the bucket an
// already-published segment was allocated under when snapping a new
// allocation to align with history (spec §4.3 edge cases). Returns ""
// when d doesn't match any fixed-duration granularity (including the
// calendar-variable Month/Year, which this lookup intentionally never
// guesses at).
func granularityForDuration(d time.Duration) Granularity {
	for _, g := range []Granularity{Minute, Hour, SixHour, Day, Week} {
		if durationOf(g) == d {
			return g
		}
	}
	return ""
}
