package lockbox

import (
	"github.com/UnicodeSec/druid/internal/interval"
	"github.com/UnicodeSec/druid/internal/lease"

	"golang.org/x/exp/slices"
)

// posse is the in-memory record binding a lease to its current holder
// tasks (spec §3 "Entity: Lock Posse"). A posse is garbage-collected
// once its task set is empty.
type posse struct {
	lease lease.Lease
	tasks map[string]struct{}
}

func newPosse(l lease.Lease, firstTaskID string) *posse {
	return &posse{lease: l, tasks: map[string]struct{}{firstTaskID: {}}}
}

func (p *posse) holds(taskID string) bool {
	_, ok := p.tasks[taskID]
	return ok
}

// dataSourceState holds every posse for one data source, indexed by
// exact interval and kept in a slice sorted by interval.Compare so
// overlap queries can binary-search an upper bound (the first interval
// starting at or after the query's end) and scan only the prefix before
// it instead of every interval the data source has ever seen (spec §4.1 "Overlap
// query", §9 "Sorted-interval-map lookups").
type dataSourceState struct {
	intervals []interval.Interval
	posses    map[interval.Interval][]*posse
}

func newDataSourceState() *dataSourceState {
	return &dataSourceState{posses: make(map[interval.Interval][]*posse)}
}

// add inserts p under iv, creating the interval's slot in the sorted
// index if this is its first posse.
func (ds *dataSourceState) add(iv interval.Interval, p *posse) {
	if _, ok := ds.posses[iv]; !ok {
		i, _ := slices.BinarySearchFunc(ds.intervals, iv, interval.Compare)
		ds.intervals = slices.Insert(ds.intervals, i, iv)
	}
	ds.posses[iv] = append(ds.posses[iv], p)
}

// removeEmpty drops p from iv's posse list once p.tasks has emptied,
// and drops iv from the index entirely once no posses remain under it.
func (ds *dataSourceState) removeEmpty(iv interval.Interval, p *posse) {
	if len(p.tasks) > 0 {
		return
	}
	remaining := ds.posses[iv]
	for i, cand := range remaining {
		if cand == p {
			remaining = append(remaining[:i], remaining[i+1:]...)
			break
		}
	}
	if len(remaining) == 0 {
		delete(ds.posses, iv)
		if i, found := slices.BinarySearchFunc(ds.intervals, iv, interval.Compare); found {
			ds.intervals = slices.Delete(ds.intervals, i, i+1)
		}
		return
	}
	ds.posses[iv] = remaining
}

// overlapping returns every posse whose interval overlaps iv. Since
// ds.intervals is sorted by (start, end), any interval overlapping iv
// must start strictly before iv.End; binary-searching for that upper
// bound lets us skip every interval guaranteed not to qualify instead
// of scanning the whole data source.
func (ds *dataSourceState) overlapping(iv interval.Interval) []*posse {
	upperBound := interval.Interval{Start: iv.End}
	limit, _ := slices.BinarySearchFunc(ds.intervals, upperBound, interval.Compare)

	var out []*posse
	for _, cand := range ds.intervals[:limit] {
		if !cand.Overlaps(iv) {
			continue
		}
		out = append(out, ds.posses[cand]...)
	}
	return out
}

// findHeldBy returns the posse at the exact interval iv that taskID is
// a member of, or nil if none exists.
func (ds *dataSourceState) findHeldBy(iv interval.Interval, taskID string) *posse {
	for _, p := range ds.posses[iv] {
		if p.holds(taskID) {
			return p
		}
	}
	return nil
}
