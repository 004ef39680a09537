package sampler

import "errors"

// errRowFiltered is an internal sentinel distinguishing a row-filter
// rejection (not counted in either numRowsRead or numRowsIndexed, spec
// §4.6) from every other kind of per-row failure (counted in
// numRowsRead as unparseable). It never escapes Sample.
var errRowFiltered = errors.New("sampler: row rejected by filter")
