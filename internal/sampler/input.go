// Package sampler implements the single-threaded row-sampling pipeline
// (spec §2, §4.6): read a bounded number of rows from an external
// source, run them through the same timestamp/dimension/transform
// machinery the allocator's partitioning schemes rely on, and report a
// preview of both the raw and parsed shape of each row alongside a
// per-row parse outcome.
package sampler

import "errors"

// RawRow is the row shape the Sampler works with throughout: a plain
// string-keyed map, matching partition.MapRow so a sampled row can be
// fed straight into the allocator's hashed/range routing without
// another conversion step.
type RawRow map[string]string

// RowCursor yields raw rows one at a time from an opened InputSource
// handle. Close must be idempotent; the Sampler always calls it
// exactly once, on every exit path including configuration errors and
// early termination on the row budget (spec §9 "Row-scoped scoped
// resources").
type RowCursor interface {
	// Next returns the next undecoded row payload, or ok=false once the
	// source is exhausted.
	Next() (line []byte, ok bool, err error)

	// Close releases the handle. Safe to call more than once.
	Close() error
}

// InputSource opens a RowCursor. Modeled as a separate step from the
// cursor itself so a caller can hold a source value (a file path, a
// connection descriptor) without it implying an open handle.
type InputSource interface {
	Open() (RowCursor, error)
}

// InputFormat decodes one undecoded row payload into a RawRow. A
// malformed payload is reported as an error rather than a panic; the
// Sampler turns that into an unparseable SampleEntry rather than
// aborting the whole run.
type InputFormat interface {
	Parse(line []byte) (RawRow, error)
}

// SliceSource is an InputSource over an in-memory slice of already-raw
// rows, standing in for file/socket-backed sources in tests and in
// cmd/lockboxctl's offline preview mode.
type SliceSource struct {
	Rows [][]byte
}

// Open implements InputSource.
func (s SliceSource) Open() (RowCursor, error) {
	return &sliceCursor{rows: s.Rows}, nil
}

type sliceCursor struct {
	rows   [][]byte
	pos    int
	closed bool
}

func (c *sliceCursor) Next() ([]byte, bool, error) {
	if c.closed {
		return nil, false, errors.New("sampler: Next called after Close")
	}
	if c.pos >= len(c.rows) {
		return nil, false, nil
	}
	line := c.rows[c.pos]
	c.pos++
	return line, true, nil
}

func (c *sliceCursor) Close() error {
	c.closed = true
	return nil
}

// PassthroughFormat treats every input line as one RawRow already
// encoded as "key=value" pairs separated by '|', the simplest
// possible InputFormat and the one cmd/lockboxctl uses for ad hoc
// smoke-testing. Real deployments supply their own InputFormat (CSV,
// JSON, protobuf) — decoding those formats is explicitly out of scope
// here (spec Non-goals: wire/storage format parsing).
type PassthroughFormat struct{}

// Parse implements InputFormat.
func (PassthroughFormat) Parse(line []byte) (RawRow, error) {
	row := make(RawRow)
	field := make([]byte, 0, 16)
	key := ""
	flush := func() {
		if key != "" {
			row[key] = string(field)
			key = ""
			field = field[:0]
		}
	}
	for _, b := range line {
		switch b {
		case '=':
			key = string(field)
			field = field[:0]
		case '|':
			flush()
		default:
			field = append(field, b)
		}
	}
	flush()
	if len(row) == 0 {
		return nil, errors.New("sampler: empty or unparseable row payload")
	}
	return row, nil
}
