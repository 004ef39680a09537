// Package logging provides the structured logger used throughout the
// Lockbox core, grounded on the same go-kit/log + level combination
// the grafana-tempo blockstore uses for its compaction and polling
// loops.
package logging

import (
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// NewLogger returns a logfmt logger writing to stderr with timestamp
// and caller annotations, filtered at Info level by default.
func NewLogger() kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.DefaultCaller)
	return level.NewFilter(logger, level.AllowInfo())
}

// NewNopLogger returns a logger that discards everything, used as the
// default when a caller doesn't supply one.
func NewNopLogger() kitlog.Logger {
	return kitlog.NewNopLogger()
}
