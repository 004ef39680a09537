// Package metrics declares the Prometheus instrumentation used by the
// Lockbox, the Allocator and the Sampler, grounded on the same
// promauto style the grafana-tempo blockstore uses for its retention
// counters — but scoped to a caller-supplied prometheus.Registerer
// per instance (promauto.With(reg)) rather than package-level
// promauto.New* on the default registry, so a nil registry yields
// collectors that work but are never registered anywhere, and two
// Lockbox instances in the same process don't collide on the default
// registry's namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LockboxMetrics is the Lockbox's instrumentation.
type LockboxMetrics struct {
	// GrantsTotal counts successful lease grants, labeled by the
	// outcome case (minted, reused, reused_after_revoke).
	GrantsTotal *prometheus.CounterVec

	// GrantFailuresTotal counts failed grant attempts, labeled by
	// error kind (inactive_task, empty_interval, revoked, contention).
	// Journal write failures are not counted here.
	GrantFailuresTotal *prometheus.CounterVec

	// RevocationsTotal counts posses revoked to make way for a
	// higher-priority requester.
	RevocationsTotal prometheus.Counter

	// LockWaitSeconds observes how long blocking lock() calls waited
	// before granting, timing out, or failing outright.
	LockWaitSeconds prometheus.Histogram
}

// NewLockboxMetrics returns a LockboxMetrics registered with reg. A
// nil reg is valid: the returned collectors still work, they are just
// never registered anywhere.
func NewLockboxMetrics(reg prometheus.Registerer) *LockboxMetrics {
	f := promauto.With(reg)
	return &LockboxMetrics{
		GrantsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockbox",
			Name:      "grants_total",
			Help:      "Total number of successful lease grants.",
		}, []string{"outcome"}),
		GrantFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockbox",
			Name:      "grant_failures_total",
			Help:      "Total number of lease grant attempts that did not succeed.",
		}, []string{"reason"}),
		RevocationsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lockbox",
			Name:      "revocations_total",
			Help:      "Total number of posses revoked by preemption.",
		}),
		LockWaitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lockbox",
			Name:      "lock_wait_seconds",
			Help:      "Time spent blocked in lock() before resolving.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// AllocatorMetrics is the Segment/Bulk Allocator's instrumentation.
type AllocatorMetrics struct {
	// AllocationsTotal counts segment identities minted by the
	// allocator, labeled by scheme (dynamic, hashed, single_dim, bulk).
	AllocationsTotal *prometheus.CounterVec
}

// NewAllocatorMetrics returns an AllocatorMetrics registered with reg.
// A nil reg is valid, per NewLockboxMetrics.
func NewAllocatorMetrics(reg prometheus.Registerer) *AllocatorMetrics {
	f := promauto.With(reg)
	return &AllocatorMetrics{
		AllocationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockbox",
			Name:      "allocations_total",
			Help:      "Total number of segment identities minted.",
		}, []string{"scheme"}),
	}
}

// SamplerMetrics is the Sampler's instrumentation.
type SamplerMetrics struct {
	// SamplerRowsTotal counts rows the Sampler has read, labeled by
	// outcome (indexed, unparseable, filtered).
	SamplerRowsTotal *prometheus.CounterVec
}

// NewSamplerMetrics returns a SamplerMetrics registered with reg. A
// nil reg is valid, per NewLockboxMetrics.
func NewSamplerMetrics(reg prometheus.Registerer) *SamplerMetrics {
	f := promauto.With(reg)
	return &SamplerMetrics{
		SamplerRowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockbox",
			Name:      "sampler_rows_total",
			Help:      "Total number of rows observed by the Sampler, by outcome.",
		}, []string{"outcome"}),
	}
}
