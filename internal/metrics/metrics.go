// Package metrics provides atomic counters shared across the pipeline
// (spec.md §2, C10). Each subsystem embeds the counter set it needs;
// reads are advisory snapshots, consistent with the rest of the
// platform's "atomic counters, advisory reads" concurrency policy.
package metrics

import "sync/atomic"

// AssemblerMetrics tracks Context Assembler (C7) outcomes.
type AssemblerMetrics struct {
	TotalAssemblies int64
	CacheHits       int64
	CacheMisses     int64
	Timeouts        int64
	PartialReturns  int64
	totalLatencyUs  int64 // sum, for computing avg_latency_ms
}

func (m *AssemblerMetrics) RecordAssembly(latencyUs int64, cacheHit, timedOut, partial bool) {
	atomic.AddInt64(&m.TotalAssemblies, 1)
	atomic.AddInt64(&m.totalLatencyUs, latencyUs)
	if cacheHit {
		atomic.AddInt64(&m.CacheHits, 1)
	} else {
		atomic.AddInt64(&m.CacheMisses, 1)
	}
	if timedOut {
		atomic.AddInt64(&m.Timeouts, 1)
	}
	if partial {
		atomic.AddInt64(&m.PartialReturns, 1)
	}
}

// Snapshot is a point-in-time, advisory read of the counters.
type AssemblerSnapshot struct {
	TotalAssemblies int64
	CacheHits       int64
	CacheMisses     int64
	Timeouts        int64
	PartialReturns  int64
	AvgLatencyMs    float64
	CacheHitRate    float64
	TimeoutRate     float64
}

func (m *AssemblerMetrics) Snapshot() AssemblerSnapshot {
	total := atomic.LoadInt64(&m.TotalAssemblies)
	hits := atomic.LoadInt64(&m.CacheHits)
	misses := atomic.LoadInt64(&m.CacheMisses)
	timeouts := atomic.LoadInt64(&m.Timeouts)
	partial := atomic.LoadInt64(&m.PartialReturns)
	latencyUs := atomic.LoadInt64(&m.totalLatencyUs)

	snap := AssemblerSnapshot{
		TotalAssemblies: total,
		CacheHits:       hits,
		CacheMisses:     misses,
		Timeouts:        timeouts,
		PartialReturns:  partial,
	}
	if total > 0 {
		snap.AvgLatencyMs = float64(latencyUs) / float64(total) / 1000.0
		snap.CacheHitRate = float64(hits) / float64(total)
		snap.TimeoutRate = float64(timeouts) / float64(total)
	}
	return snap
}

// TrajectoryMetrics tracks Async Capture Pipeline (C4) outcomes.
type TrajectoryMetrics struct {
	Dropped        int64
	OverflowDrops  int64
	EventsCaptured int64
	BatchFlushes   int64
	OverheadDrops  int64
	ContentionDrops int64
}

func (m *TrajectoryMetrics) IncDropped()         { atomic.AddInt64(&m.Dropped, 1) }
func (m *TrajectoryMetrics) IncOverflowDrops()    { atomic.AddInt64(&m.OverflowDrops, 1) }
func (m *TrajectoryMetrics) IncEventsCaptured()   { atomic.AddInt64(&m.EventsCaptured, 1) }
func (m *TrajectoryMetrics) IncBatchFlushes()     { atomic.AddInt64(&m.BatchFlushes, 1) }
func (m *TrajectoryMetrics) IncOverheadDrops()    { atomic.AddInt64(&m.OverheadDrops, 1) }
func (m *TrajectoryMetrics) IncContentionDrops()  { atomic.AddInt64(&m.ContentionDrops, 1) }
func (m *TrajectoryMetrics) AddDropped(n int64)   { atomic.AddInt64(&m.Dropped, n) }

type TrajectorySnapshot struct {
	Dropped         int64
	OverflowDrops   int64
	EventsCaptured  int64
	BatchFlushes    int64
	OverheadDrops   int64
	ContentionDrops int64
}

func (m *TrajectoryMetrics) Snapshot() TrajectorySnapshot {
	return TrajectorySnapshot{
		Dropped:         atomic.LoadInt64(&m.Dropped),
		OverflowDrops:   atomic.LoadInt64(&m.OverflowDrops),
		EventsCaptured:  atomic.LoadInt64(&m.EventsCaptured),
		BatchFlushes:    atomic.LoadInt64(&m.BatchFlushes),
		OverheadDrops:   atomic.LoadInt64(&m.OverheadDrops),
		ContentionDrops: atomic.LoadInt64(&m.ContentionDrops),
	}
}
