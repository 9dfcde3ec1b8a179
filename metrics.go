package metrigo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    insertCounter   prometheus.Counter
//	    searchHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordInsert(duration time.Duration, err error) {
//	    p.insertCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	// duration is the total time taken, err is nil if successful.
	RecordInsert(duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)

	// RecordSearch is called after each search operation.
	// k is the number of neighbors requested, duration is the time taken,
	// err is nil if successful.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordBatchSearch is called after each batch search operation.
	// queries is the number of queries in the batch.
	RecordBatchSearch(queries int, duration time.Duration, err error)

	// RecordSnapshot is called after each snapshot save or restore.
	RecordSnapshot(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)           {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)           {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordBatchSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshot(time.Duration, error)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount        atomic.Int64
	InsertErrors       atomic.Int64
	InsertTotalNanos   atomic.Int64
	DeleteCount        atomic.Int64
	DeleteErrors       atomic.Int64
	SearchCount        atomic.Int64
	SearchErrors       atomic.Int64
	SearchTotalNanos   atomic.Int64
	BatchSearchCount   atomic.Int64
	BatchSearchQueries atomic.Int64
	BatchSearchErrors  atomic.Int64
	SnapshotCount      atomic.Int64
	SnapshotErrors     atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordBatchSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchSearch(queries int, duration time.Duration, err error) {
	b.BatchSearchCount.Add(1)
	b.BatchSearchQueries.Add(int64(queries))
	if err != nil {
		b.BatchSearchErrors.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(duration time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// BasicMetricsStats is a point-in-time snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	InsertCount        int64
	InsertErrors       int64
	InsertAvgNanos     int64
	DeleteCount        int64
	DeleteErrors       int64
	SearchCount        int64
	SearchErrors       int64
	SearchAvgNanos     int64
	BatchSearchCount   int64
	BatchSearchQueries int64
	BatchSearchErrors  int64
	SnapshotCount      int64
	SnapshotErrors     int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:        b.InsertCount.Load(),
		InsertErrors:       b.InsertErrors.Load(),
		InsertAvgNanos:     avgNanos(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		DeleteCount:        b.DeleteCount.Load(),
		DeleteErrors:       b.DeleteErrors.Load(),
		SearchCount:        b.SearchCount.Load(),
		SearchErrors:       b.SearchErrors.Load(),
		SearchAvgNanos:     avgNanos(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		BatchSearchCount:   b.BatchSearchCount.Load(),
		BatchSearchQueries: b.BatchSearchQueries.Load(),
		BatchSearchErrors:  b.BatchSearchErrors.Load(),
		SnapshotCount:      b.SnapshotCount.Load(),
		SnapshotErrors:     b.SnapshotErrors.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}
