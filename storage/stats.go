package storage

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// StoreStats holds store operation statistics.
type StoreStats struct {
	// Reads is the number of GetTable calls.
	Reads atomic.Int64
	// Writes is the number of SaveTable calls.
	Writes atomic.Int64
	// Deletes is the number of DeleteTable calls.
	Deletes atomic.Int64
	// TotalDuration is the total time spent in store operations.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowOps is the count of operations exceeding the slow threshold.
	SlowOps atomic.Int64
	// Errors is the count of failed operations.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *StoreStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		Reads:         s.Reads.Load(),
		Writes:        s.Writes.Load(),
		Deletes:       s.Deletes.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowOps:       s.SlowOps.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *StoreStats) Reset() {
	s.Reads.Store(0)
	s.Writes.Store(0)
	s.Deletes.Store(0)
	s.TotalDuration.Store(0)
	s.SlowOps.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of store statistics.
type StatsSnapshot struct {
	Reads         int64
	Writes        int64
	Deletes       int64
	TotalDuration time.Duration
	SlowOps       int64
	Errors        int64
}

// AvgDuration returns the average operation duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.Reads + s.Writes + s.Deletes
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"reads=%d writes=%d deletes=%d duration=%s avg=%s slow=%d errors=%d",
		s.Reads, s.Writes, s.Deletes, s.TotalDuration, s.AvgDuration(),
		s.SlowOps, s.Errors,
	)
}

// SlowOpHook is called when a store operation exceeds the slow
// threshold.
type SlowOpHook func(op, table string, duration time.Duration)

// StatsStore wraps a Store with operation statistics collection.
type StatsStore struct {
	Store
	stats         *StoreStats
	slowThreshold time.Duration
	slowHook      SlowOpHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsStore.
type StatsOption func(*StatsStore)

// WithSlowThreshold sets the threshold for slow operation detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsStore) {
		s.slowThreshold = d
	}
}

// WithSlowOpHook sets a callback for slow operations.
func WithSlowOpHook(hook SlowOpHook) StatsOption {
	return func(s *StatsStore) {
		s.slowHook = hook
	}
}

// WithSlowOpLog logs slow operations to the default logger. This is a
// convenience wrapper around WithSlowOpHook.
func WithSlowOpLog() StatsOption {
	return WithSlowOpHook(func(op, table string, duration time.Duration) {
		slog.Warn("slow store operation", "op", op, "table", table, "duration", duration)
	})
}

// NewStatsStore wraps a Store with statistics collection.
func NewStatsStore(s Store, opts ...StatsOption) *StatsStore {
	ss := &StatsStore{
		Store:         s,
		stats:         &StoreStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(ss)
	}
	return ss
}

// StoreStats returns the underlying StoreStats for reading statistics.
func (s *StatsStore) StoreStats() *StoreStats {
	return s.stats
}

// GetTable implements Store and records statistics.
func (s *StatsStore) GetTable(name string, createIfMissing bool) (*TableDocument, error) {
	start := time.Now()
	doc, err := s.Store.GetTable(name, createIfMissing)
	s.stats.Reads.Add(1)
	s.record("get", name, start, err)
	return doc, err
}

// SaveTable implements Store and records statistics.
func (s *StatsStore) SaveTable(name string) error {
	start := time.Now()
	err := s.Store.SaveTable(name)
	s.stats.Writes.Add(1)
	s.record("save", name, start, err)
	return err
}

// DeleteTable implements Store and records statistics.
func (s *StatsStore) DeleteTable(name string) error {
	start := time.Now()
	err := s.Store.DeleteTable(name)
	s.stats.Deletes.Add(1)
	s.record("delete", name, start, err)
	return err
}

func (s *StatsStore) record(op, table string, start time.Time, err error) {
	duration := time.Since(start)
	s.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		s.stats.Errors.Add(1)
	}

	s.mu.RLock()
	threshold := s.slowThreshold
	hook := s.slowHook
	s.mu.RUnlock()

	if duration > threshold {
		s.stats.SlowOps.Add(1)
		if hook != nil {
			hook(op, table, duration)
		}
	}
}
