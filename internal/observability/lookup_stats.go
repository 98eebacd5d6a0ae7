// Package observability tracks how the type registry is queried: which
// backend/version tables are hot and which keys callers ask for but the
// registry does not define.
package observability

import (
	"sort"
	"sync"
	"time"
)

// LookupStats counts registry queries per table and misses per key.
type LookupStats struct {
	mu     sync.RWMutex
	tables map[string]*TableStats
	misses map[string]*MissStats
	window time.Duration
}

// TableStats holds counters for one backend/version table.
type TableStats struct {
	Table    string    `json:"table"`
	Queries  int64     `json:"queries"`
	Misses   int64     `json:"misses"`
	LastSeen time.Time `json:"last_seen"`
}

// MissStats holds counters for one key that was asked for but not defined.
type MissStats struct {
	Key       string    `json:"key"`
	Frequency int64     `json:"frequency"`
	LastSeen  time.Time `json:"last_seen"`
}

// NewLookupStats creates a new lookup statistics tracker.
// window: time duration for pruning old entries (e.g., 1 hour)
func NewLookupStats(window time.Duration) *LookupStats {
	return &LookupStats{
		tables: make(map[string]*TableStats),
		misses: make(map[string]*MissStats),
		window: window,
	}
}

// Record records one query against table (e.g. "SQLite/v1.0"). When hit is
// false, key (e.g. "SQLite/v1.0/999") is counted as a miss.
// This method is O(1) and thread-safe.
func (l *LookupStats) Record(table, key string, hit bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	ts, exists := l.tables[table]
	if !exists {
		ts = &TableStats{Table: table}
		l.tables[table] = ts
	}
	ts.Queries++
	ts.LastSeen = now

	if hit {
		return
	}
	ts.Misses++

	ms, exists := l.misses[key]
	if !exists {
		ms = &MissStats{Key: key}
		l.misses[key] = ms
	}
	ms.Frequency++
	ms.LastSeen = now
}

// Tables returns a copy of the per-table counters sorted by query count
// (descending), ties broken by table name.
func (l *LookupStats) Tables() []TableStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make([]TableStats, 0, len(l.tables))
	for _, s := range l.tables {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Queries != stats[j].Queries {
			return stats[i].Queries > stats[j].Queries
		}
		return stats[i].Table < stats[j].Table
	})
	return stats
}

// TopMisses returns the top N missed keys by frequency.
func (l *LookupStats) TopMisses(n int) []MissStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || len(l.misses) == 0 {
		return []MissStats{}
	}

	stats := make([]MissStats, 0, len(l.misses))
	for _, s := range l.misses {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Key < stats[j].Key
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Prune removes entries where time.Since(LastSeen) > window.
func (l *LookupStats) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := time.Now().Add(-l.window)
	for table, s := range l.tables {
		if s.LastSeen.Before(threshold) {
			delete(l.tables, table)
		}
	}
	for key, s := range l.misses {
		if s.LastSeen.Before(threshold) {
			delete(l.misses, key)
		}
	}
}
