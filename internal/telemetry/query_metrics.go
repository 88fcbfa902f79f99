// Package telemetry tracks query patterns for tuning retrieval. All
// data stays local; nothing is reported externally.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryKind is the search operation a query went through.
type QueryKind string

const (
	KindSemantic QueryKind = "semantic"
	KindLexical  QueryKind = "lexical"
	KindHybrid   QueryKind = "hybrid"
	KindWeighted QueryKind = "weighted"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one recorded search.
type QueryEvent struct {
	Query       string
	Kind        QueryKind
	ResultCount int
	Degraded    bool
	Latency     time.Duration
	Timestamp   time.Time
}

// Snapshot is an aggregate view of recorded queries.
type Snapshot struct {
	TotalQueries   int64
	ZeroResults    int64
	DegradedCount  int64
	RepeatQueries  int64
	ByKind         map[QueryKind]int64
	LatencyBuckets map[LatencyBucket]int64
}

// ZeroResultPercentage returns the share of queries with no results.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResults) / float64(s.TotalQueries) * 100
}

// QueryMetrics aggregates query events in memory. Queries themselves
// are only kept as hashes in the repeat-detection cache, never stored
// in clear.
type QueryMetrics struct {
	mu sync.Mutex

	total    int64
	zero     int64
	degraded int64
	repeats  int64
	byKind   map[QueryKind]int64
	buckets  map[LatencyBucket]int64

	seen *lru.Cache[string, int]
}

// NewQueryMetrics creates an empty metrics aggregator.
func NewQueryMetrics() *QueryMetrics {
	seen, _ := lru.New[string, int](1000)
	return &QueryMetrics{
		byKind:  make(map[QueryKind]int64),
		buckets: make(map[LatencyBucket]int64),
		seen:    seen,
	}
}

func hashQuery(query string) string {
	h := sha256.Sum256([]byte(query))
	return hex.EncodeToString(h[:8])
}

// Record adds one query event.
func (m *QueryMetrics) Record(event QueryEvent) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.byKind[event.Kind]++
	m.buckets[LatencyToBucket(event.Latency)]++
	if event.ResultCount == 0 {
		m.zero++
	}
	if event.Degraded {
		m.degraded++
	}

	key := hashQuery(event.Query)
	if count, ok := m.seen.Get(key); ok {
		m.repeats++
		m.seen.Add(key, count+1)
	} else {
		m.seen.Add(key, 1)
	}
}

// Snapshot returns a copy of the current aggregates.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKind := make(map[QueryKind]int64, len(m.byKind))
	for k, v := range m.byKind {
		byKind[k] = v
	}
	buckets := make(map[LatencyBucket]int64, len(m.buckets))
	for k, v := range m.buckets {
		buckets[k] = v
	}
	return &Snapshot{
		TotalQueries:   m.total,
		ZeroResults:    m.zero,
		DegradedCount:  m.degraded,
		RepeatQueries:  m.repeats,
		ByKind:         byKind,
		LatencyBuckets: buckets,
	}
}
