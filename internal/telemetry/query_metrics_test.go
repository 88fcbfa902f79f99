package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{30 * time.Millisecond, BucketP50},
		{80 * time.Millisecond, BucketP100},
		{300 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.latency), "latency %v", tt.latency)
	}
}

func TestQueryMetrics_RecordAndSnapshot(t *testing.T) {
	m := NewQueryMetrics()

	m.Record(QueryEvent{Query: "golang", Kind: KindHybrid, ResultCount: 5, Latency: 20 * time.Millisecond})
	m.Record(QueryEvent{Query: "golang", Kind: KindHybrid, ResultCount: 5, Latency: 8 * time.Millisecond})
	m.Record(QueryEvent{Query: "cobol", Kind: KindSemantic, ResultCount: 0, Degraded: true, Latency: 600 * time.Millisecond})

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ZeroResults)
	assert.Equal(t, int64(1), snap.DegradedCount)
	assert.Equal(t, int64(1), snap.RepeatQueries)
	assert.Equal(t, int64(2), snap.ByKind[KindHybrid])
	assert.Equal(t, int64(1), snap.ByKind[KindSemantic])
	assert.Equal(t, int64(1), snap.LatencyBuckets[BucketP50])
	assert.Equal(t, int64(1), snap.LatencyBuckets[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyBuckets[BucketP1000])
	assert.InDelta(t, 33.33, snap.ZeroResultPercentage(), 0.01)
}

func TestQueryMetrics_NilReceiverRecordIsSafe(t *testing.T) {
	var m *QueryMetrics
	m.Record(QueryEvent{Query: "x", Kind: KindLexical})
}

func TestSnapshot_ZeroResultPercentage_NoQueries(t *testing.T) {
	m := NewQueryMetrics()
	assert.Zero(t, m.Snapshot().ZeroResultPercentage())
}
