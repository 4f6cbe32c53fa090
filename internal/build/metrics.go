package build

import (
	"sync/atomic"
	"time"
)

// Metrics tracks build performance. It is safe for concurrent use.
type Metrics struct {
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64
	duration  atomic.Int64
}

// MetricsSnapshot is a copy of Metrics at one point in time.
type MetricsSnapshot struct {
	TotalBuilds      int64         `json:"total_builds"`
	SuccessfulBuilds int64         `json:"successful_builds"`
	FailedBuilds     int64         `json:"failed_builds"`
	CacheHits        int64         `json:"cache_hits"`
	TotalDuration    time.Duration `json:"total_duration"`
	AverageDuration  time.Duration `json:"average_duration"`
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Record records a build result in the metrics
func (m *Metrics) Record(result Result) {
	m.total.Add(1)
	m.duration.Add(int64(result.Duration))
	if result.CacheHit {
		m.cacheHits.Add(1)
	}
	if result.Err != nil {
		m.failed.Add(1)
	} else {
		m.succeeded.Add(1)
	}
}

// Snapshot returns a snapshot of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		TotalBuilds:      m.total.Load(),
		SuccessfulBuilds: m.succeeded.Load(),
		FailedBuilds:     m.failed.Load(),
		CacheHits:        m.cacheHits.Load(),
		TotalDuration:    time.Duration(m.duration.Load()),
	}
	if s.TotalBuilds > 0 {
		s.AverageDuration = s.TotalDuration / time.Duration(s.TotalBuilds)
	}
	return s
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	m.total.Store(0)
	m.succeeded.Store(0)
	m.failed.Store(0)
	m.cacheHits.Store(0)
	m.duration.Store(0)
}

// CacheHitRate returns the cache hit rate as a percentage
func (s MetricsSnapshot) CacheHitRate() float64 {
	if s.TotalBuilds == 0 {
		return 0.0
	}
	return float64(s.CacheHits) / float64(s.TotalBuilds) * 100.0
}

// SuccessRate returns the success rate as a percentage
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.TotalBuilds == 0 {
		return 0.0
	}
	return float64(s.SuccessfulBuilds) / float64(s.TotalBuilds) * 100.0
}
