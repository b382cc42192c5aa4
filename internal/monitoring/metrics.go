package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics for the decision pipeline
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	ProviderAPICalls    int64
	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	// Engine decision counters
	ReputationEvals    int64
	ProgressEvals      int64
	BehaviorEvals      int64
	NudgesScheduled    int64
	ReleasesEvaluated  int64
	ReleasesRecommend  int64
	ConflictsResolved  int64
	ClaimsBlocked      int64
	SuspiciousFlagged  int64

	// Response time samples for percentiles
	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	// Status code tracking
	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex

	// Circuit breaker metrics
	CircuitBreakerOpens  int64
	CircuitBreakerCloses int64

	// Provider metrics by operation
	ProviderRequests   map[string]int64
	ProviderErrorCount map[string]int64
	ProviderMutex      sync.RWMutex

	// Rate limit metrics
	RateLimitIPBlocks       int64
	RateLimitUserBlocks     int64
	RateLimitRedisErrors    int64
	RateLimitFallbackCount  int64
	RateLimitEndpointBlocks map[string]int64
	RateLimitMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:               time.Now(),
		ResponseTimes:           make([]time.Duration, 0, 1000),
		RequestCountByStatus:    make(map[int]int64),
		ProviderRequests:        make(map[string]int64),
		ProviderErrorCount:      make(map[string]int64),
		RateLimitEndpointBlocks: make(map[string]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementProviderCalls increments the activity provider call count
func (m *Metrics) IncrementProviderCalls() {
	atomic.AddInt64(&m.ProviderAPICalls, 1)
}

// RecordDecision increments the counter for one engine component
func (m *Metrics) RecordDecision(component string) {
	switch component {
	case "reputation":
		atomic.AddInt64(&m.ReputationEvals, 1)
	case "progress":
		atomic.AddInt64(&m.ProgressEvals, 1)
	case "behavior":
		atomic.AddInt64(&m.BehaviorEvals, 1)
	case "nudge":
		atomic.AddInt64(&m.NudgesScheduled, 1)
	case "release":
		atomic.AddInt64(&m.ReleasesEvaluated, 1)
	case "conflict":
		atomic.AddInt64(&m.ConflictsResolved, 1)
	}
}

// IncrementReleaseRecommended counts RELEASE recommendations
func (m *Metrics) IncrementReleaseRecommended() {
	atomic.AddInt64(&m.ReleasesRecommend, 1)
}

// IncrementClaimBlocked counts claims rejected by a gate
func (m *Metrics) IncrementClaimBlocked() {
	atomic.AddInt64(&m.ClaimsBlocked, 1)
}

// IncrementSuspiciousFlagged counts suspicious behavior classifications
func (m *Metrics) IncrementSuspiciousFlagged() {
	atomic.AddInt64(&m.SuspiciousFlagged, 1)
}

// RecordResponseTime records response time for averaging and percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)

	// Keep the last 1000 samples
	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = append(m.ResponseTimes, duration)
	if len(m.ResponseTimes) > 1000 {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// IncrementCircuitBreakerOpen increments circuit breaker open count
func (m *Metrics) IncrementCircuitBreakerOpen() {
	atomic.AddInt64(&m.CircuitBreakerOpens, 1)
}

// IncrementCircuitBreakerClose increments circuit breaker close count
func (m *Metrics) IncrementCircuitBreakerClose() {
	atomic.AddInt64(&m.CircuitBreakerCloses, 1)
}

// RecordProviderRequest records an activity provider request
func (m *Metrics) RecordProviderRequest(operation string, success bool) {
	m.ProviderMutex.Lock()
	defer m.ProviderMutex.Unlock()

	m.ProviderRequests[operation]++
	if !success {
		m.ProviderErrorCount[operation]++
	}
}

// GetPercentileResponseTime calculates percentile response time
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.ResponseTimes))
	copy(times, m.ResponseTimes)

	sort.Slice(times, func(i, j int) bool {
		return times[i] < times[j]
	})

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}

	return times[index]
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64)
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetProviderStats returns activity provider statistics
func (m *Metrics) GetProviderStats() map[string]interface{} {
	m.ProviderMutex.RLock()
	defer m.ProviderMutex.RUnlock()

	stats := make(map[string]interface{})
	for op, requests := range m.ProviderRequests {
		errors := m.ProviderErrorCount[op]
		errorRate := float64(0)
		if requests > 0 {
			errorRate = float64(errors) / float64(requests) * 100
		}

		stats[op] = map[string]interface{}{
			"requests":   requests,
			"errors":     errors,
			"error_rate": errorRate,
		}
	}
	return stats
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	providerCalls := atomic.LoadInt64(&m.ProviderAPICalls)
	avgResponseTime := atomic.LoadInt64(&m.AverageResponseTime)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	uptime := time.Since(m.StartTime)

	return map[string]interface{}{
		"uptime_seconds":       uptime.Seconds(),
		"total_requests":       requests,
		"error_count":          errors,
		"error_rate_percent":   errorRate,
		"provider_api_calls":   providerCalls,
		"avg_response_time_ms": float64(avgResponseTime) / 1000000,
		"start_time":           m.StartTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1000000,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1000000,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1000000,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"provider_stats":           m.GetProviderStats(),

		"reputation_evaluations": atomic.LoadInt64(&m.ReputationEvals),
		"progress_evaluations":   atomic.LoadInt64(&m.ProgressEvals),
		"behavior_evaluations":   atomic.LoadInt64(&m.BehaviorEvals),
		"nudges_scheduled":       atomic.LoadInt64(&m.NudgesScheduled),
		"releases_evaluated":     atomic.LoadInt64(&m.ReleasesEvaluated),
		"releases_recommended":   atomic.LoadInt64(&m.ReleasesRecommend),
		"conflicts_resolved":     atomic.LoadInt64(&m.ConflictsResolved),
		"claims_blocked":         atomic.LoadInt64(&m.ClaimsBlocked),
		"suspicious_flagged":     atomic.LoadInt64(&m.SuspiciousFlagged),

		"circuit_breaker_opens":  atomic.LoadInt64(&m.CircuitBreakerOpens),
		"circuit_breaker_closes": atomic.LoadInt64(&m.CircuitBreakerCloses),
	}
}

// Reset resets all metrics (useful for testing)
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.ProviderAPICalls, 0)
	atomic.StoreInt64(&m.AverageResponseTime, 0)
	atomic.StoreInt64(&m.ReputationEvals, 0)
	atomic.StoreInt64(&m.ProgressEvals, 0)
	atomic.StoreInt64(&m.BehaviorEvals, 0)
	atomic.StoreInt64(&m.NudgesScheduled, 0)
	atomic.StoreInt64(&m.ReleasesEvaluated, 0)
	atomic.StoreInt64(&m.ReleasesRecommend, 0)
	atomic.StoreInt64(&m.ConflictsResolved, 0)
	atomic.StoreInt64(&m.ClaimsBlocked, 0)
	atomic.StoreInt64(&m.SuspiciousFlagged, 0)
	atomic.StoreInt64(&m.CircuitBreakerOpens, 0)
	atomic.StoreInt64(&m.CircuitBreakerCloses, 0)

	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = m.ResponseTimes[:0]
	m.ResponseTimesMutex.Unlock()

	m.StatusMutex.Lock()
	m.RequestCountByStatus = make(map[int]int64)
	m.StatusMutex.Unlock()

	m.ProviderMutex.Lock()
	m.ProviderRequests = make(map[string]int64)
	m.ProviderErrorCount = make(map[string]int64)
	m.ProviderMutex.Unlock()

	m.RateLimitMutex.Lock()
	m.RateLimitEndpointBlocks = make(map[string]int64)
	m.RateLimitMutex.Unlock()

	m.StartTime = time.Now()
}

// IncrementRateLimitIPBlock increments IP-based rate limit blocks
func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.RateLimitIPBlocks, 1)
}

// IncrementRateLimitUserBlock increments user-based rate limit blocks
func (m *Metrics) IncrementRateLimitUserBlock() {
	atomic.AddInt64(&m.RateLimitUserBlocks, 1)
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// IncrementRateLimitEndpoint increments rate limit blocks for a specific endpoint
func (m *Metrics) IncrementRateLimitEndpoint(endpoint string) {
	m.RateLimitMutex.Lock()
	defer m.RateLimitMutex.Unlock()
	m.RateLimitEndpointBlocks[endpoint]++
}

// GetRateLimitStats returns rate limiting statistics
func (m *Metrics) GetRateLimitStats() map[string]interface{} {
	m.RateLimitMutex.RLock()
	endpointBlocksCopy := make(map[string]int64, len(m.RateLimitEndpointBlocks))
	for k, v := range m.RateLimitEndpointBlocks {
		endpointBlocksCopy[k] = v
	}
	m.RateLimitMutex.RUnlock()

	return map[string]interface{}{
		"ip_blocks":       atomic.LoadInt64(&m.RateLimitIPBlocks),
		"user_blocks":     atomic.LoadInt64(&m.RateLimitUserBlocks),
		"redis_errors":    atomic.LoadInt64(&m.RateLimitRedisErrors),
		"fallback_count":  atomic.LoadInt64(&m.RateLimitFallbackCount),
		"endpoint_blocks": endpointBlocksCopy,
	}
}
