package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Data freshness
	MetricPositionLatency = "watch.position_latency"
	MetricFenceStaleness  = "watch.fence_snapshot_age_seconds"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricFenceBreaches  = "business.restricted_breaches"
	MetricEditorSessions = "business.edit_sessions"
)
