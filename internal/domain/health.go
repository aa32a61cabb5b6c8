package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latency_ms"`
	LastChecked string `json:"last_checked"`
}

// OpsMetrics is returned by GET /v1/admin/metrics.
type OpsMetrics struct {
	OrderTransitions     float64 `json:"order_transitions"`
	RejectedTransitions  float64 `json:"rejected_transitions"`
	OverLimitEvaluations float64 `json:"over_limit_evaluations"`
	ExternalErrors       float64 `json:"external_errors"`
	CacheHitRate         float64 `json:"cache_hit_rate"`
	RealtimeSubscribers  float64 `json:"realtime_subscribers"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps paginated list results.
type ListResponse[T any] struct {
	Data     []T  `json:"data"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
