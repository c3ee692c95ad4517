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
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// OpsMetrics is returned by GET /v1/admin/metrics.
type OpsMetrics struct {
	PartnersProvisioned  int64   `json:"partnersProvisioned"`
	ProvisioningFailures int64   `json:"provisioningFailures"`
	Rollbacks            int64   `json:"rollbacks"`
	Approvals            int64   `json:"approvals"`
	Rejections           int64   `json:"rejections"`
	StockSyncs           int64   `json:"stockSyncs"`
	StockSyncFailures    int64   `json:"stockSyncFailures"`
	EmailsSent           int64   `json:"emailsSent"`
	EmailFailures        int64   `json:"emailFailures"`
	SessionCacheHitRate  float64 `json:"sessionCacheHitRate"`
	Period               string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps paginated list results.
type ListResponse[T any] struct {
	Data     []T  `json:"data"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// Paginate slices items for the requested page.
func Paginate[T any](items []T, page, pageSize int) ListResponse[T] {
	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	data := items[start:end]
	if data == nil {
		data = []T{}
	}
	return ListResponse[T]{
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  end < total,
	}
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
