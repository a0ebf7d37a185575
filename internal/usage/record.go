// Package usage implements the Usage Store (C3): an append-only, daily
// JSONL usage ledger per tenant, plus the aggregation reads the rest of the
// system needs (limit checks, dashboards, range reports).
package usage

// Record is one immutable line in a daily JSONL file describing a single
// request's tokens, cost, and metadata. Token fields default to zero when
// missing; a record is written exactly once per request, when its response
// (success or error) ends.
type Record struct {
	RequestID           string  `json:"requestId"`
	TenantID            string  `json:"tenantId"`
	Timestamp           string  `json:"timestamp"`
	Model               string  `json:"model"`
	InputTokens         int     `json:"inputTokens"`
	OutputTokens        int     `json:"outputTokens"`
	CacheCreationTokens int     `json:"cacheCreationTokens"`
	CacheReadTokens     int     `json:"cacheReadTokens"`
	TotalTokens         int     `json:"totalTokens"`
	InputCost           float64 `json:"inputCost"`
	OutputCost          float64 `json:"outputCost"`
	CacheCreationCost   float64 `json:"cacheCreationCost"`
	CacheReadCost       float64 `json:"cacheReadCost"`
	TotalCost           float64 `json:"totalCost"`
	DurationMS          int64   `json:"duration"`
	StatusCode          int     `json:"statusCode"`
	UpstreamID          string  `json:"upstreamId"`
	UserAgent           string  `json:"userAgent"`
	ClientIP            string  `json:"clientIP"`
}
