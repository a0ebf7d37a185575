// Package metrics holds the Prometheus collectors shared across the proxy
// pipeline, registered once at package init and exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"status", "route"})

	HttpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	HttpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of HTTP errors",
	}, []string{"error", "route"})

	HttpResponseCodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_response_codes_total",
		Help: "Total number of HTTP response codes",
	}, []string{"code", "route"})

	LlmTokens = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_tokens",
		Help:    "Number of LLM tokens per completion",
		Buckets: prometheus.LinearBuckets(0, 50, 20),
	}, []string{"route", "direction"})

	UpstreamSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_selections_total",
		Help: "Total number of times each upstream was selected by the load balancer",
	}, []string{"upstream"})

	UpstreamHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "upstream_healthy",
		Help: "1 if the upstream's last health probe succeeded, 0 otherwise",
	}, []string{"upstream"})

	TenantSpendUSD = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_spend_usd_total",
		Help: "Total USD cost attributed to a tenant",
	}, []string{"tenant"})

	LimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "limit_rejections_total",
		Help: "Total number of requests rejected for exceeding a tenant's daily spend cap",
	}, []string{"tenant"})
)
