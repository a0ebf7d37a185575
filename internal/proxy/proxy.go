// Package proxy implements the Anthropic Proxy (C8): the request pipeline
// that authenticates, limit-checks, selects an upstream, and streams the
// request/response bytes through unmodified while metering usage.
package proxy

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ccgate/ccgate/internal/apperr"
	"github.com/ccgate/ccgate/internal/auth"
	"github.com/ccgate/ccgate/internal/balancer"
	"github.com/ccgate/ccgate/internal/config"
	"github.com/ccgate/ccgate/internal/limit"
	"github.com/ccgate/ccgate/internal/metrics"
	"github.com/ccgate/ccgate/internal/pricing"
	"github.com/ccgate/ccgate/internal/tokenusage"
	"github.com/ccgate/ccgate/internal/usage"
)

// Request is the framework-agnostic shape the proxy needs from an inbound
// HTTP request. Callers (the Fiber router, a test harness) build one of
// these from whatever transport they're on.
type Request struct {
	Method    string
	Path      string
	Header    http.Header
	Query     url.Values
	Body      []byte
	ClientIP  string
	UserAgent string
}

// Sink is the destination for a proxied response. The OpenAI Translator
// (C10) implements its own Sink that rewrites bytes in flight instead of
// passing them straight to the client, which is how it wraps the proxy
// without the proxy needing to know a translation is happening.
type Sink interface {
	WriteHeader(status int, header http.Header)
	Write(p []byte) (int, error)
}

// Proxy wires the Authenticator, Limit Guard, Load Balancer, Pricer and
// Usage Store into the single request pipeline described for C8.
type Proxy struct {
	cfgStore   *config.Store
	authn      *auth.Authenticator
	guard      *limit.Guard
	lb         *balancer.Balancer
	usageStore *usage.Store
	pricer     *pricing.Pricer
	client     *http.Client
}

// New builds a Proxy from its collaborators.
func New(cfgStore *config.Store, authn *auth.Authenticator, guard *limit.Guard, lb *balancer.Balancer, usageStore *usage.Store, pricer *pricing.Pricer) *Proxy {
	return &Proxy{
		cfgStore:   cfgStore,
		authn:      authn,
		guard:      guard,
		lb:         lb,
		usageStore: usageStore,
		pricer:     pricer,
		client:     &http.Client{},
	}
}

// Serve runs the full pipeline for one request, writing the result to sink.
// It never panics on upstream failure; every reachable exit path writes
// exactly one header/body pair to sink and, once a tenant is known, appends
// exactly one UsageRecord.
func (p *Proxy) Serve(ctx context.Context, req *Request, sink Sink) {
	start := time.Now()
	requestID := newRequestID()
	model, _ := auth.ExtractModel(req.Body)

	var tenant *config.Tenant
	var upstream config.Upstream
	var statusCode int
	var respBody []byte

	defer func() {
		elapsed := time.Since(start)
		metrics.HttpRequestDurationSeconds.WithLabelValues("anthropic_proxy").Observe(elapsed.Seconds())
		metrics.HttpRequestsTotal.WithLabelValues(fmt.Sprintf("%d", statusCode), "anthropic_proxy").Inc()
		metrics.HttpResponseCodesTotal.WithLabelValues(fmt.Sprintf("%d", statusCode), "anthropic_proxy").Inc()
		if statusCode >= 400 {
			metrics.HttpErrorsTotal.WithLabelValues(fmt.Sprintf("%d", statusCode), "anthropic_proxy").Inc()
		}
		if tenant != nil {
			p.recordUsage(requestID, tenant, model, upstream, statusCode, respBody, elapsed, req)
		}
	}()

	resolvedTenant, err := p.authn.Authenticate(req.Header, req.Query, model)
	if err != nil {
		statusCode = p.writeError(sink, requestID, err)
		return
	}
	tenant = resolvedTenant

	if model != "" {
		result, err := p.guard.CheckExceeded(tenant.ID, tenant.Limits.Daily.MaxUSD, model, pricing.TokenCounts{})
		if err != nil {
			statusCode = p.writeError(sink, requestID, apperr.Internal(err.Error()))
			return
		}
		if result.Exceeded {
			statusCode = p.writeError(sink, requestID, apperr.LimitExceeded(result.Message))
			return
		}
	}

	selected, err := p.lb.Select()
	if err != nil {
		statusCode = p.writeError(sink, requestID, err)
		return
	}
	upstream = selected

	reqCtx, cancel := context.WithTimeout(ctx, p.proxyTimeout())
	defer cancel()

	upstreamReq, err := p.buildUpstreamRequest(reqCtx, req, upstream)
	if err != nil {
		statusCode = p.writeError(sink, requestID, apperr.Internal(err.Error()))
		return
	}

	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		statusCode = p.writeError(sink, requestID, apperr.UpstreamError(err.Error()))
		return
	}
	defer resp.Body.Close()

	sink.WriteHeader(resp.StatusCode, resp.Header)
	statusCode = resp.StatusCode

	var tee bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(sinkWriter{sink}, &tee), resp.Body); err != nil {
		log.Printf("proxy: request %s: error streaming response body: %v", requestID, err)
	}
	respBody = tokenusage.Decode(tee.Bytes(), resp.Header.Get("Content-Encoding"))
}

type sinkWriter struct{ sink Sink }

func (w sinkWriter) Write(p []byte) (int, error) { return w.sink.Write(p) }

// writeError renders err as the standard JSON error envelope and returns the
// HTTP status that was written, for use as the UsageRecord's statusCode.
func (p *Proxy) writeError(sink Sink, requestID string, err error) int {
	e := apperr.As(err)

	body, _ := json.Marshal(map[string]interface{}{
		"error": map[string]string{
			"type":      string(e.Kind),
			"message":   e.Message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		"requestId": requestID,
	})

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if e.Status == http.StatusUnauthorized {
		header.Set("WWW-Authenticate", `Bearer realm="CCGate API", charset="UTF-8"`)
	}

	sink.WriteHeader(e.Status, header)
	sink.Write(body)
	return e.Status
}

// buildUpstreamRequest rewrites the path (stripping /anthropic and
// prepending the upstream's own path component), sets Host and replaces
// Authorization with the upstream's key, and drops X-Api-Key and
// Content-Length per the header rewrite rules.
func (p *Proxy) buildUpstreamRequest(ctx context.Context, req *Request, upstream config.Upstream) (*http.Request, error) {
	base, err := url.Parse(upstream.URL)
	if err != nil {
		return nil, err
	}

	target := *base
	target.Path = rewritePath(base.Path, req.Path)
	target.RawQuery = req.Query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}

	for k, vv := range req.Header {
		for _, v := range vv {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Del("Content-Length")
	httpReq.Header.Del("X-Api-Key")
	httpReq.Host = base.Host
	if upstream.Key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+upstream.Key)
	}

	return httpReq, nil
}

func (p *Proxy) proxyTimeout() time.Duration {
	seconds := p.cfgStore.Snapshot().Server.Proxy.TimeoutSeconds
	if seconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

// rewritePath strips a leading /anthropic from incomingPath and prepends
// upstreamBasePath; any other path passes through unchanged.
func rewritePath(upstreamBasePath, incomingPath string) string {
	if !strings.HasPrefix(incomingPath, "/anthropic") {
		return incomingPath
	}

	trimmed := strings.TrimPrefix(incomingPath, "/anthropic")
	if trimmed == "" {
		trimmed = "/"
	}

	if upstreamBasePath == "" || upstreamBasePath == "/" {
		return trimmed
	}
	return strings.TrimSuffix(upstreamBasePath, "/") + trimmed
}

func (p *Proxy) recordUsage(requestID string, tenant *config.Tenant, model string, upstream config.Upstream, statusCode int, body []byte, duration time.Duration, req *Request) {
	counts, _ := tokenusage.Extract(body)
	cost := p.pricer.Cost(model, counts)

	rec := usage.Record{
		RequestID:           requestID,
		TenantID:            tenant.ID,
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		Model:               model,
		InputTokens:         counts.InputTokens,
		OutputTokens:        counts.OutputTokens,
		CacheCreationTokens: counts.CacheCreationTokens,
		CacheReadTokens:     counts.CacheReadTokens,
		TotalTokens:         counts.InputTokens + counts.OutputTokens + counts.CacheCreationTokens + counts.CacheReadTokens,
		InputCost:           cost.InputCost,
		OutputCost:          cost.OutputCost,
		CacheCreationCost:   cost.CacheCreationCost,
		CacheReadCost:       cost.CacheReadCost,
		TotalCost:           cost.TotalCost,
		DurationMS:          duration.Milliseconds(),
		StatusCode:          statusCode,
		UpstreamID:          upstream.ID,
		UserAgent:           req.UserAgent,
		ClientIP:            req.ClientIP,
	}

	if err := p.usageStore.Record(rec); err != nil {
		log.Printf("proxy: request %s: failed to record usage: %v", requestID, err)
	}

	metrics.TenantSpendUSD.WithLabelValues(tenant.ID).Add(cost.TotalCost)
	metrics.LlmTokens.WithLabelValues("anthropic_proxy", "input").Observe(float64(counts.InputTokens))
	metrics.LlmTokens.WithLabelValues("anthropic_proxy", "output").Observe(float64(counts.OutputTokens))
}

func newRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
