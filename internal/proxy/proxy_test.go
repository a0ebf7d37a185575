package proxy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ccgate/ccgate/internal/auth"
	"github.com/ccgate/ccgate/internal/balancer"
	"github.com/ccgate/ccgate/internal/config"
	"github.com/ccgate/ccgate/internal/limit"
	"github.com/ccgate/ccgate/internal/pricing"
	"github.com/ccgate/ccgate/internal/proxy"
	"github.com/ccgate/ccgate/internal/usage"
)

type recordingSink struct {
	status int
	header http.Header
	body   []byte
}

func (s *recordingSink) WriteHeader(status int, header http.Header) {
	s.status = status
	s.header = header
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.body = append(s.body, p...)
	return len(p), nil
}

func writeConfig(t *testing.T, dir, upstreamURL string) {
	t.Helper()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("server.json", `{"server":{"port":8080,"host":"0.0.0.0"},"proxy":{"timeout":5}}`)
	write("upstreams.json", `{"upstreams":[{"id":"up1","url":"`+upstreamURL+`","enabled":true,"weight":1}],"loadBalancer":{"strategy":"round_robin"}}`)
	write("tenants.json", `{"tenants":[{"id":"t1","key":"good-key","enabled":true,"allowedModels":["*haiku*"],"limits":{"daily":{"maxUSD":100}}}]}`)
	write("pricing.json", `{"modelPricing":{"claude-3-5-haiku-20241022":{"input":1,"output":2}}}`)
}

func newHarness(t *testing.T, upstreamURL string) (*proxy.Proxy, *config.Store, *usage.Store) {
	t.Helper()
	dir := t.TempDir()
	writeConfig(t, dir, upstreamURL)

	cfgStore, err := config.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	snap := cfgStore.Snapshot()
	authn := auth.New(cfgStore)
	usageStore := usage.NewStore(t.TempDir())
	pricer := pricing.New(snap.Pricing)
	guard := limit.New(usageStore, pricer)
	lb := balancer.New(snap.Upstreams, snap.LoadBalancer)

	return proxy.New(cfgStore, authn, guard, lb, usageStore, pricer), cfgStore, usageStore
}

func TestServeMissingAuthReturns401(t *testing.T) {
	p, _, _ := newHarness(t, "http://unused")

	sink := &recordingSink{}
	req := &proxy.Request{Method: "POST", Path: "/anthropic/v1/messages", Header: http.Header{}, Query: url.Values{}, Body: []byte(`{"model":"claude-3-5-haiku-20241022"}`)}
	p.Serve(context.Background(), req, sink)

	if sink.status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", sink.status)
	}
	if sink.header.Get("WWW-Authenticate") == "" {
		t.Errorf("expected WWW-Authenticate header on 401")
	}
}

func TestServeModelNotAllowedReturns403(t *testing.T) {
	p, _, _ := newHarness(t, "http://unused")

	sink := &recordingSink{}
	header := http.Header{}
	header.Set("Authorization", "Bearer good-key")
	req := &proxy.Request{Method: "POST", Path: "/anthropic/v1/messages", Header: header, Query: url.Values{}, Body: []byte(`{"model":"claude-sonnet-4-20250514"}`)}
	p.Serve(context.Background(), req, sink)

	if sink.status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", sink.status)
	}
}

func TestServeHappyPathNonStreaming(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer upstream-key" {
			t.Errorf("expected upstream authorization header rewritten, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","usage":{"input_tokens":100,"output_tokens":50}}`))
	}))
	defer upstream.Close()

	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("server.json", `{"server":{"port":8080,"host":"0.0.0.0"},"proxy":{"timeout":5}}`)
	write("upstreams.json", `{"upstreams":[{"id":"up1","url":"`+upstream.URL+`","key":"upstream-key","enabled":true,"weight":1}],"loadBalancer":{"strategy":"round_robin"}}`)
	write("tenants.json", `{"tenants":[{"id":"t1","key":"good-key","enabled":true,"allowedModels":["*haiku*"],"limits":{"daily":{"maxUSD":100}}}]}`)
	write("pricing.json", `{"modelPricing":{"claude-3-5-haiku-20241022":{"input":1,"output":2}}}`)

	cfgStore, err := config.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	snap := cfgStore.Snapshot()
	authn := auth.New(cfgStore)
	usageDir := t.TempDir()
	usageStore := usage.NewStore(usageDir)
	pricer := pricing.New(snap.Pricing)
	guard := limit.New(usageStore, pricer)
	lb := balancer.New(snap.Upstreams, snap.LoadBalancer)
	p := proxy.New(cfgStore, authn, guard, lb, usageStore, pricer)

	sink := &recordingSink{}
	header := http.Header{}
	header.Set("Authorization", "Bearer good-key")
	req := &proxy.Request{
		Method: "POST",
		Path:   "/anthropic/v1/messages",
		Header: header,
		Query:  url.Values{},
		Body:   []byte(`{"model":"claude-3-5-haiku-20241022","messages":[]}`),
	}
	p.Serve(context.Background(), req, sink)

	if sink.status != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", sink.status, sink.body)
	}

	agg, err := usageStore.DailyUsage("t1", time.Now().UTC())
	if err != nil {
		t.Fatalf("DailyUsage failed: %v", err)
	}
	if agg.RequestCount != 1 {
		t.Fatalf("expected 1 usage record, got %d", agg.RequestCount)
	}
	if agg.InputTokens != 100 || agg.OutputTokens != 50 {
		t.Errorf("expected tokens 100/50, got %d/%d", agg.InputTokens, agg.OutputTokens)
	}
	wantCost := 100.0/1000*1 + 50.0/1000*2
	if diff := agg.TotalCost - wantCost; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected total cost %v, got %v", wantCost, agg.TotalCost)
	}
}

func TestServeNoUpstreamReturns503(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("server.json", `{"server":{"port":8080,"host":"0.0.0.0"}}`)
	write("upstreams.json", `{"upstreams":[{"id":"up1","url":"http://unused","enabled":true,"weight":1}],"loadBalancer":{"strategy":"round_robin","healthCheckEnabled":true,"failoverEnabled":false}}`)
	write("tenants.json", `{"tenants":[{"id":"t1","key":"good-key","enabled":true,"allowedModels":["*"]}]}`)
	write("pricing.json", `{"modelPricing":{"*":{"input":1,"output":1}}}`)

	cfgStore, err := config.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	snap := cfgStore.Snapshot()
	authn := auth.New(cfgStore)
	usageStore := usage.NewStore(t.TempDir())
	pricer := pricing.New(snap.Pricing)
	guard := limit.New(usageStore, pricer)

	lb := balancer.New(snap.Upstreams, snap.LoadBalancer)
	lb.Reload(nil, snap.LoadBalancer) // force an empty upstream list, simulating "no candidates"

	p := proxy.New(cfgStore, authn, guard, lb, usageStore, pricer)

	sink := &recordingSink{}
	header := http.Header{}
	header.Set("Authorization", "Bearer good-key")
	req := &proxy.Request{Method: "POST", Path: "/anthropic/v1/messages", Header: header, Query: url.Values{}, Body: []byte(`{}`)}
	p.Serve(context.Background(), req, sink)

	if sink.status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", sink.status)
	}
}
