package config_test

import (
	"os"
	"testing"

	"github.com/ccgate/ccgate/internal/config"
)

func TestNewStoreLoadsAllFiles(t *testing.T) {
	store, err := config.NewStore("testdata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := store.Snapshot()
	if len(snap.Upstreams) != 2 {
		t.Fatalf("expected 2 upstreams, got %d", len(snap.Upstreams))
	}
	if snap.LoadBalancer.Strategy != "weighted_round_robin" {
		t.Errorf("expected weighted_round_robin strategy, got %q", snap.LoadBalancer.Strategy)
	}
	if len(snap.Tenants) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(snap.Tenants))
	}
	if len(snap.Pricing.Entries) != 3 {
		t.Fatalf("expected 3 pricing entries, got %d", len(snap.Pricing.Entries))
	}
	if snap.Pricing.Entries[0].Pattern != "claude-3-5-haiku-20241022" {
		t.Errorf("expected pricing order preserved, first entry was %q", snap.Pricing.Entries[0].Pattern)
	}
}

func TestNewStoreRejectsNoEnabledUpstream(t *testing.T) {
	dir := t.TempDir()
	writeAll(t, dir, `{"server":{"port":1,"host":"h"},"proxy":{"timeout":1},"admin":{},"logging":{},"openai":{}}`,
		`{"upstreams":[{"id":"a","enabled":false,"weight":1}],"loadBalancer":{"strategy":"round_robin"}}`,
		`{"tenants":[]}`,
		`{"modelPricing":{}}`,
	)

	if _, err := config.NewStore(dir); err == nil {
		t.Fatalf("expected error for no enabled upstream")
	}
}

func TestNewStoreRejectsDuplicateTenantKey(t *testing.T) {
	dir := t.TempDir()
	writeAll(t, dir, `{"server":{"port":1,"host":"h"},"proxy":{"timeout":1},"admin":{},"logging":{},"openai":{}}`,
		`{"upstreams":[{"id":"a","enabled":true,"weight":1}],"loadBalancer":{"strategy":"round_robin"}}`,
		`{"tenants":[{"id":"t1","key":"dup"},{"id":"t2","key":"dup"}]}`,
		`{"modelPricing":{}}`,
	)

	if _, err := config.NewStore(dir); err == nil {
		t.Fatalf("expected error for duplicate tenant key")
	}
}

func writeAll(t *testing.T, dir, server, upstreams, tenants, pricing string) {
	t.Helper()
	writeFile(t, dir+"/server.json", server)
	writeFile(t, dir+"/upstreams.json", upstreams)
	writeFile(t, dir+"/tenants.json", tenants)
	writeFile(t, dir+"/pricing.json", pricing)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
