// Package config implements the Config Store (C1): a read-only,
// hot-reloadable view over server.json, upstreams.json, tenants.json and
// pricing.json.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Snapshot bundles one consistent view of all four config files.
type Snapshot struct {
	Server   ServerConfig
	Upstreams []Upstream
	LoadBalancer LoadBalancerConfig
	Tenants  []Tenant
	Pricing  PricingMap
}

// Store holds the current Snapshot behind an atomic pointer so readers
// never observe a half-built config during a reload.
type Store struct {
	dir     string
	current atomic.Pointer[Snapshot]

	mu          sync.Mutex
	subscribers []func(*Snapshot)
}

// Subscribe registers fn to be called with the new snapshot every time
// Reload replaces it, so collaborators like the Load Balancer can pick up a
// change in upstreams.json without restarting the process.
func (s *Store) Subscribe(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) notify(snap *Snapshot) {
	s.mu.Lock()
	subscribers := append([]func(*Snapshot){}, s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subscribers {
		fn(snap)
	}
}

// NewStore reads and validates the four config files under dir. It is
// fatal-on-error at startup, per the process exit code contract.
func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir}
	snap, err := load(dir)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return s, nil
}

// Snapshot returns the current configuration snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Reload re-reads the config directory and, if valid, atomically replaces
// the current snapshot. An invalid reload returns its error and is
// discarded; the previous snapshot stays live.
func (s *Store) Reload() error {
	snap, err := load(s.dir)
	if err != nil {
		return err
	}
	s.current.Store(snap)
	s.notify(snap)
	return nil
}

// Watch watches dir for changes to the four config files and reloads on
// write/create events until ctx is cancelled. Reload failures are logged,
// never fatal, since a bad edit must not take a running gateway down.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: failed to start watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("config: failed to watch %s: %w", s.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if !isConfigFile(event.Name) {
					continue
				}
				log.Printf("config: change detected in %s, reloading", event.Name)
				if err := s.Reload(); err != nil {
					log.Printf("config: reload failed, keeping previous snapshot: %v", err)
				} else {
					log.Printf("config: reload succeeded")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watcher error: %v", err)
			}
		}
	}()

	return nil
}

func isConfigFile(path string) bool {
	switch filepath.Base(path) {
	case "server.json", "upstreams.json", "tenants.json", "pricing.json":
		return true
	default:
		return false
	}
}

func load(dir string) (*Snapshot, error) {
	var server ServerConfig
	if err := readJSON(filepath.Join(dir, "server.json"), &server); err != nil {
		return nil, err
	}

	var upstreamsCfg UpstreamsConfig
	if err := readJSON(filepath.Join(dir, "upstreams.json"), &upstreamsCfg); err != nil {
		return nil, err
	}

	var tenantsCfg TenantsConfig
	if err := readJSON(filepath.Join(dir, "tenants.json"), &tenantsCfg); err != nil {
		return nil, err
	}

	var pricingCfg PricingConfig
	if err := readJSON(filepath.Join(dir, "pricing.json"), &pricingCfg); err != nil {
		return nil, err
	}

	if err := validate(upstreamsCfg, tenantsCfg); err != nil {
		return nil, err
	}

	applyDefaults(&upstreamsCfg)

	return &Snapshot{
		Server:       server,
		Upstreams:    upstreamsCfg.Upstreams,
		LoadBalancer: upstreamsCfg.LoadBalancer,
		Tenants:      tenantsCfg.Tenants,
		Pricing:      pricingCfg.ModelPricing,
	}, nil
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

func applyDefaults(u *UpstreamsConfig) {
	for i := range u.Upstreams {
		if u.Upstreams[i].Weight <= 0 {
			u.Upstreams[i].Weight = 100
		}
	}
}

func validate(u UpstreamsConfig, t TenantsConfig) error {
	anyEnabled := false
	for _, up := range u.Upstreams {
		if up.Enabled {
			anyEnabled = true
		}
	}
	if !anyEnabled {
		return fmt.Errorf("config: at least one enabled upstream is required")
	}

	seen := make(map[string]bool, len(t.Tenants))
	for _, tn := range t.Tenants {
		if seen[tn.Key] {
			return fmt.Errorf("config: duplicate tenant key for tenant %q", tn.ID)
		}
		seen[tn.Key] = true
	}

	return nil
}
