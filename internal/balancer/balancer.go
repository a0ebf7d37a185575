// Package balancer implements the Load Balancer (C7): upstream candidate
// selection, the three selection strategies, and background health probing.
package balancer

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/ccgate/ccgate/internal/apperr"
	"github.com/ccgate/ccgate/internal/config"
	"github.com/ccgate/ccgate/internal/metrics"
)

const (
	defaultHealthCheckPath    = "/health"
	defaultHealthCheckTimeout = 5 * time.Second
	probeInterval             = 30 * time.Second
)

// Balancer selects a healthy upstream per request and tracks upstream
// health in the background.
type Balancer struct {
	client *http.Client

	mu           sync.Mutex
	upstreams    []config.Upstream
	strategy     string
	healthCheck  bool
	failover     bool
	unhealthy    map[string]bool
	rrIndex      int
	wrrCounters  map[string]int

	cancelProbe context.CancelFunc
}

// New builds a Balancer from the load-balancer config and upstream list.
// Reload wires the same instance to a later snapshot; callers typically
// build one Balancer at startup and call Reload on every config change.
func New(upstreams []config.Upstream, lb config.LoadBalancerConfig) *Balancer {
	b := &Balancer{
		client:    &http.Client{},
		unhealthy: map[string]bool{},
	}
	b.Reload(upstreams, lb)
	return b
}

// Reload atomically replaces the upstream list and strategy, clears the WRR
// counters, resets the round-robin index, and restarts the probe schedule.
func (b *Balancer) Reload(upstreams []config.Upstream, lb config.LoadBalancerConfig) {
	b.mu.Lock()
	if b.cancelProbe != nil {
		b.cancelProbe()
	}
	b.upstreams = upstreams
	b.strategy = normalizeStrategy(lb.Strategy)
	b.healthCheck = lb.HealthCheckEnabled
	b.failover = lb.FailoverEnabled
	b.unhealthy = map[string]bool{}
	b.rrIndex = 0
	b.wrrCounters = map[string]int{}
	b.mu.Unlock()

	if lb.HealthCheckEnabled {
		ctx, cancel := context.WithCancel(context.Background())
		b.mu.Lock()
		b.cancelProbe = cancel
		b.mu.Unlock()
		b.startProbing(ctx)
	}
}

func normalizeStrategy(s string) string {
	switch s {
	case "round_robin", "weighted_round_robin", "random":
		return s
	case "":
		return "weighted_round_robin"
	default:
		log.Printf("balancer: unrecognized strategy %q, falling back to weighted_round_robin", s)
		return "weighted_round_robin"
	}
}

// Select returns the next upstream to use, per the configured strategy, or
// apperr.NoUpstream if no candidate is available.
func (b *Balancer) Select() (config.Upstream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	candidates := b.candidatesLocked()
	if len(candidates) == 0 {
		return config.Upstream{}, apperr.NoUpstream("no healthy upstream available")
	}

	var selected config.Upstream
	switch b.strategy {
	case "round_robin":
		selected = candidates[b.rrIndex%len(candidates)]
		b.rrIndex++
	case "random":
		selected = candidates[rand.Intn(len(candidates))]
	default:
		selected = b.selectWeightedRoundRobinLocked(candidates)
	}

	metrics.UpstreamSelections.WithLabelValues(selected.ID).Inc()
	return selected, nil
}

func (b *Balancer) candidatesLocked() []config.Upstream {
	enabled := make([]config.Upstream, 0, len(b.upstreams))
	for _, u := range b.upstreams {
		if u.Enabled {
			enabled = append(enabled, u)
		}
	}

	if !b.healthCheck {
		return enabled
	}

	healthy := make([]config.Upstream, 0, len(enabled))
	for _, u := range enabled {
		if !b.unhealthy[u.ID] {
			healthy = append(healthy, u)
		}
	}
	if len(healthy) > 0 {
		return healthy
	}
	if b.failover {
		return enabled
	}
	return nil
}

// selectWeightedRoundRobinLocked implements smooth WRR: cw[i] += w[i] for
// every candidate, pick the argmax (ties broken by first occurrence), then
// subtract the total weight from the winner's counter.
func (b *Balancer) selectWeightedRoundRobinLocked(candidates []config.Upstream) config.Upstream {
	total := 0
	for _, u := range candidates {
		w := u.Weight
		if w <= 0 {
			// config.applyDefaults already rewrites every weight <= 0 to 100 in
			// loaded config; this only guards upstream lists built without it.
			w = 1
		}
		total += w
		b.wrrCounters[u.ID] += w
	}

	bestIdx := 0
	bestVal := b.wrrCounters[candidates[0].ID]
	for i := 1; i < len(candidates); i++ {
		v := b.wrrCounters[candidates[i].ID]
		if v > bestVal {
			bestVal = v
			bestIdx = i
		}
	}

	winner := candidates[bestIdx]
	b.wrrCounters[winner.ID] -= total
	return winner
}

// startProbing runs the first health probe immediately, then every 30
// seconds, until ctx is cancelled. Probes against every upstream run
// concurrently.
func (b *Balancer) startProbing(ctx context.Context) {
	go func() {
		b.probeAll(ctx)

		ticker := time.NewTicker(probeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.probeAll(ctx)
			}
		}
	}()
}

func (b *Balancer) probeAll(ctx context.Context) {
	b.mu.Lock()
	upstreams := append([]config.Upstream(nil), b.upstreams...)
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, u := range upstreams {
		wg.Add(1)
		go func(u config.Upstream) {
			defer wg.Done()
			b.probeOne(ctx, u)
		}(u)
	}
	wg.Wait()
}

func (b *Balancer) probeOne(ctx context.Context, u config.Upstream) {
	path := defaultHealthCheckPath
	timeout := defaultHealthCheckTimeout
	if u.HealthCheck != nil {
		if u.HealthCheck.Path != "" {
			path = u.HealthCheck.Path
		}
		if u.HealthCheck.TimeoutSeconds > 0 {
			timeout = time.Duration(u.HealthCheck.TimeoutSeconds) * time.Second
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	healthy := false
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.URL+path, nil)
	if err == nil {
		resp, err := b.client.Do(req)
		if err == nil {
			healthy = resp.StatusCode >= 200 && resp.StatusCode < 400
			resp.Body.Close()
		}
	}

	b.mu.Lock()
	was := b.unhealthy[u.ID]
	b.unhealthy[u.ID] = !healthy
	b.mu.Unlock()

	if healthy {
		metrics.UpstreamHealth.WithLabelValues(u.ID).Set(1)
	} else {
		metrics.UpstreamHealth.WithLabelValues(u.ID).Set(0)
	}

	if was == healthy {
		if healthy {
			log.Printf("balancer: upstream %s transitioned to healthy", u.ID)
		} else {
			log.Printf("balancer: upstream %s transitioned to unhealthy", u.ID)
		}
	}
}

// Close stops the background probe loop.
func (b *Balancer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelProbe != nil {
		b.cancelProbe()
	}
}
