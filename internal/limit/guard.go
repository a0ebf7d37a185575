// Package limit implements the Limit Guard (C5): a preflight check of a
// tenant's spend against its configured daily USD cap.
package limit

import (
	"fmt"

	"github.com/ccgate/ccgate/internal/metrics"
	"github.com/ccgate/ccgate/internal/pricing"
	"github.com/ccgate/ccgate/internal/usage"
)

// Result is the outcome of a preflight limit check.
type Result struct {
	Exceeded bool
	Message  string
}

// Guard checks a tenant's projected spend against its cap before a request
// is forwarded upstream. The check is advisory, not reserving: it is mainly
// useful for catching a tenant whose spend alone already meets the cap,
// since projectedTokens is usually zero (callers rarely have a reliable
// pre-estimate of response size). The post-response meter never rolls back
// an overshoot; a later request is rejected instead.
type Guard struct {
	store  *usage.Store
	pricer *pricing.Pricer
}

// New builds a Guard over the given usage store and pricer.
func New(store *usage.Store, pricer *pricing.Pricer) *Guard {
	return &Guard{store: store, pricer: pricer}
}

// CheckExceeded returns whether tenantID's spend, plus the projected cost of
// projectedTokens on model, would exceed maxUSD. A nil maxUSD means
// unlimited and always returns Exceeded=false.
func (g *Guard) CheckExceeded(tenantID string, maxUSD *float64, model string, projectedTokens pricing.TokenCounts) (Result, error) {
	if maxUSD == nil {
		return Result{}, nil
	}

	status, err := g.store.LimitStatusFor(tenantID, maxUSD)
	if err != nil {
		return Result{}, err
	}

	projectedCost := g.pricer.Cost(model, projectedTokens).TotalCost
	newTotal := status.SpendUSD + projectedCost

	if newTotal > *maxUSD {
		metrics.LimitRejections.WithLabelValues(tenantID).Inc()
		return Result{
			Exceeded: true,
			Message:  fmt.Sprintf("projected spend $%.6f exceeds daily cap $%.6f", newTotal, *maxUSD),
		}, nil
	}

	return Result{}, nil
}
