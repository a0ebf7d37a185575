// Package pricing implements the Pricer (C4): mapping a model name and a
// set of token counts to the USD cost of those tokens.
package pricing

import (
	"log"
	"math"

	"github.com/ccgate/ccgate/internal/config"
	"github.com/ccgate/ccgate/internal/matcher"
)

// TokenCounts is the raw token usage observed for one request.
type TokenCounts struct {
	InputTokens         int
	OutputTokens        int
	CacheCreationTokens int
	CacheReadTokens     int
}

// Cost is the per-category and total USD cost for a TokenCounts, each
// rounded to 6 decimal places.
type Cost struct {
	InputCost         float64
	OutputCost        float64
	CacheCreationCost float64
	CacheReadCost     float64
	TotalCost         float64
}

// Pricer looks up a pricing entry for a model and computes cost.
type Pricer struct {
	table config.PricingMap
}

// New builds a Pricer over the given pricing table.
func New(table config.PricingMap) *Pricer {
	return &Pricer{table: table}
}

// Cost computes the cost of usage for model, using exact-first then
// first-wildcard-match lookup in the table's insertion order. If no entry
// matches, all costs are zero and a warning is logged.
func (p *Pricer) Cost(model string, usage TokenCounts) Cost {
	entry, ok := p.lookup(model)
	if !ok {
		log.Printf("pricing: no pricing entry matches model %q, recording zero cost", model)
		return Cost{}
	}

	inputCost := round6(float64(usage.InputTokens) / 1000 * entry.Input)
	outputCost := round6(float64(usage.OutputTokens) / 1000 * entry.Output)
	cacheCreationCost := round6(float64(usage.CacheCreationTokens) / 1000 * entry.CacheCreation)
	cacheReadCost := round6(float64(usage.CacheReadTokens) / 1000 * entry.CacheRead)

	total := round6(inputCost + outputCost + cacheCreationCost + cacheReadCost)

	return Cost{
		InputCost:         inputCost,
		OutputCost:        outputCost,
		CacheCreationCost: cacheCreationCost,
		CacheReadCost:     cacheReadCost,
		TotalCost:         total,
	}
}

func (p *Pricer) lookup(model string) (config.PricingEntry, bool) {
	for _, e := range p.table.Entries {
		if e.Pattern == model {
			return e.Entry, true
		}
	}
	for _, e := range p.table.Entries {
		if matcher.Match(e.Pattern, model) {
			return e.Entry, true
		}
	}
	return config.PricingEntry{}, false
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
