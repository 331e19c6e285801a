package catalog

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/jetaide/backend/internal/adapter/llm"
)

// Constraints bound model selection.
type Constraints struct {
	// MaxPricePerMillion is the maximum average price (prompt/completion
	// averaged) per million tokens.
	MaxPricePerMillion float64
	// MinContextLength is the minimum context window required.
	MinContextLength int
	// PreferredProviders are provider prefixes (e.g. "anthropic") that
	// dominate price during ranking.
	PreferredProviders []string
}

// Selector picks the cheapest eligible model from the catalog.
type Selector struct {
	catalog  *Catalog
	fallback string
}

// NewSelector creates a selector. fallback is returned when no catalog
// entry satisfies the constraints.
func NewSelector(catalog *Catalog, fallback string) *Selector {
	return &Selector{catalog: catalog, fallback: fallback}
}

// Select returns the id of the cheapest eligible model, preferring
// preferred providers before price. With no eligible model it returns the
// fallback id. A catalog fetch failure is a hard error.
func (s *Selector) Select(ctx context.Context, c Constraints) (string, error) {
	models, err := s.catalog.Models(ctx, false)
	if err != nil {
		return "", err
	}

	var eligible []llm.Model
	for _, m := range models {
		if m.ContextLength < c.MinContextLength {
			continue
		}
		// Catalog prices are per token; the constraint is expressed per
		// million tokens.
		if avgPrice(m) > c.MaxPricePerMillion/1_000_000 {
			continue
		}
		eligible = append(eligible, m)
	}

	if len(eligible) == 0 {
		return s.fallback, nil
	}

	// Preference dominates price; price breaks ties within each tier.
	// Exact price ties keep catalog order (stable sort).
	sort.SliceStable(eligible, func(i, j int) bool {
		pi, pj := preferenceRank(eligible[i].ID, c.PreferredProviders), preferenceRank(eligible[j].ID, c.PreferredProviders)
		if pi != pj {
			return pi < pj
		}
		return avgPrice(eligible[i]) < avgPrice(eligible[j])
	})

	return eligible[0].ID, nil
}

// avgPrice averages the prompt and completion prices. Unparsable prices
// are treated as prohibitively expensive.
func avgPrice(m llm.Model) float64 {
	return (parsePrice(m.Pricing.Prompt) + parsePrice(m.Pricing.Completion)) / 2
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 999
	}
	return v
}

// preferenceRank is 0 for preferred providers and 1 otherwise. The
// provider is the model id's prefix before the first "/".
func preferenceRank(modelID string, preferred []string) int {
	provider, _, _ := strings.Cut(modelID, "/")
	for _, p := range preferred {
		if provider == p {
			return 0
		}
	}
	return 1
}
