// Package strategy computes per-tier contact plans for a response target.
package strategy

import (
	"math"

	"github.com/sells-group/campaign-engine/internal/model"
)

// Compute builds a contact plan for the remaining target by walking
// tiers in priority order. For each tier it plans enough contacts to
// cover the still-unaccounted target at that tier's response rate,
// clamped to availability. The urgency multiplier inflates the final
// allocation (re-clamped to availability) as safety margin; it does not
// change which tiers the greedy pass draws from.
//
// If the pool is exhausted before the target is covered, the best-effort
// allocation is returned with Confidence < 1. That is a degraded-success
// result, not an error.
func Compute(remainingTarget int, tiers []model.Tier, urgency float64) model.Strategy {
	contacts := make(map[string]int)

	if remainingTarget <= 0 {
		return model.Strategy{
			PerTierContacts:   contacts,
			ExpectedResponses: 0,
			Confidence:        1.0,
		}
	}
	if urgency < 1.0 {
		urgency = 1.0
	}

	remaining := float64(remainingTarget)
	for _, t := range tiers {
		if remaining <= 0 {
			break
		}
		if t.Available <= 0 || t.Rate <= 0 {
			continue
		}
		raw := int(math.Ceil(remaining / t.Rate))
		n := raw
		if n > t.Available {
			n = t.Available
		}
		contacts[t.ID] = n
		remaining -= float64(n) * t.Rate
	}

	// Safety margin: scale each allocation by urgency, re-clamped to
	// what the tier can actually supply.
	if urgency > 1.0 {
		for _, t := range tiers {
			n, ok := contacts[t.ID]
			if !ok {
				continue
			}
			boosted := int(math.Ceil(float64(n) * urgency))
			if boosted > t.Available {
				boosted = t.Available
			}
			contacts[t.ID] = boosted
		}
	}

	expected := 0.0
	for _, t := range tiers {
		expected += float64(contacts[t.ID]) * t.Rate
	}

	confidence := expected / float64(remainingTarget)
	if confidence > 1.0 {
		confidence = 1.0
	}

	return model.Strategy{
		PerTierContacts:   contacts,
		ExpectedResponses: expected,
		Confidence:        confidence,
	}
}
