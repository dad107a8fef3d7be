package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Tier is a quality echelon of the candidate pool with a historical
// response probability and an availability count captured at campaign
// creation. Tier order is priority order and is fixed per campaign.
type Tier struct {
	ID        string  `json:"id"`
	Rate      float64 `json:"rate"`      // response probability, (0,1]
	Available int     `json:"available"` // candidates reachable in this tier
}

// TargetRequest is the immutable input to a campaign.
type TargetRequest struct {
	TargetCount       int       `json:"target_count"`
	Deadline          time.Time `json:"deadline"`
	UrgencyMultiplier float64   `json:"urgency_multiplier"`
	Tiers             []Tier    `json:"tiers"`
}

// Validate checks the request against creation-time constraints.
func (r TargetRequest) Validate(now time.Time) error {
	if r.TargetCount <= 0 {
		return eris.Errorf("target_count must be positive, got %d", r.TargetCount)
	}
	if len(r.Tiers) == 0 {
		return eris.New("at least one tier is required")
	}
	if !r.Deadline.After(now) {
		return eris.New("deadline must be in the future")
	}
	if r.UrgencyMultiplier < 1.0 {
		return eris.Errorf("urgency_multiplier must be >= 1.0, got %g", r.UrgencyMultiplier)
	}
	for _, t := range r.Tiers {
		if t.ID == "" {
			return eris.New("tier id must not be empty")
		}
		if t.Rate <= 0 || t.Rate > 1 {
			return eris.Errorf("tier %s rate must be in (0,1], got %g", t.ID, t.Rate)
		}
		if t.Available < 0 {
			return eris.Errorf("tier %s availability must be >= 0, got %d", t.ID, t.Available)
		}
	}
	return nil
}

// Strategy is the immutable result of one calculator invocation: how
// many candidates to contact per tier and the response expectation.
type Strategy struct {
	PerTierContacts   map[string]int `json:"per_tier_contacts"`
	ExpectedResponses float64        `json:"expected_responses"`
	Confidence        float64        `json:"confidence"`
}

// TotalContacts returns the planned contact count across all tiers.
func (s Strategy) TotalContacts() int {
	total := 0
	for _, n := range s.PerTierContacts {
		total += n
	}
	return total
}
