package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/campaign-engine/internal/model"
)

func TestCompute_CascadesThroughTiers(t *testing.T) {
	tiers := []model.Tier{
		{ID: "verified", Rate: 0.90, Available: 3},
		{ID: "re-engagement", Rate: 0.50, Available: 10},
		{ID: "cold", Rate: 0.33, Available: 100},
	}

	s := Compute(4, tiers, 1.0)

	// ceil(4/0.9)=5 capped to 3; remaining ~1.3 -> ceil(1.3/0.5)=3.
	assert.Equal(t, 3, s.PerTierContacts["verified"])
	assert.Equal(t, 3, s.PerTierContacts["re-engagement"])
	assert.Equal(t, 0, s.PerTierContacts["cold"])
	assert.InDelta(t, 4.2, s.ExpectedResponses, 1e-9)
	assert.Equal(t, 1.0, s.Confidence)
}

func TestCompute_ExhaustedPoolDegradesConfidence(t *testing.T) {
	tiers := []model.Tier{
		{ID: "verified", Rate: 0.70, Available: 3},
	}

	s := Compute(4, tiers, 1.0)

	assert.Equal(t, 3, s.PerTierContacts["verified"])
	assert.InDelta(t, 2.1, s.ExpectedResponses, 1e-9)
	assert.InDelta(t, 0.525, s.Confidence, 1e-9)
}

func TestCompute_ZeroTargetReturnsEmptyPlan(t *testing.T) {
	tiers := []model.Tier{
		{ID: "verified", Rate: 0.90, Available: 5},
	}

	s := Compute(0, tiers, 2.0)

	assert.Empty(t, s.PerTierContacts)
	assert.Zero(t, s.ExpectedResponses)
	assert.Equal(t, 1.0, s.Confidence)
}

func TestCompute_SkipsEmptyTiers(t *testing.T) {
	tiers := []model.Tier{
		{ID: "verified", Rate: 0.90, Available: 0},
		{ID: "cold", Rate: 0.25, Available: 50},
	}

	s := Compute(2, tiers, 1.0)

	_, planned := s.PerTierContacts["verified"]
	assert.False(t, planned)
	assert.Equal(t, 8, s.PerTierContacts["cold"])
	assert.InDelta(t, 2.0, s.ExpectedResponses, 1e-9)
	assert.Equal(t, 1.0, s.Confidence)
}

func TestCompute_UrgencyInflatesWithinAvailability(t *testing.T) {
	tiers := []model.Tier{
		{ID: "verified", Rate: 0.50, Available: 6},
		{ID: "cold", Rate: 0.25, Available: 5},
	}

	s := Compute(2, tiers, 1.5)

	// Greedy pass plans 4 verified contacts; urgency 1.5 boosts to 6.
	assert.Equal(t, 6, s.PerTierContacts["verified"])
	assert.InDelta(t, 3.0, s.ExpectedResponses, 1e-9)
	assert.Equal(t, 1.0, s.Confidence)
}

func TestCompute_PostClampNeverExceedsAvailability(t *testing.T) {
	tiers := []model.Tier{
		{ID: "a", Rate: 0.10, Available: 7},
		{ID: "b", Rate: 0.05, Available: 2},
	}

	for _, urgency := range []float64{1.0, 1.3, 2.0, 10.0} {
		s := Compute(5, tiers, urgency)
		for _, tier := range tiers {
			assert.LessOrEqual(t, s.PerTierContacts[tier.ID], tier.Available,
				"urgency %g tier %s", urgency, tier.ID)
		}
		// Expected responses must track the final allocation exactly.
		want := 0.0
		for _, tier := range tiers {
			want += float64(s.PerTierContacts[tier.ID]) * tier.Rate
		}
		assert.InDelta(t, want, s.ExpectedResponses, 1e-9)
	}
}

func TestCompute_EqualRatesResolvedByOrder(t *testing.T) {
	tiers := []model.Tier{
		{ID: "first", Rate: 0.50, Available: 10},
		{ID: "second", Rate: 0.50, Available: 10},
	}

	s := Compute(2, tiers, 1.0)

	assert.Equal(t, 4, s.PerTierContacts["first"])
	assert.Equal(t, 0, s.PerTierContacts["second"])
}
