package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTargetRequestValidate(t *testing.T) {
	now := time.Now().UTC()
	valid := TargetRequest{
		TargetCount:       4,
		Deadline:          now.Add(48 * time.Hour),
		UrgencyMultiplier: 1.0,
		Tiers:             []Tier{{ID: "verified", Rate: 0.9, Available: 3}},
	}

	tests := []struct {
		name    string
		mutate  func(r *TargetRequest)
		wantErr bool
	}{
		{"valid", func(r *TargetRequest) {}, false},
		{"zero target", func(r *TargetRequest) { r.TargetCount = 0 }, true},
		{"negative target", func(r *TargetRequest) { r.TargetCount = -2 }, true},
		{"no tiers", func(r *TargetRequest) { r.Tiers = nil }, true},
		{"past deadline", func(r *TargetRequest) { r.Deadline = now.Add(-time.Hour) }, true},
		{"urgency below one", func(r *TargetRequest) { r.UrgencyMultiplier = 0.5 }, true},
		{"empty tier id", func(r *TargetRequest) { r.Tiers[0].ID = "" }, true},
		{"zero rate", func(r *TargetRequest) { r.Tiers[0].Rate = 0 }, true},
		{"rate above one", func(r *TargetRequest) { r.Tiers[0].Rate = 1.2 }, true},
		{"negative availability", func(r *TargetRequest) { r.Tiers[0].Available = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			r.Tiers = append([]Tier(nil), valid.Tiers...)
			tt.mutate(&r)

			err := r.Validate(now)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCampaignStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusForming.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	assert.False(t, StatusEscalated.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
}

func TestCampaignRemainingTarget(t *testing.T) {
	c := &Campaign{Request: TargetRequest{TargetCount: 5}, ActualCumulative: 3}
	assert.Equal(t, 2, c.RemainingTarget())

	c.ActualCumulative = 7
	assert.Equal(t, 0, c.RemainingTarget())
}

func TestStrategyTotalContacts(t *testing.T) {
	s := Strategy{PerTierContacts: map[string]int{"verified": 3, "cold": 4}}
	assert.Equal(t, 7, s.TotalContacts())
	assert.Equal(t, 0, Strategy{}.TotalContacts())
}
