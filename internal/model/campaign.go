package model

import (
	"time"
)

// CampaignStatus represents the current state of an outreach campaign.
type CampaignStatus string

const (
	StatusForming   CampaignStatus = "forming"
	StatusActive    CampaignStatus = "active"
	StatusEscalated CampaignStatus = "escalated"
	StatusCompleted CampaignStatus = "completed"
	StatusExpired   CampaignStatus = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s CampaignStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// ResponseOutcome classifies an inbound response event.
type ResponseOutcome string

const (
	ResponseAccepted ResponseOutcome = "accepted"
	ResponseLate     ResponseOutcome = "late"
)

// Campaign is the central aggregate tracked by the engine. It is mutated
// only through the engine's per-campaign serialization point.
type Campaign struct {
	ID                 string             `json:"id"`
	Request            TargetRequest      `json:"request"`
	Strategy           *Strategy          `json:"strategy,omitempty"`
	SelectedCandidates []string           `json:"selected_candidates"`
	ActualCumulative   int                `json:"actual_cumulative"`
	LateResponses      []LateResponse     `json:"late_responses,omitempty"`
	Status             CampaignStatus     `json:"status"`
	Checkpoints        []Checkpoint       `json:"checkpoints"`
	Escalations        []EscalationRecord `json:"escalations,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	DeadlineAt         time.Time          `json:"deadline_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// SelectedSet returns the selected candidate IDs as a lookup set.
func (c *Campaign) SelectedSet() map[string]bool {
	set := make(map[string]bool, len(c.SelectedCandidates))
	for _, id := range c.SelectedCandidates {
		set[id] = true
	}
	return set
}

// RemainingTarget returns how many more accepted responses are needed.
func (c *Campaign) RemainingTarget() int {
	remaining := c.Request.TargetCount - c.ActualCumulative
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Checkpoint is a scheduled progress-evaluation point expressed as a
// fraction of the deadline window.
type Checkpoint struct {
	Fraction            float64   `json:"fraction"`
	ScheduledAt         time.Time `json:"scheduled_at"`
	ExpectedCumulative  float64   `json:"expected_cumulative"`
	Fired               bool      `json:"fired"`
	EscalationTriggered bool      `json:"escalation_triggered"`
}

// EscalationRecord is an append-only audit entry written each time the
// monitor recruits additional candidates mid-campaign.
type EscalationRecord struct {
	At                 time.Time `json:"at"`
	CheckpointFraction float64   `json:"checkpoint_fraction"`
	RemainingTarget    int       `json:"remaining_target"`
	Strategy           Strategy  `json:"strategy"`
	CandidatesAdded    int       `json:"candidates_added"`
}

// LateResponse records a response that arrived after the campaign
// reached a terminal status. It never counts toward the target.
type LateResponse struct {
	At time.Time `json:"at"`
}
