package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/campaign-engine/internal/model"
)

// ErrNotFound is returned when a campaign ID has no backing record.
var ErrNotFound = eris.New("campaign not found")

// CampaignFilter specifies criteria for listing campaigns.
type CampaignFilter struct {
	Status     model.CampaignStatus `json:"status,omitempty"`
	ActiveOnly bool                 `json:"active_only,omitempty"`
	Limit      int                  `json:"limit,omitempty"`
	Offset     int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the campaign engine.
// Counter and status mutations are serialized upstream by the engine's
// per-campaign lock; the store only needs atomic single-row writes.
type Store interface {
	CreateCampaign(ctx context.Context, c *model.Campaign) error
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	UpdateCampaign(ctx context.Context, c *model.Campaign) error
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
