package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-engine/internal/dispatch"
	"github.com/sells-group/campaign-engine/internal/model"
	"github.com/sells-group/campaign-engine/internal/schedule"
	"github.com/sells-group/campaign-engine/internal/selector"
	"github.com/sells-group/campaign-engine/internal/strategy"
)

// CreateCampaign validates the request, computes the initial strategy,
// selects candidates, persists the campaign as active, and dispatches
// the first outreach wave. Validation failures surface synchronously;
// a campaign that cannot reach full confidence is still created.
func (e *Engine) CreateCampaign(ctx context.Context, req model.TargetRequest) (*model.Campaign, error) {
	now := time.Now().UTC()

	if req.UrgencyMultiplier == 0 {
		req.UrgencyMultiplier = 1.0
	}
	if err := req.Validate(now); err != nil {
		return nil, eris.Wrap(ErrInvalidRequest, err.Error())
	}

	log := zap.L().With(zap.String("component", "engine"))

	strat := strategy.Compute(req.TargetCount, req.Tiers, req.UrgencyMultiplier)
	if strat.Confidence < 1.0 {
		log.Warn("campaign created at reduced confidence",
			zap.Float64("confidence", strat.Confidence),
			zap.Float64("expected_responses", strat.ExpectedResponses),
			zap.Int("target_count", req.TargetCount),
		)
	}

	sel, err := selector.Select(ctx, strat, req.Tiers, nil, e.dir)
	if err != nil {
		return nil, eris.Wrap(err, "engine: initial selection")
	}

	c := &model.Campaign{
		ID:                 uuid.New().String(),
		Request:            req,
		Strategy:           &strat,
		SelectedCandidates: sel.Candidates,
		Status:             model.StatusForming,
		CreatedAt:          now,
		DeadlineAt:         req.Deadline,
		UpdatedAt:          now,
	}
	c.Checkpoints = schedule.Plan(c.CreatedAt, c.DeadlineAt, req.TargetCount, e.cfg.CheckpointFractions)

	// Forming -> Active: strategy and selection are complete.
	c.Status = model.StatusActive

	if err := e.store.CreateCampaign(ctx, c); err != nil {
		return nil, eris.Wrap(err, "engine: persist campaign")
	}

	log.Info("campaign created",
		zap.String("campaign_id", c.ID),
		zap.Int("target_count", req.TargetCount),
		zap.Int("selected", len(sel.Candidates)),
		zap.Float64("confidence", strat.Confidence),
		zap.Time("deadline", c.DeadlineAt),
	)

	e.dispatchOutreach(ctx, c.ID, sel.Candidates)

	return c, nil
}

// dispatchOutreach fans outreach out to the candidates. Delivery
// outcomes are observed only through response events, so failures are
// logged and never propagated.
func (e *Engine) dispatchOutreach(ctx context.Context, campaignID string, candidates []string) {
	if len(candidates) == 0 {
		return
	}
	if err := dispatch.FanOut(ctx, e.dispatcher, e.limiter, campaignID, e.cfg.Channel, candidates); err != nil {
		zap.L().Warn("engine: outreach fan-out interrupted",
			zap.String("campaign_id", campaignID),
			zap.Error(err),
		)
	}
}
