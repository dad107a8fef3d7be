package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-engine/internal/model"
	"github.com/sells-group/campaign-engine/internal/schedule"
)

// RecordResponse is the completion gate: the single serialization point
// for the response counter. Responses arriving after the campaign is
// completed or expired are classified late and recorded without
// touching the counter. The Completed transition happens here and
// nowhere else, exactly once, at the call where the counter first
// reaches the target.
func (e *Engine) RecordResponse(ctx context.Context, campaignID string) (model.ResponseOutcome, error) {
	now := time.Now().UTC()

	lock := e.campaignLock(campaignID)
	lock.Lock()

	c, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		lock.Unlock()
		return "", err
	}

	if c.Status.IsTerminal() {
		c.LateResponses = append(c.LateResponses, model.LateResponse{At: now})
		err := e.store.UpdateCampaign(ctx, c)
		lock.Unlock()
		if err != nil {
			return "", eris.Wrap(err, "engine: record late response")
		}
		zap.L().Info("late response recorded",
			zap.String("campaign_id", campaignID),
			zap.String("status", string(c.Status)),
		)
		return model.ResponseLate, nil
	}

	c.ActualCumulative++
	completed := c.ActualCumulative >= c.Request.TargetCount
	if completed {
		c.Status = model.StatusCompleted
	}

	if err := e.store.UpdateCampaign(ctx, c); err != nil {
		lock.Unlock()
		return "", eris.Wrap(err, "engine: record response")
	}
	checkpointDue := !completed && schedule.NextDue(c, now) != nil
	lock.Unlock()

	if completed {
		zap.L().Info("campaign completed",
			zap.String("campaign_id", campaignID),
			zap.Int("actual_cumulative", c.ActualCumulative),
			zap.Int("target_count", c.Request.TargetCount),
		)
	}

	// A response event also drives checkpoint evaluation, so a due
	// checkpoint missed by the timer is still picked up promptly.
	if checkpointDue {
		go e.evaluateCampaign(context.WithoutCancel(ctx), campaignID, now)
	}

	return model.ResponseAccepted, nil
}
