package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-engine/internal/model"
	"github.com/sells-group/campaign-engine/internal/resilience"
	"github.com/sells-group/campaign-engine/internal/schedule"
	"github.com/sells-group/campaign-engine/internal/selector"
	"github.com/sells-group/campaign-engine/internal/store"
	"github.com/sells-group/campaign-engine/internal/strategy"
)

// EvaluateDueCheckpoints scans live campaigns and processes deadline
// expiry and due checkpoints. It is driven by the schedule checker and
// is safe to call repeatedly: checkpoint firing is idempotent via the
// Fired flag, and terminal campaigns are skipped.
func (e *Engine) EvaluateDueCheckpoints(ctx context.Context, now time.Time) error {
	campaigns, err := e.store.ListCampaigns(ctx, store.CampaignFilter{ActiveOnly: true})
	if err != nil {
		return eris.Wrap(err, "engine: list active campaigns")
	}

	for _, c := range campaigns {
		e.evaluateCampaign(ctx, c.ID, now)
	}
	return nil
}

// evaluateCampaign processes one campaign: expiry first, then at most
// one due checkpoint. Escalation I/O happens outside the campaign lock;
// the decision and the commit each hold it briefly.
func (e *Engine) evaluateCampaign(ctx context.Context, campaignID string, now time.Time) {
	log := zap.L().With(
		zap.String("component", "engine.monitor"),
		zap.String("campaign_id", campaignID),
	)

	lock := e.campaignLock(campaignID)
	lock.Lock()

	c, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		lock.Unlock()
		log.Error("monitor: load campaign", zap.Error(err))
		return
	}

	// Pending timers for finished campaigns are no-ops.
	if c.Status.IsTerminal() {
		lock.Unlock()
		return
	}

	if !now.Before(c.DeadlineAt) {
		c.Status = model.StatusExpired
		err := e.store.UpdateCampaign(ctx, c)
		lock.Unlock()
		if err != nil {
			log.Error("monitor: persist expiry", zap.Error(err))
			return
		}
		log.Info("campaign expired",
			zap.Int("actual_cumulative", c.ActualCumulative),
			zap.Int("target_count", c.Request.TargetCount),
		)
		return
	}

	cp := schedule.NextDue(c, now)
	if cp == nil {
		lock.Unlock()
		return
	}

	// Level-triggered: a late checkpoint is judged against the counter
	// as it stands now, not as it stood at the scheduled time.
	cp.Fired = true
	behind := float64(c.ActualCumulative) < cp.ExpectedCumulative*e.cfg.EscalationThreshold

	if !behind {
		err := e.store.UpdateCampaign(ctx, c)
		lock.Unlock()
		if err != nil {
			log.Error("monitor: persist checkpoint", zap.Error(err))
		} else {
			log.Info("checkpoint on track",
				zap.Float64("fraction", cp.Fraction),
				zap.Int("actual_cumulative", c.ActualCumulative),
				zap.Float64("expected_cumulative", cp.ExpectedCumulative),
			)
		}
		return
	}

	// Commit the escalation decision before releasing the lock so a
	// concurrent evaluation of the same checkpoint is a no-op.
	cp.EscalationTriggered = true
	c.Status = model.StatusEscalated
	fraction := cp.Fraction
	remaining := c.RemainingTarget()
	urgency := c.Request.UrgencyMultiplier
	tiers := append([]model.Tier(nil), c.Request.Tiers...)
	already := c.SelectedSet()

	if err := e.store.UpdateCampaign(ctx, c); err != nil {
		lock.Unlock()
		log.Error("monitor: persist escalation decision", zap.Error(err))
		return
	}
	lock.Unlock()

	log.Warn("checkpoint behind, escalating",
		zap.Float64("fraction", fraction),
		zap.Int("actual_cumulative", c.ActualCumulative),
		zap.Float64("expected_cumulative", cp.ExpectedCumulative),
		zap.Int("remaining_target", remaining),
	)

	added, strat, err := e.recruit(ctx, remaining, urgency, tiers, already)
	if err != nil {
		// Transient failure: roll the checkpoint back so the next tick
		// or response event retries; the campaign keeps its last-known
		// strategy in the meantime.
		log.Error("monitor: escalation failed, deferring to next tick", zap.Error(err))
		e.rollbackEscalation(ctx, campaignID, fraction, log)
		return
	}

	lock.Lock()
	c, err = e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		lock.Unlock()
		log.Error("monitor: reload campaign", zap.Error(err))
		return
	}

	// The gate may have completed the campaign while we were selecting;
	// the recruits are then surplus and must not be dispatched.
	if c.Status.IsTerminal() {
		lock.Unlock()
		log.Info("escalation abandoned, campaign already terminal",
			zap.String("status", string(c.Status)))
		return
	}

	existing := c.SelectedSet()
	var fresh []string
	for _, id := range added {
		if !existing[id] {
			fresh = append(fresh, id)
			c.SelectedCandidates = append(c.SelectedCandidates, id)
		}
	}
	c.Strategy = &strat
	c.Escalations = append(c.Escalations, model.EscalationRecord{
		At:                 now,
		CheckpointFraction: fraction,
		RemainingTarget:    remaining,
		Strategy:           strat,
		CandidatesAdded:    len(fresh),
	})
	// Escalated is transient, recorded in history, not a sink.
	c.Status = model.StatusActive

	err = e.store.UpdateCampaign(ctx, c)
	lock.Unlock()
	if err != nil {
		log.Error("monitor: commit escalation", zap.Error(err))
		return
	}

	log.Info("escalation committed",
		zap.Int("candidates_added", len(fresh)),
		zap.Float64("new_confidence", strat.Confidence),
	)

	e.dispatchOutreach(ctx, campaignID, fresh)
}

// recruit recomputes the strategy for the remaining target against
// refreshed tier availability and draws additional candidates. Runs
// without the campaign lock; store and directory calls are retried.
func (e *Engine) recruit(ctx context.Context, remaining int, urgency float64, tiers []model.Tier, already map[string]bool) ([]string, model.Strategy, error) {
	retryCfg := e.cfg.Retry
	retryCfg.OnRetry = resilience.RetryLogger("engine.monitor", "recruit")

	// Re-query the directory: escalation may reveal deeper pools within
	// tiers already drawn from.
	for i := range tiers {
		avail, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (int, error) {
			return e.dir.Availability(ctx, tiers[i].ID)
		})
		if err != nil {
			return nil, model.Strategy{}, eris.Wrapf(err, "engine: refresh tier %s", tiers[i].ID)
		}
		tiers[i].Available = avail
	}

	strat := strategy.Compute(remaining, tiers, urgency)

	sel, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (selector.Result, error) {
		return selector.Select(ctx, strat, tiers, already, e.dir)
	})
	if err != nil {
		return nil, model.Strategy{}, eris.Wrap(err, "engine: escalation selection")
	}

	return sel.Candidates, strat, nil
}

// rollbackEscalation clears the Fired flag set by an escalation attempt
// whose I/O failed, restoring the campaign to plain active.
func (e *Engine) rollbackEscalation(ctx context.Context, campaignID string, fraction float64, log *zap.Logger) {
	lock := e.campaignLock(campaignID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		log.Error("monitor: rollback load", zap.Error(err))
		return
	}
	if c.Status.IsTerminal() {
		return
	}

	for i := range c.Checkpoints {
		if c.Checkpoints[i].Fraction == fraction {
			c.Checkpoints[i].Fired = false
			c.Checkpoints[i].EscalationTriggered = false
		}
	}
	if c.Status == model.StatusEscalated {
		c.Status = model.StatusActive
	}
	if err := e.store.UpdateCampaign(ctx, c); err != nil {
		log.Error("monitor: rollback persist", zap.Error(err))
	}
}
