// Package engine orchestrates outreach campaigns: it owns the campaign
// state machine, evaluates checkpoints, escalates on shortfall, and
// gates completion. All mutations of a campaign's status and response
// counter pass through a per-campaign lock, held only for decision and
// commit, never across directory or dispatch I/O.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/campaign-engine/internal/directory"
	"github.com/sells-group/campaign-engine/internal/dispatch"
	"github.com/sells-group/campaign-engine/internal/model"
	"github.com/sells-group/campaign-engine/internal/resilience"
	"github.com/sells-group/campaign-engine/internal/schedule"
	"github.com/sells-group/campaign-engine/internal/store"
)

// ErrInvalidRequest marks a campaign request rejected at validation.
var ErrInvalidRequest = eris.New("invalid campaign request")

// Config holds the engine's tunable behavior.
type Config struct {
	// CheckpointFractions is the checkpoint cadence as fractions of the
	// deadline window. Defaults to schedule.DefaultFractions.
	CheckpointFractions []float64

	// EscalationThreshold scales the expected cumulative count a due
	// checkpoint is compared against. Default 0.8.
	EscalationThreshold float64

	// Channel names the outreach channel passed to the dispatcher.
	Channel string

	// DispatchRatePerSec throttles outreach fan-out. <= 0 means no limit.
	DispatchRatePerSec float64

	// Retry wraps store and directory I/O on the escalation path.
	Retry resilience.RetryConfig
}

func (c Config) withDefaults() Config {
	if len(c.CheckpointFractions) == 0 {
		c.CheckpointFractions = schedule.DefaultFractions
	}
	if c.EscalationThreshold <= 0 {
		c.EscalationThreshold = 0.8
	}
	if c.Channel == "" {
		c.Channel = "email"
	}
	return c
}

// Engine is the campaign orchestration entry point.
type Engine struct {
	store      store.Store
	dir        directory.Service
	dispatcher dispatch.Dispatcher
	limiter    *rate.Limiter
	cfg        Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an engine over the given collaborators.
func New(st store.Store, dir directory.Service, d dispatch.Dispatcher, cfg Config) *Engine {
	cfg = cfg.withDefaults()

	var limiter *rate.Limiter
	if cfg.DispatchRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.DispatchRatePerSec), 1)
	}

	return &Engine{
		store:      st,
		dir:        dir,
		dispatcher: d,
		limiter:    limiter,
		cfg:        cfg,
		locks:      make(map[string]*sync.Mutex),
	}
}

// campaignLock returns the serialization lock for one campaign.
func (e *Engine) campaignLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// StatusReport is the public view of a campaign's progress.
type StatusReport struct {
	ID               string               `json:"id"`
	Status           model.CampaignStatus `json:"status"`
	ActualCumulative int                  `json:"actual_cumulative"`
	TargetCount      int                  `json:"target_count"`
	Confidence       float64              `json:"confidence"`
	SelectedCount    int                  `json:"selected_count"`
	LateResponses    int                  `json:"late_responses"`
	Checkpoints      []model.Checkpoint   `json:"checkpoints"`
	DeadlineAt       time.Time            `json:"deadline_at"`
}

// GetStatus returns the current progress report for a campaign.
func (e *Engine) GetStatus(ctx context.Context, id string) (*StatusReport, error) {
	c, err := e.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	confidence := 0.0
	if c.Strategy != nil {
		confidence = c.Strategy.Confidence
	}

	return &StatusReport{
		ID:               c.ID,
		Status:           c.Status,
		ActualCumulative: c.ActualCumulative,
		TargetCount:      c.Request.TargetCount,
		Confidence:       confidence,
		SelectedCount:    len(c.SelectedCandidates),
		LateResponses:    len(c.LateResponses),
		Checkpoints:      c.Checkpoints,
		DeadlineAt:       c.DeadlineAt,
	}, nil
}
