// Package schedule derives checkpoint timelines from a campaign's
// deadline window and drives the periodic evaluation loop.
package schedule

import (
	"sort"
	"time"

	"github.com/sells-group/campaign-engine/internal/model"
)

// DefaultFractions is the checkpoint cadence used when none is configured.
var DefaultFractions = []float64{0.25, 0.50, 0.75}

// Plan computes the checkpoint list for a campaign window. Each
// checkpoint fires at createdAt + fraction * (deadline - createdAt) and
// carries the linear expectation fraction * targetCount. Fractions
// outside (0,1) are dropped; the result is ordered ascending.
func Plan(createdAt, deadlineAt time.Time, targetCount int, fractions []float64) []model.Checkpoint {
	window := deadlineAt.Sub(createdAt)

	valid := make([]float64, 0, len(fractions))
	for _, f := range fractions {
		if f > 0 && f < 1 {
			valid = append(valid, f)
		}
	}
	sort.Float64s(valid)

	cps := make([]model.Checkpoint, 0, len(valid))
	for _, f := range valid {
		cps = append(cps, model.Checkpoint{
			Fraction:           f,
			ScheduledAt:        createdAt.Add(time.Duration(f * float64(window))),
			ExpectedCumulative: f * float64(targetCount),
		})
	}
	return cps
}

// NextDue returns the earliest unfired checkpoint whose scheduled time
// has passed, or nil when nothing is due. Campaigns in a terminal
// status never have due checkpoints.
func NextDue(c *model.Campaign, now time.Time) *model.Checkpoint {
	if c.Status.IsTerminal() {
		return nil
	}
	for i := range c.Checkpoints {
		cp := &c.Checkpoints[i]
		if !cp.Fired && !cp.ScheduledAt.After(now) {
			return cp
		}
	}
	return nil
}
