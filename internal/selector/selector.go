// Package selector draws concrete candidate identifiers for a strategy.
package selector

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-engine/internal/directory"
	"github.com/sells-group/campaign-engine/internal/model"
)

// Result holds the outcome of one selection pass.
type Result struct {
	Candidates []string       `json:"candidates"`
	Shortfall  map[string]int `json:"shortfall,omitempty"` // tier -> requested minus returned
}

// Select requests up to the strategy's per-tier contact counts from the
// directory, excluding candidates already selected for the campaign so
// re-selection on escalation is idempotent. A directory returning fewer
// candidates than requested is a sourcing shortfall: logged, recorded,
// and not an error.
func Select(ctx context.Context, strat model.Strategy, tiers []model.Tier, already map[string]bool, dir directory.Service) (Result, error) {
	res := Result{}
	exclude := make(map[string]bool, len(already))
	for id := range already {
		exclude[id] = true
	}

	// Walk tiers in priority order rather than ranging over the map.
	for _, tier := range tiers {
		want := strat.PerTierContacts[tier.ID]
		if want <= 0 {
			continue
		}

		ids, err := dir.ListAvailable(ctx, tier.ID, want, exclude)
		if err != nil {
			return Result{}, eris.Wrapf(err, "selector: list tier %s", tier.ID)
		}

		if len(ids) < want {
			if res.Shortfall == nil {
				res.Shortfall = make(map[string]int)
			}
			res.Shortfall[tier.ID] = want - len(ids)
			zap.L().Warn("selector: sourcing shortfall",
				zap.String("tier", tier.ID),
				zap.Int("requested", want),
				zap.Int("returned", len(ids)),
			)
		}

		for _, id := range ids {
			exclude[id] = true
			res.Candidates = append(res.Candidates, id)
		}
	}

	return res, nil
}
