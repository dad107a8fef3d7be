// Package dispatch hands selected candidates to the outreach channel.
// Delivery is fire-and-forget: success is observed only through
// response events, never through a dispatcher return value.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Dispatcher delivers one outreach request to a candidate.
type Dispatcher interface {
	Dispatch(ctx context.Context, campaignID, candidateID, channel string) error
}

// Logger is the default Dispatcher: it only records the outreach intent.
type Logger struct{}

func (Logger) Dispatch(ctx context.Context, campaignID, candidateID, channel string) error {
	zap.L().Info("dispatch: outreach",
		zap.String("campaign_id", campaignID),
		zap.String("candidate_id", candidateID),
		zap.String("channel", channel),
	)
	return nil
}

// Webhook POSTs each outreach request to an external delivery service.
type Webhook struct {
	URL    string
	client *http.Client
}

// NewWebhook creates a webhook dispatcher with a bounded client timeout.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *Webhook) Dispatch(ctx context.Context, campaignID, candidateID, channel string) error {
	payload, err := json.Marshal(map[string]string{
		"campaign_id":  campaignID,
		"candidate_id": candidateID,
		"channel":      channel,
	})
	if err != nil {
		return eris.Wrap(err, "dispatch: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "dispatch: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "dispatch: webhook request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("dispatch: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// FanOut dispatches a batch of candidates concurrently, throttled by the
// limiter. Individual delivery failures are logged and dropped; the only
// returned error is context cancellation, since outreach outcomes are
// observed through response events.
func FanOut(ctx context.Context, d Dispatcher, limiter *rate.Limiter, campaignID, channel string, candidates []string) error {
	g, gCtx := errgroup.WithContext(ctx)

	for _, candidateID := range candidates {
		if limiter != nil {
			if err := limiter.Wait(gCtx); err != nil {
				break
			}
		}
		g.Go(func() error {
			if err := d.Dispatch(gCtx, campaignID, candidateID, channel); err != nil {
				zap.L().Warn("dispatch: delivery failed",
					zap.String("campaign_id", campaignID),
					zap.String("candidate_id", candidateID),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "dispatch: fan out")
	}
	return ctx.Err()
}
