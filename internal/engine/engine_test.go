package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/campaign-engine/internal/directory"
	"github.com/sells-group/campaign-engine/internal/model"
	"github.com/sells-group/campaign-engine/internal/resilience"
	"github.com/sells-group/campaign-engine/internal/store"
)

// captureDispatcher records dispatched candidate IDs.
type captureDispatcher struct {
	mu       sync.Mutex
	outreach []string
}

func (d *captureDispatcher) Dispatch(ctx context.Context, campaignID, candidateID, channel string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outreach = append(d.outreach, candidateID)
	return nil
}

func (d *captureDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.outreach)
}

// flakyDirectory wraps a Static directory and can be switched to fail.
type flakyDirectory struct {
	*directory.Static
	mu      sync.Mutex
	failing bool
}

func (f *flakyDirectory) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *flakyDirectory) ListAvailable(ctx context.Context, tierID string, limit int, exclude map[string]bool) ([]string, error) {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return nil, resilience.NewTransientError(context.DeadlineExceeded)
	}
	return f.Static.ListAvailable(ctx, tierID, limit, exclude)
}

func (f *flakyDirectory) Availability(ctx context.Context, tierID string) (int, error) {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return 0, resilience.NewTransientError(context.DeadlineExceeded)
	}
	return f.Static.Availability(ctx, tierID)
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func newTestEngine(t *testing.T, dir directory.Service, cfg Config) (*Engine, store.Store, *captureDispatcher) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = fastRetry()
	}
	d := &captureDispatcher{}
	return New(st, dir, d, cfg), st, d
}

func defaultTiers() []model.Tier {
	return []model.Tier{
		{ID: "verified", Rate: 0.90, Available: 3},
		{ID: "cold", Rate: 0.50, Available: 10},
	}
}

func defaultRequest(deadline time.Time) model.TargetRequest {
	return model.TargetRequest{
		TargetCount:       4,
		Deadline:          deadline,
		UrgencyMultiplier: 1.0,
		Tiers:             defaultTiers(),
	}
}
