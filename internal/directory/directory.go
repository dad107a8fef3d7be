// Package directory defines the candidate sourcing contract consumed by
// the engine. Discovery, enrichment, and caching live behind this
// interface and are not the engine's concern.
package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
)

// Service supplies candidate identifiers per tier.
type Service interface {
	// ListAvailable returns up to limit candidate IDs for the tier,
	// excluding any ID present in exclude. It may return fewer than
	// limit; that is a shortfall, not an error.
	ListAvailable(ctx context.Context, tierID string, limit int, exclude map[string]bool) ([]string, error)

	// Availability reports how many candidates the tier can currently
	// supply. Called at creation and refreshed on escalation.
	Availability(ctx context.Context, tierID string) (int, error)
}

// Static is an in-memory Service with fixed per-tier pools. Candidate
// IDs are deterministic ("<tier>-0001", ...), which keeps CLI runs and
// tests reproducible. Pools can be grown to model a directory that
// reveals deeper slices on re-query.
type Static struct {
	mu    sync.RWMutex
	pools map[string][]string
}

// NewStatic builds a Static directory with size candidates per tier.
func NewStatic(sizes map[string]int) *Static {
	pools := make(map[string][]string, len(sizes))
	for tierID, n := range sizes {
		pools[tierID] = generateIDs(tierID, 0, n)
	}
	return &Static{pools: pools}
}

func generateIDs(tierID string, from, to int) []string {
	ids := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		ids = append(ids, fmt.Sprintf("%s-%04d", tierID, i+1))
	}
	return ids
}

// Grow adds n more candidates to the tier's pool.
func (s *Static) Grow(tierID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool := s.pools[tierID]
	s.pools[tierID] = append(pool, generateIDs(tierID, len(pool), len(pool)+n)...)
}

// Ensure makes the tier exist with at least n candidates in its pool.
func (s *Static) Ensure(tierID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool := s.pools[tierID]
	if len(pool) < n {
		s.pools[tierID] = append(pool, generateIDs(tierID, len(pool), n)...)
	} else if pool == nil {
		s.pools[tierID] = []string{}
	}
}

func (s *Static) ListAvailable(ctx context.Context, tierID string, limit int, exclude map[string]bool) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, ok := s.pools[tierID]
	if !ok {
		return nil, eris.Errorf("directory: unknown tier %s", tierID)
	}

	var out []string
	for _, id := range pool {
		if exclude[id] {
			continue
		}
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Static) Availability(ctx context.Context, tierID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, ok := s.pools[tierID]
	if !ok {
		return 0, eris.Errorf("directory: unknown tier %s", tierID)
	}
	return len(pool), nil
}
