package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetCampaign_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, request, strategy, candidates`).
		WithArgs("missing-campaign").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCampaign(context.Background(), "missing-campaign")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateCampaign(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	c := testCampaign()
	mock.ExpectExec(`INSERT INTO campaigns`).
		WithArgs(c.ID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 0,
			pgxmock.AnyArg(), "active", pgxmock.AnyArg(), pgxmock.AnyArg(),
			c.CreatedAt, c.DeadlineAt, c.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateCampaign(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCampaign_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	c := testCampaign()
	mock.ExpectExec(`UPDATE campaigns SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 0, pgxmock.AnyArg(),
			"active", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), c.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCampaign(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCampaign_ScansRow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	strategyJSON := []byte(`{"per_tier_contacts":{"verified":3},"expected_responses":2.7,"confidence":0.675}`)

	rows := pgxmock.NewRows([]string{
		"id", "request", "strategy", "candidates", "actual_cumulative",
		"late_responses", "status", "checkpoints", "escalations",
		"created_at", "deadline_at", "updated_at",
	}).AddRow(
		"camp-1",
		[]byte(`{"target_count":4,"deadline":"2026-03-01T20:00:00Z","urgency_multiplier":1,"tiers":[{"id":"verified","rate":0.9,"available":3}]}`),
		&strategyJSON,
		[]byte(`["verified-0001"]`),
		1,
		[]byte(`[]`),
		"active",
		[]byte(`[{"fraction":0.5,"scheduled_at":"2026-03-01T16:00:00Z","expected_cumulative":2,"fired":false,"escalation_triggered":false}]`),
		[]byte(`[]`),
		now, now.Add(8*time.Hour), now,
	)

	mock.ExpectQuery(`SELECT id, request, strategy, candidates`).
		WithArgs("camp-1").
		WillReturnRows(rows)

	got, err := s.GetCampaign(context.Background(), "camp-1")
	require.NoError(t, err)
	assert.Equal(t, "camp-1", got.ID)
	assert.Equal(t, 4, got.Request.TargetCount)
	assert.Equal(t, 1, got.ActualCumulative)
	require.NotNil(t, got.Strategy)
	assert.Equal(t, 3, got.Strategy.PerTierContacts["verified"])
	require.Len(t, got.Checkpoints, 1)
	assert.Equal(t, 0.5, got.Checkpoints[0].Fraction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCampaigns_ActiveOnly(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"id", "request", "strategy", "candidates", "actual_cumulative",
		"late_responses", "status", "checkpoints", "escalations",
		"created_at", "deadline_at", "updated_at",
	})

	mock.ExpectQuery(`SELECT .* FROM campaigns WHERE true AND status NOT IN \(\$1, \$2\)`).
		WithArgs("completed", "expired", 100).
		WillReturnRows(rows)

	got, err := s.ListCampaigns(context.Background(), CampaignFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
