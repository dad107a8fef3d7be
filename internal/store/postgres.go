package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/campaign-engine/internal/db"
	"github.com/sells-group/campaign-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id                TEXT PRIMARY KEY,
	request           JSONB NOT NULL,
	strategy          JSONB,
	candidates        JSONB NOT NULL DEFAULT '[]',
	actual_cumulative INTEGER NOT NULL DEFAULT 0,
	late_responses    JSONB NOT NULL DEFAULT '[]',
	status            TEXT NOT NULL DEFAULT 'forming',
	checkpoints       JSONB NOT NULL DEFAULT '[]',
	escalations       JSONB NOT NULL DEFAULT '[]',
	created_at        TIMESTAMPTZ NOT NULL,
	deadline_at       TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
CREATE INDEX IF NOT EXISTS idx_campaigns_deadline_at ON campaigns(deadline_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	cols, err := marshalColumns(c)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO campaigns
		 (id, request, strategy, candidates, actual_cumulative, late_responses, status, checkpoints, escalations, created_at, deadline_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, cols.request, cols.strategy, cols.candidates, c.ActualCumulative, cols.lateResponses,
		string(c.Status), cols.checkpoints, cols.escalations, c.CreatedAt, c.DeadlineAt, c.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert campaign")
}

func (s *PostgresStore) UpdateCampaign(ctx context.Context, c *model.Campaign) error {
	cols, err := marshalColumns(c)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET
		 strategy = $1, candidates = $2, actual_cumulative = $3, late_responses = $4,
		 status = $5, checkpoints = $6, escalations = $7, updated_at = $8
		 WHERE id = $9`,
		cols.strategy, cols.candidates, c.ActualCumulative, cols.lateResponses,
		string(c.Status), cols.checkpoints, cols.escalations, time.Now().UTC(), c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update campaign %s", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", c.ID)
	}
	return nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, request, strategy, candidates, actual_cumulative, late_responses, status, checkpoints, escalations, created_at, deadline_at, updated_at
		 FROM campaigns WHERE id = $1`,
		id,
	)
	c, err := scanPgCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get campaign %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error) {
	query := `SELECT id, request, strategy, candidates, actual_cumulative, late_responses, status, checkpoints, escalations, created_at, deadline_at, updated_at
	          FROM campaigns WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.ActiveOnly {
		query += fmt.Sprintf(` AND status NOT IN ($%d, $%d)`, argIdx, argIdx+1)
		args = append(args, string(model.StatusCompleted), string(model.StatusExpired))
		argIdx += 2
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanPgCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign")
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, eris.Wrap(rows.Err(), "postgres: list campaigns iterate")
}

// helpers

type pgColumns struct {
	request       []byte
	strategy      []byte // nil when no strategy has been computed
	candidates    []byte
	lateResponses []byte
	checkpoints   []byte
	escalations   []byte
}

func marshalColumns(c *model.Campaign) (*pgColumns, error) {
	cols := &pgColumns{}
	var err error

	if cols.request, err = json.Marshal(c.Request); err != nil {
		return nil, eris.Wrap(err, "postgres: marshal request")
	}
	if c.Strategy != nil {
		if cols.strategy, err = json.Marshal(c.Strategy); err != nil {
			return nil, eris.Wrap(err, "postgres: marshal strategy")
		}
	}
	if cols.candidates, err = json.Marshal(emptySlice(c.SelectedCandidates)); err != nil {
		return nil, eris.Wrap(err, "postgres: marshal candidates")
	}
	if cols.lateResponses, err = json.Marshal(emptySlice(c.LateResponses)); err != nil {
		return nil, eris.Wrap(err, "postgres: marshal late responses")
	}
	if cols.checkpoints, err = json.Marshal(emptySlice(c.Checkpoints)); err != nil {
		return nil, eris.Wrap(err, "postgres: marshal checkpoints")
	}
	if cols.escalations, err = json.Marshal(emptySlice(c.Escalations)); err != nil {
		return nil, eris.Wrap(err, "postgres: marshal escalations")
	}

	return cols, nil
}

func scanPgCampaign(row pgx.Row) (*model.Campaign, error) {
	var c model.Campaign
	var requestJSON, candidatesJSON, lateJSON, checkpointsJSON, escalationsJSON []byte
	var strategyJSON *[]byte

	err := row.Scan(&c.ID, &requestJSON, &strategyJSON, &candidatesJSON, &c.ActualCumulative,
		&lateJSON, &c.Status, &checkpointsJSON, &escalationsJSON,
		&c.CreatedAt, &c.DeadlineAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(requestJSON, &c.Request); err != nil {
		return nil, eris.Wrap(err, "unmarshal request")
	}
	if strategyJSON != nil {
		c.Strategy = &model.Strategy{}
		if err := json.Unmarshal(*strategyJSON, c.Strategy); err != nil {
			return nil, eris.Wrap(err, "unmarshal strategy")
		}
	}
	for _, field := range []struct {
		src []byte
		dst any
	}{
		{candidatesJSON, &c.SelectedCandidates},
		{lateJSON, &c.LateResponses},
		{checkpointsJSON, &c.Checkpoints},
		{escalationsJSON, &c.Escalations},
	} {
		if err := json.Unmarshal(field.src, field.dst); err != nil {
			return nil, eris.Wrap(err, "unmarshal campaign field")
		}
	}

	return &c, nil
}
