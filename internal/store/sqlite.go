package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/campaign-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id                TEXT PRIMARY KEY,
	request           TEXT NOT NULL,
	strategy          TEXT,
	candidates        TEXT NOT NULL DEFAULT '[]',
	actual_cumulative INTEGER NOT NULL DEFAULT 0,
	late_responses    TEXT NOT NULL DEFAULT '[]',
	status            TEXT NOT NULL DEFAULT 'forming',
	checkpoints       TEXT NOT NULL DEFAULT '[]',
	escalations       TEXT NOT NULL DEFAULT '[]',
	created_at        DATETIME NOT NULL,
	deadline_at       DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
CREATE INDEX IF NOT EXISTS idx_campaigns_deadline_at ON campaigns(deadline_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	enc, err := encodeCampaign(c)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO campaigns
		 (id, request, strategy, candidates, actual_cumulative, late_responses, status, checkpoints, escalations, created_at, deadline_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, enc.request, enc.strategy, enc.candidates, c.ActualCumulative, enc.lateResponses,
		string(c.Status), enc.checkpoints, enc.escalations, c.CreatedAt, c.DeadlineAt, c.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert campaign")
}

func (s *SQLiteStore) UpdateCampaign(ctx context.Context, c *model.Campaign) error {
	enc, err := encodeCampaign(c)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET
		 strategy = ?, candidates = ?, actual_cumulative = ?, late_responses = ?,
		 status = ?, checkpoints = ?, escalations = ?, updated_at = ?
		 WHERE id = ?`,
		enc.strategy, enc.candidates, c.ActualCumulative, enc.lateResponses,
		string(c.Status), enc.checkpoints, enc.escalations, time.Now().UTC(), c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update campaign %s", c.ID)
	}
	return checkRowsAffected(res, c.ID)
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, request, strategy, candidates, actual_cumulative, late_responses, status, checkpoints, escalations, created_at, deadline_at, updated_at
		 FROM campaigns WHERE id = ?`,
		id,
	)
	return scanCampaign(row)
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error) {
	query := `SELECT id, request, strategy, candidates, actual_cumulative, late_responses, status, checkpoints, escalations, created_at, deadline_at, updated_at
	          FROM campaigns WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ActiveOnly {
		query += ` AND status NOT IN (?, ?)`
		args = append(args, string(model.StatusCompleted), string(model.StatusExpired))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, eris.Wrap(rows.Err(), "sqlite: list campaigns iterate")
}

// helpers

type encodedCampaign struct {
	request       string
	strategy      sql.NullString
	candidates    string
	lateResponses string
	checkpoints   string
	escalations   string
}

func encodeCampaign(c *model.Campaign) (*encodedCampaign, error) {
	enc := &encodedCampaign{}

	requestJSON, err := json.Marshal(c.Request)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal request")
	}
	enc.request = string(requestJSON)

	if c.Strategy != nil {
		strategyJSON, err := json.Marshal(c.Strategy)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal strategy")
		}
		enc.strategy = sql.NullString{String: string(strategyJSON), Valid: true}
	}

	for _, field := range []struct {
		dst *string
		src any
	}{
		{&enc.candidates, emptySlice(c.SelectedCandidates)},
		{&enc.lateResponses, emptySlice(c.LateResponses)},
		{&enc.checkpoints, emptySlice(c.Checkpoints)},
		{&enc.escalations, emptySlice(c.Escalations)},
	} {
		b, err := json.Marshal(field.src)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal campaign field")
		}
		*field.dst = string(b)
	}

	return enc, nil
}

// emptySlice keeps nil slices encoding as [] rather than null.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCampaign(row scannable) (*model.Campaign, error) {
	var c model.Campaign
	var requestJSON, candidatesJSON, lateJSON, checkpointsJSON, escalationsJSON string
	var strategyJSON sql.NullString

	err := row.Scan(&c.ID, &requestJSON, &strategyJSON, &candidatesJSON, &c.ActualCumulative,
		&lateJSON, &c.Status, &checkpointsJSON, &escalationsJSON,
		&c.CreatedAt, &c.DeadlineAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan campaign")
	}

	if err := json.Unmarshal([]byte(requestJSON), &c.Request); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal request")
	}
	if strategyJSON.Valid {
		c.Strategy = &model.Strategy{}
		if err := json.Unmarshal([]byte(strategyJSON.String), c.Strategy); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal strategy")
		}
	}
	for _, field := range []struct {
		src string
		dst any
	}{
		{candidatesJSON, &c.SelectedCandidates},
		{lateJSON, &c.LateResponses},
		{checkpointsJSON, &c.Checkpoints},
		{escalationsJSON, &c.Escalations},
	} {
		if err := json.Unmarshal([]byte(field.src), field.dst); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal campaign field")
		}
	}

	return &c, nil
}
