package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/linkmill/partners-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_run": `SELECT project_id, items, packs, failures, status, total, succeeded, failed, processing_ms, created_at, updated_at, started_at, completed_at FROM runs WHERE project_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

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
CREATE TABLE IF NOT EXISTS runs (
	project_id    TEXT PRIMARY KEY,
	items         JSONB NOT NULL,
	packs         JSONB,
	failures      JSONB,
	status        TEXT NOT NULL DEFAULT 'pending',
	total         INTEGER NOT NULL DEFAULT 0,
	succeeded     INTEGER NOT NULL DEFAULT 0,
	failed        INTEGER NOT NULL DEFAULT 0,
	processing_ms BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at    TIMESTAMPTZ,
	completed_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

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

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	itemsJSON, err := json.Marshal(run.Items)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal items")
	}
	packsJSON, err := json.Marshal(run.Packs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal packs")
	}
	failuresJSON, err := json.Marshal(run.Failures)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal failures")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (project_id, items, packs, failures, status, total, succeeded, failed, processing_ms, created_at, updated_at, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (project_id) DO UPDATE SET
			items = EXCLUDED.items,
			packs = EXCLUDED.packs,
			failures = EXCLUDED.failures,
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			succeeded = EXCLUDED.succeeded,
			failed = EXCLUDED.failed,
			processing_ms = EXCLUDED.processing_ms,
			updated_at = EXCLUDED.updated_at,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at`,
		run.ProjectID, itemsJSON, packsJSON, failuresJSON,
		string(run.Status), run.Total, run.Succeeded, run.Failed, run.ProcessingMS,
		run.CreatedAt.UTC(), run.UpdatedAt.UTC(), run.StartedAt, run.CompletedAt,
	)
	return eris.Wrapf(err, "postgres: save run %s", run.ProjectID)
}

func (s *PostgresStore) GetRun(ctx context.Context, projectID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT project_id, items, packs, failures, status, total, succeeded, failed, processing_ms, created_at, updated_at, started_at, completed_at FROM runs WHERE project_id = $1`,
		projectID,
	)
	r, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", projectID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT project_id, items, packs, failures, status, total, succeeded, failed, processing_ms, created_at, updated_at, started_at, completed_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
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
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM runs WHERE created_at < $1`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete old runs")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var (
		r            model.Run
		itemsJSON    []byte
		packsJSON    []byte
		failuresJSON []byte
	)

	err := row.Scan(&r.ProjectID, &itemsJSON, &packsJSON, &failuresJSON,
		&r.Status, &r.Total, &r.Succeeded, &r.Failed, &r.ProcessingMS,
		&r.CreatedAt, &r.UpdatedAt, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &r.Items); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal items")
	}
	if len(packsJSON) > 0 {
		if err := json.Unmarshal(packsJSON, &r.Packs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal packs")
		}
	}
	if len(failuresJSON) > 0 {
		if err := json.Unmarshal(failuresJSON, &r.Failures); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal failures")
		}
	}
	return &r, nil
}
