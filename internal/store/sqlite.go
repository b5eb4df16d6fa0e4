package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/linkmill/partners-cli/internal/model"
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
CREATE TABLE IF NOT EXISTS runs (
	project_id    TEXT PRIMARY KEY,
	items         TEXT NOT NULL,
	packs         TEXT,
	failures      TEXT,
	status        TEXT NOT NULL DEFAULT 'pending',
	total         INTEGER NOT NULL DEFAULT 0,
	succeeded     INTEGER NOT NULL DEFAULT 0,
	failed        INTEGER NOT NULL DEFAULT 0,
	processing_ms INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	started_at    DATETIME,
	completed_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	itemsJSON, packsJSON, failuresJSON, err := marshalRun(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (project_id, items, packs, failures, status, total, succeeded, failed, processing_ms, created_at, updated_at, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
			items = excluded.items,
			packs = excluded.packs,
			failures = excluded.failures,
			status = excluded.status,
			total = excluded.total,
			succeeded = excluded.succeeded,
			failed = excluded.failed,
			processing_ms = excluded.processing_ms,
			updated_at = excluded.updated_at,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		run.ProjectID, itemsJSON, packsJSON, failuresJSON,
		string(run.Status), run.Total, run.Succeeded, run.Failed, run.ProcessingMS,
		run.CreatedAt.UTC(), run.UpdatedAt.UTC(), nullTime(run.StartedAt), nullTime(run.CompletedAt),
	)
	return eris.Wrapf(err, "sqlite: save run %s", run.ProjectID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, projectID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT project_id, items, packs, failures, status, total, succeeded, failed, processing_ms, created_at, updated_at, started_at, completed_at
		 FROM runs WHERE project_id = ?`,
		projectID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT project_id, items, packs, failures, status, total, succeeded, failed, processing_ms, created_at, updated_at, started_at, completed_at
	          FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
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
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE created_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete old runs")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func marshalRun(run *model.Run) (items, packs, failures string, err error) {
	itemsJSON, err := json.Marshal(run.Items)
	if err != nil {
		return "", "", "", eris.Wrap(err, "marshal items")
	}
	packsJSON, err := json.Marshal(run.Packs)
	if err != nil {
		return "", "", "", eris.Wrap(err, "marshal packs")
	}
	failuresJSON, err := json.Marshal(run.Failures)
	if err != nil {
		return "", "", "", eris.Wrap(err, "marshal failures")
	}
	return string(itemsJSON), string(packsJSON), string(failuresJSON), nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r            model.Run
		itemsJSON    string
		packsJSON    sql.NullString
		failuresJSON sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	err := row.Scan(&r.ProjectID, &itemsJSON, &packsJSON, &failuresJSON,
		&r.Status, &r.Total, &r.Succeeded, &r.Failed, &r.ProcessingMS,
		&r.CreatedAt, &r.UpdatedAt, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan run")
	}

	if err := json.Unmarshal([]byte(itemsJSON), &r.Items); err != nil {
		return nil, eris.Wrap(err, "unmarshal items")
	}
	if packsJSON.Valid && packsJSON.String != "" {
		if err := json.Unmarshal([]byte(packsJSON.String), &r.Packs); err != nil {
			return nil, eris.Wrap(err, "unmarshal packs")
		}
	}
	if failuresJSON.Valid && failuresJSON.String != "" {
		if err := json.Unmarshal([]byte(failuresJSON.String), &r.Failures); err != nil {
			return nil, eris.Wrap(err, "unmarshal failures")
		}
	}
	if startedAt.Valid {
		t := startedAt.Time
		r.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}
