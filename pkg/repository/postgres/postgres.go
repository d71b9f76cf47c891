package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

// Client stores pipeline outputs and checkpoints in PostgreSQL.
type Client struct {
	db *sql.DB
}

// Open connects to PostgreSQL with lib/pq.
func Open(ctx context.Context, dsn string) (*Client, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		safe.Close(db)
		return nil, classify(err, "failed to connect postgres")
	}
	return New(db), nil
}

// New wraps an opened database handle.
func New(db *sql.DB) *Client {
	return &Client{db: db}
}

func (x *Client) Close() error {
	return x.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scm_record (
		record_key TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		provider TEXT NOT NULL,
		repository TEXT NOT NULL,
		repository_id TEXT NOT NULL,
		processor_item_id TEXT NOT NULL,
		sha TEXT,
		branch TEXT,
		pr_number INTEGER,
		title TEXT,
		state TEXT,
		author TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		merged_at TIMESTAMPTZ,
		total_additions INTEGER NOT NULL,
		total_deletions INTEGER NOT NULL,
		merge_commit BOOLEAN NOT NULL,
		skipped_sections INTEGER NOT NULL,
		files JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS kpi_sample (
		id BIGSERIAL PRIMARY KEY,
		kpi_id TEXT NOT NULL,
		granularity TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS kpi_sample_group ON kpi_sample (kpi_id, granularity)`,
	`CREATE TABLE IF NOT EXISTS kpi_benchmark (
		kpi_id TEXT NOT NULL,
		granularity TEXT NOT NULL,
		sample_size INTEGER NOT NULL CHECK (sample_size > 0),
		percentile_values JSONB NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (kpi_id, granularity, computed_at)
	)`,
	`CREATE TABLE IF NOT EXISTS ai_usage_statistics (
		tool TEXT NOT NULL,
		organization TEXT NOT NULL,
		date DATE NOT NULL,
		total_suggestions INTEGER NOT NULL,
		accepted_suggestions INTEGER NOT NULL,
		acceptance_rate DOUBLE PRECISION NOT NULL,
		lines_suggested INTEGER NOT NULL,
		lines_accepted INTEGER NOT NULL,
		active_users INTEGER NOT NULL,
		engaged_users INTEGER NOT NULL,
		ingested_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (tool, organization, date)
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_checkpoint (
		job_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		cursor TEXT NOT NULL,
		completed BOOLEAN NOT NULL,
		read_count INTEGER NOT NULL,
		written_count INTEGER NOT NULL,
		skipped_count INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables used by the stores if they do not exist.
func (x *Client) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := x.db.ExecContext(ctx, stmt); err != nil {
			return classify(err, "failed to migrate postgres schema")
		}
	}
	return nil
}

// classify wraps err and marks connection level failures as transient.
func classify(err error, msg string, values ...goerr.Option) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			// connection exception, insufficient resources, operator intervention
			return goerr.Wrap(types.ErrUnavailable, msg, append(values,
				goerr.V("cause", err.Error()),
				goerr.V("code", string(pqErr.Code)),
			)...)
		}
		return goerr.Wrap(err, msg, append(values, goerr.V("code", string(pqErr.Code)))...)
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return goerr.Wrap(types.ErrUnavailable, msg, append(values, goerr.V("cause", err.Error()))...)
	}

	return goerr.Wrap(err, msg, values...)
}

// integrityViolation reports a constraint violation of a single row.
func integrityViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return pqErr.Code.Name() + ": " + pqErr.Message, true
	}
	return "", false
}

// inserter describes how one item type is written.
type inserter[T any] struct {
	table string
	query string
	args  func(T) ([]any, error)
}

// saveAll writes items in one transaction. A row failing validation or a
// constraint is rolled back to its savepoint and rejected. A row the statement
// leaves untouched through its conflict clause is reported as a duplicate. Any
// other failure aborts the chunk.
func saveAll[T any](ctx context.Context, db *sql.DB, ins inserter[T], items []T) (*model.SaveResult, error) {
	result := &model.SaveResult{}
	if len(items) == 0 {
		return result, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err, "failed to begin transaction", goerr.V("table", ins.table))
	}
	defer safe.Rollback(tx)

	for i, item := range items {
		if v, ok := any(item).(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				result.Reject(i, err.Error())
				continue
			}
		}

		args, err := ins.args(item)
		if err != nil {
			result.Reject(i, err.Error())
			continue
		}

		if _, err := tx.ExecContext(ctx, "SAVEPOINT devlens_item"); err != nil {
			return nil, classify(err, "failed to create savepoint", goerr.V("table", ins.table))
		}

		res, err := tx.ExecContext(ctx, ins.query, args...)
		if err != nil {
			reason, ok := integrityViolation(err)
			if !ok {
				return nil, classify(err, "failed to insert row", goerr.V("table", ins.table), goerr.V("index", i))
			}
			if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT devlens_item"); err != nil {
				return nil, classify(err, "failed to rollback savepoint", goerr.V("table", ins.table))
			}
			result.Reject(i, reason)
			continue
		}

		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT devlens_item"); err != nil {
			return nil, classify(err, "failed to release savepoint", goerr.V("table", ins.table))
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, classify(err, "failed to get affected rows", goerr.V("table", ins.table))
		}
		if n == 0 {
			result.Duplicate(i)
			continue
		}
		result.Saved++
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err, "failed to commit transaction", goerr.V("table", ins.table))
	}
	return result, nil
}
