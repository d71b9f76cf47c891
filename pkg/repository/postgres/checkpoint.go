package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

var (
	_ interfaces.CheckpointStore = (*Client)(nil)
	_ interfaces.Database        = (*Client)(nil)
)

const (
	selectCheckpoint = `SELECT run_id, cursor, completed, read_count, written_count, skipped_count, updated_at
FROM pipeline_checkpoint WHERE job_id = $1`

	upsertCheckpoint = `INSERT INTO pipeline_checkpoint (
	job_id, run_id, cursor, completed, read_count, written_count, skipped_count, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (job_id) DO UPDATE SET
	run_id = EXCLUDED.run_id,
	cursor = EXCLUDED.cursor,
	completed = EXCLUDED.completed,
	read_count = EXCLUDED.read_count,
	written_count = EXCLUDED.written_count,
	skipped_count = EXCLUDED.skipped_count,
	updated_at = EXCLUDED.updated_at`
)

func (x *Client) GetCheckpoint(ctx context.Context, jobID types.JobID) (*model.Checkpoint, error) {
	cp := model.Checkpoint{JobID: jobID}
	var runID, cursor string
	err := x.db.QueryRowContext(ctx, selectCheckpoint, string(jobID)).Scan(
		&runID, &cursor, &cp.Completed, &cp.Read, &cp.Written, &cp.Skipped, &cp.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "failed to get checkpoint", goerr.V("jobID", jobID))
	}

	cp.RunID = types.RunID(runID)
	cp.Cursor = model.Cursor(cursor)
	return &cp, nil
}

func (x *Client) PutCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	if cp.JobID == "" {
		return goerr.Wrap(repository.ErrInvalidInput, "job ID is empty")
	}

	if _, err := x.db.ExecContext(ctx, upsertCheckpoint,
		string(cp.JobID), string(cp.RunID), string(cp.Cursor), cp.Completed,
		cp.Read, cp.Written, cp.Skipped, cp.UpdatedAt,
	); err != nil {
		return classify(err, "failed to put checkpoint", goerr.V("jobID", cp.JobID))
	}
	return nil
}
