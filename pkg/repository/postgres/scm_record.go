package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const insertScmRecord = `INSERT INTO scm_record (
	record_key, kind, provider, repository, repository_id, processor_item_id,
	sha, branch, pr_number, title, state, author, occurred_at, merged_at,
	total_additions, total_deletions, merge_commit, skipped_sections, files
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (record_key) DO UPDATE SET
	title = EXCLUDED.title,
	state = EXCLUDED.state,
	merged_at = EXCLUDED.merged_at,
	total_additions = EXCLUDED.total_additions,
	total_deletions = EXCLUDED.total_deletions,
	merge_commit = EXCLUDED.merge_commit,
	skipped_sections = EXCLUDED.skipped_sections,
	files = EXCLUDED.files
WHERE scm_record.kind = 'pull_request' AND (
	scm_record.state IS DISTINCT FROM EXCLUDED.state OR
	scm_record.merged_at IS DISTINCT FROM EXCLUDED.merged_at OR
	scm_record.title IS DISTINCT FROM EXCLUDED.title OR
	scm_record.total_additions <> EXCLUDED.total_additions OR
	scm_record.total_deletions <> EXCLUDED.total_deletions
)`

type scmRecordStore struct {
	db *Client
}

// ScmRecords returns the store of normalized commits and pull requests. A
// commit is written once; a pull request row is updated when its state, title
// or diff changed since it was stored.
func (x *Client) ScmRecords() interfaces.PersistenceStore[*model.ScmRecord] {
	return &scmRecordStore{db: x}
}

func (x *scmRecordStore) SaveAll(ctx context.Context, items []*model.ScmRecord) (*model.SaveResult, error) {
	return saveAll(ctx, x.db.db, inserter[*model.ScmRecord]{
		table: "scm_record",
		query: insertScmRecord,
		args:  scmRecordArgs,
	}, items)
}

func scmRecordArgs(rec *model.ScmRecord) ([]any, error) {
	var (
		sha, branch, title, state, author *string
		number                            *int
		occurredAt                        time.Time
		mergedAt                          *time.Time
		stats                             model.PullRequestStats
	)

	switch rec.Kind {
	case types.ScmRecordCommit:
		c := rec.Commit
		sha, branch = ptr(string(c.SHA)), ptr(string(c.Branch))
		author = ptr(c.Author)
		occurredAt = c.CommittedAt
		stats = c.Stats
	case types.ScmRecordPullRequest:
		pr := rec.PullRequest
		number = &pr.Number
		title, state, author = ptr(pr.Title), ptr(pr.State), ptr(pr.Author)
		branch = ptr(string(pr.SourceBranch))
		occurredAt = pr.CreatedAt
		mergedAt = pr.MergedAt
		stats = pr.Stats
	}

	files := stats.FilesChanged
	if files == nil {
		files = []model.FileChange{}
	}
	raw, err := json.Marshal(files)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal file changes", goerr.V("key", rec.Key()))
	}

	return []any{
		rec.Key(), string(rec.Kind), string(rec.Provider), rec.Repository, rec.RepositoryID, string(rec.ProcessorItemID),
		sha, branch, number, title, state, author, occurredAt, mergedAt,
		stats.TotalAdditions, stats.TotalDeletions, stats.MergeCommit, stats.SkippedSections, string(raw),
	}, nil
}

func ptr[T any](v T) *T {
	return &v
}
