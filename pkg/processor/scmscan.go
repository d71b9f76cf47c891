package processor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m-mizutani/devlens/pkg/diffparse"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// ScmScan scans the repositories configured by a processor item and emits one
// record per commit and per pull request.
type ScmScan struct {
	configs interfaces.ToolConfigStore
	factory interfaces.AdapterFactory
}

var _ interfaces.ItemProcessor[*model.ProcessorItem, *model.ScmRecord] = (*ScmScan)(nil)

func NewScmScan(configs interfaces.ToolConfigStore, factory interfaces.AdapterFactory) *ScmScan {
	return &ScmScan{configs: configs, factory: factory}
}

// PartialScanError carries the repositories that failed while the rest of the
// scan produced records. It does not unwrap to the provider errors, so the
// item is recorded as skipped instead of being scanned again.
type PartialScanError struct {
	Failures []*model.RepositoryFailure
}

func (x *PartialScanError) Error() string {
	msgs := make([]string, len(x.Failures))
	for i, f := range x.Failures {
		msgs[i] = f.Error()
	}
	return "repositories failed: " + strings.Join(msgs, "; ")
}

func (x *ScmScan) Process(ctx context.Context, item *model.ProcessorItem) ([]*model.ScmRecord, error) {
	logger := logging.From(ctx).With(slog.String("processor_item_id", string(item.ID)))
	if !item.IsActive {
		logger.Debug("Skipping inactive processor item")
		return nil, nil
	}

	cfg, err := x.configs.GetToolConfig(ctx, item.ToolConfigID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get tool config", goerr.V("tool_config_id", item.ToolConfigID))
	}
	if cfg == nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "tool config not found", goerr.V("tool_config_id", item.ToolConfigID))
	}

	req, err := cfg.ScanRequest(logging.CtxTime(ctx))
	if err != nil {
		return nil, err
	}

	adapter, err := x.factory.CreateScmAdapter(ctx, req)
	if err != nil {
		return nil, err
	}

	list, err := adapter.FetchRepositories(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch repositories",
			goerr.V("provider", req.Provider),
			goerr.V("owner", req.Owner),
		)
	}
	logger.Info("Retrieved repositories",
		slog.String("provider", string(req.Provider)),
		slog.String("owner", req.Owner),
		slog.Int("repositories", len(list.Repositories)),
	)

	failures := append([]*model.RepositoryFailure{}, list.Failures...)
	branchFailures := adapter.SetActiveBranches(ctx, req, list.Repositories)
	failures = append(failures, branchFailures...)

	failed := map[string]struct{}{}
	for _, f := range branchFailures {
		failed[f.Repository] = struct{}{}
	}

	var records []*model.ScmRecord
	for _, repo := range list.Repositories {
		if _, ok := failed[repo.FullName()]; ok {
			continue
		}

		scanned, failure := x.scanRepository(ctx, item, req, adapter, repo)
		records = append(records, scanned...)
		if failure != nil {
			failures = append(failures, failure)
			logger.Warn("Failed to scan repository",
				slog.String("repository", failure.Repository),
				slog.String("stage", failure.Stage),
				slog.String("error", failure.Err.Error()),
			)
		}
	}

	logger.Info("Completed repository scan",
		slog.Int("records", len(records)),
		slog.Int("failed_repositories", len(failures)),
	)

	if len(failures) > 0 {
		return records, &PartialScanError{Failures: failures}
	}
	return records, nil
}

// scanRepository collects commit records over the active branches, default
// branch first, and the pull request records of repo. A commit reachable from
// several branches is attributed to the first one.
func (x *ScmScan) scanRepository(ctx context.Context, item *model.ProcessorItem, req *model.ScanRequest, adapter interfaces.ProviderAdapter, repo *model.Repository) ([]*model.ScmRecord, *model.RepositoryFailure) {
	var records []*model.ScmRecord
	seen := map[types.CommitSHA]struct{}{}

	for _, branch := range branchOrder(repo) {
		commits, err := adapter.FetchCommits(ctx, req, repo, branch)
		if err != nil {
			return records, &model.RepositoryFailure{Repository: repo.FullName(), Stage: "commits", Err: err}
		}

		for _, c := range commits {
			if _, ok := seen[c.SHA]; ok {
				continue
			}
			seen[c.SHA] = struct{}{}

			stats := parseStats(ctx, c.Diff, slog.String("sha", string(c.SHA)))
			stats.MergeCommit = stats.MergeCommit || c.IsMerge()
			records = append(records, newRecord(item, req, repo, types.ScmRecordCommit, &model.CommitRecord{
				SHA:         c.SHA,
				Branch:      branch,
				Author:      c.Author,
				AuthorEmail: c.AuthorEmail,
				Message:     c.Message,
				CommittedAt: c.CommittedAt,
				Stats:       *stats,
			}, nil))
		}
	}

	prs, err := adapter.FetchPullRequests(ctx, req, repo)
	if err != nil {
		return records, &model.RepositoryFailure{Repository: repo.FullName(), Stage: "pull_requests", Err: err}
	}
	for _, pr := range prs {
		stats := parseStats(ctx, pr.Diff, slog.Int("number", pr.Number))
		records = append(records, newRecord(item, req, repo, types.ScmRecordPullRequest, nil, &model.PullRequestRecord{
			Number:       pr.Number,
			Title:        pr.Title,
			State:        pr.State,
			Author:       pr.Author,
			SourceBranch: pr.SourceBranch,
			TargetBranch: pr.TargetBranch,
			CreatedAt:    pr.CreatedAt,
			MergedAt:     pr.MergedAt,
			Stats:        *stats,
		}))
	}

	return records, nil
}

func branchOrder(repo *model.Repository) []types.BranchName {
	branches := repo.ActiveBranches()
	if !repo.IsActive(repo.DefaultBranch) {
		return branches
	}

	ordered := []types.BranchName{repo.DefaultBranch}
	for _, b := range branches {
		if b != repo.DefaultBranch {
			ordered = append(ordered, b)
		}
	}
	return ordered
}

// parseStats returns empty stats for a diff without any file header, the
// record is still emitted.
func parseStats(ctx context.Context, diff string, attr slog.Attr) *model.PullRequestStats {
	stats, err := diffparse.ParsePullRequestStats(diff)
	if err != nil {
		if !errors.Is(err, types.ErrParse) {
			logging.From(ctx).Error("unexpected diff parse failure", attr, slog.Any("error", err))
		} else {
			logging.From(ctx).Warn("unparsable diff", attr, slog.Any("error", err))
		}
		return model.NewPullRequestStats(&model.DiffResult{}, false)
	}
	return stats
}

func newRecord(item *model.ProcessorItem, req *model.ScanRequest, repo *model.Repository, kind types.ScmRecordKind, commit *model.CommitRecord, pr *model.PullRequestRecord) *model.ScmRecord {
	return &model.ScmRecord{
		Kind:            kind,
		ProcessorItemID: item.ID,
		Provider:        req.Provider,
		RepositoryID:    repo.ID,
		Repository:      repo.FullName(),
		Commit:          commit,
		PullRequest:     pr,
	}
}
