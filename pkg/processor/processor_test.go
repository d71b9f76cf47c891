package processor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/mock"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/infra/provider"
	"github.com/m-mizutani/devlens/pkg/processor"
	"github.com/m-mizutani/devlens/pkg/repository/memory"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func withNow(ctx context.Context) context.Context {
	return logging.CtxWithTime(ctx, func() time.Time { return now })
}

func TestBenchmark(t *testing.T) {
	ctx := withNow(context.Background())
	proc := gt.R1(processor.NewBenchmark(nil)).NoError(t)

	out := gt.R1(proc.Process(ctx, &model.KpiSampleGroup{
		KpiID:       "lead_time",
		Granularity: "week",
		Values:      []float64{40, 10, 30, 20},
	})).NoError(t)

	gt.A(t, out).Length(1)
	gt.V(t, out[0].SampleSize).Equal(4)
	gt.V(t, out[0].PercentileValues).Equal(map[string]float64{"p50": 20, "p75": 30, "p90": 40})
	gt.V(t, out[0].ComputedAt).Equal(now)
	gt.NoError(t, out[0].Validate())

	empty := gt.R1(proc.Process(ctx, &model.KpiSampleGroup{KpiID: "lead_time", Granularity: "day"})).NoError(t)
	gt.A(t, empty).Length(0)

	custom := gt.R1(processor.NewBenchmark([]float64{99.9})).NoError(t)
	out = gt.R1(custom.Process(ctx, &model.KpiSampleGroup{KpiID: "k", Granularity: "g", Values: []float64{1, 2}})).NoError(t)
	gt.V(t, out[0].PercentileValues).Equal(map[string]float64{"p99.9": 2})

	_, err := processor.NewBenchmark([]float64{0})
	gt.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestUsageStatistics(t *testing.T) {
	ctx := withNow(context.Background())
	proc := processor.NewUsageStatistics()

	out := gt.R1(proc.Process(ctx, &model.AIUsageRecord{
		Tool:                "copilot",
		Organization:        "acme",
		Date:                "2024-04-30",
		TotalSuggestions:    200,
		AcceptedSuggestions: 50,
		ActiveUsers:         12,
		Users:               []model.AIUsageUserRow{{Login: "alice", TotalSuggestions: 200}},
	})).NoError(t)

	gt.A(t, out).Length(1)
	gt.V(t, out[0].AcceptanceRate).Equal(0.25)
	gt.V(t, out[0].Date).Equal(time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC))
	gt.V(t, out[0].IngestedAt).Equal(now)
	gt.V(t, out[0].ActiveUsers).Equal(12)

	zero := gt.R1(proc.Process(ctx, &model.AIUsageRecord{Tool: "copilot", Organization: "acme", Date: "2024-04-30"})).NoError(t)
	gt.V(t, zero[0].AcceptanceRate).Equal(0.0)

	testCases := map[string]*model.AIUsageRecord{
		"bad date":            {Tool: "copilot", Organization: "acme", Date: "30/04/2024"},
		"missing tool":        {Organization: "acme", Date: "2024-04-30"},
		"negative count":      {Tool: "copilot", Organization: "acme", Date: "2024-04-30", ActiveUsers: -1},
		"accepted over total": {Tool: "copilot", Organization: "acme", Date: "2024-04-30", TotalSuggestions: 1, AcceptedSuggestions: 2},
	}
	for name, rec := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := proc.Process(ctx, rec)
			gt.True(t, errors.Is(err, types.ErrValidation))
		})
	}
}

const addDiff = `diff --git a/a.go b/a.go
new file mode 100644
--- /dev/null
+++ b/a.go
@@ -0,0 +1,2 @@
+package a
+
`

type scanFixture struct {
	configs interfaces.ToolConfigStore
	adapter *mock.ProviderAdapterMock
	factory *provider.Factory
	item    *model.ProcessorItem
}

func newScanFixture(t *testing.T) *scanFixture {
	ctx := context.Background()
	configs := memory.NewToolConfigStore()
	gt.NoError(t, configs.PutToolConfig(ctx, &model.ToolConfig{
		ID:           "cfg-1",
		Provider:     "fake",
		Owner:        "acme",
		LookbackDays: 30,
	}))

	api := &model.Repository{ID: "1", Owner: "acme", Name: "api", DefaultBranch: "main"}
	web := &model.Repository{ID: "2", Owner: "acme", Name: "web", DefaultBranch: "main"}

	adapter := &mock.ProviderAdapterMock{
		FetchRepositoriesFunc: func(ctx context.Context, req *model.ScanRequest) (*model.RepositoryList, error) {
			gt.V(t, req.Since).Equal(now.AddDate(0, 0, -30))
			return &model.RepositoryList{Repositories: []*model.Repository{api, web}}, nil
		},
		SetActiveBranchesFunc: func(ctx context.Context, req *model.ScanRequest, repos []*model.Repository) []*model.RepositoryFailure {
			for _, r := range repos {
				r.SetActiveBranches([]types.BranchName{"feature", "main"})
			}
			return nil
		},
		FetchCommitsFunc: func(ctx context.Context, req *model.ScanRequest, repo *model.Repository, branch types.BranchName) ([]*model.Commit, error) {
			commits := []*model.Commit{{SHA: "shared", Diff: addDiff, ParentCount: 2}}
			if branch == "feature" {
				commits = append(commits, &model.Commit{SHA: "f1", Diff: addDiff, ParentCount: 1})
			}
			return commits, nil
		},
		FetchPullRequestsFunc: func(ctx context.Context, req *model.ScanRequest, repo *model.Repository) ([]*model.PullRequest, error) {
			return []*model.PullRequest{{Number: 7, State: "open", Diff: "not a diff"}}, nil
		},
	}

	factory := provider.NewFactory()
	factory.Register("fake", func(ctx context.Context, req *model.ScanRequest, s *provider.Session) (interfaces.ProviderAdapter, error) {
		return adapter, nil
	})

	return &scanFixture{
		configs: configs,
		adapter: adapter,
		factory: factory,
		item:    &model.ProcessorItem{ID: "item-1", ToolConfigID: "cfg-1", IsActive: true},
	}
}

func TestScmScan(t *testing.T) {
	ctx := withNow(context.Background())

	t.Run("emits deduplicated commits and pull requests", func(t *testing.T) {
		f := newScanFixture(t)
		proc := processor.NewScmScan(f.configs, f.factory)

		records := gt.R1(proc.Process(ctx, f.item)).NoError(t)
		// per repository: 2 unique commits + 1 pull request
		gt.A(t, records).Length(6)

		first := records[0]
		gt.V(t, first.Kind).Equal(types.ScmRecordCommit)
		gt.V(t, first.Commit.SHA).Equal(types.CommitSHA("shared"))
		gt.V(t, first.Commit.Branch).Equal(types.BranchName("main"))
		gt.True(t, first.Commit.Stats.MergeCommit)
		gt.V(t, first.Commit.Stats.TotalAdditions).Equal(2)
		gt.V(t, first.ProcessorItemID).Equal(types.ProcessorItemID("item-1"))
		gt.V(t, first.Repository).Equal("acme/api")
		gt.V(t, first.Provider).Equal(types.ProviderKind("fake"))

		gt.V(t, records[1].Commit.SHA).Equal(types.CommitSHA("f1"))
		gt.V(t, records[1].Commit.Branch).Equal(types.BranchName("feature"))

		pr := records[2]
		gt.V(t, pr.Kind).Equal(types.ScmRecordPullRequest)
		gt.V(t, pr.PullRequest.Number).Equal(7)
		gt.A(t, pr.PullRequest.Stats.FilesChanged).Length(0)

		keys := map[string]struct{}{}
		for _, r := range records {
			gt.NoError(t, r.Validate())
			keys[r.Key()] = struct{}{}
		}
		gt.V(t, len(keys)).Equal(6)
	})

	t.Run("repository failure is reported next to records", func(t *testing.T) {
		f := newScanFixture(t)
		f.adapter.FetchPullRequestsFunc = func(ctx context.Context, req *model.ScanRequest, repo *model.Repository) ([]*model.PullRequest, error) {
			if repo.Name == "web" {
				return nil, types.ErrTransientProvider
			}
			return nil, nil
		}
		proc := processor.NewScmScan(f.configs, f.factory)

		records, err := proc.Process(ctx, f.item)
		gt.A(t, records).Length(4)

		var partial *processor.PartialScanError
		gt.True(t, errors.As(err, &partial))
		gt.A(t, partial.Failures).Length(1)
		gt.V(t, partial.Failures[0].Stage).Equal("pull_requests")
		gt.False(t, types.IsTransient(err))
	})

	t.Run("active branch failure skips repository", func(t *testing.T) {
		f := newScanFixture(t)
		f.adapter.SetActiveBranchesFunc = func(ctx context.Context, req *model.ScanRequest, repos []*model.Repository) []*model.RepositoryFailure {
			repos[0].SetActiveBranches([]types.BranchName{"main"})
			repos[1].SetActiveBranches(nil)
			return []*model.RepositoryFailure{{Repository: "acme/web", Stage: "active_branches", Err: types.ErrPersistentProvider}}
		}
		proc := processor.NewScmScan(f.configs, f.factory)

		records, err := proc.Process(ctx, f.item)
		gt.Error(t, err)
		gt.A(t, records).Length(2)
		gt.A(t, f.adapter.FetchPullRequestsCalls()).Length(1)
	})

	t.Run("listing failure fails the item", func(t *testing.T) {
		f := newScanFixture(t)
		f.adapter.FetchRepositoriesFunc = func(ctx context.Context, req *model.ScanRequest) (*model.RepositoryList, error) {
			return nil, types.ErrTransientProvider
		}
		proc := processor.NewScmScan(f.configs, f.factory)

		records, err := proc.Process(ctx, f.item)
		gt.A(t, records).Length(0)
		gt.True(t, types.IsTransient(err))
	})

	t.Run("inactive item", func(t *testing.T) {
		f := newScanFixture(t)
		proc := processor.NewScmScan(f.configs, f.factory)

		records := gt.R1(proc.Process(ctx, &model.ProcessorItem{ID: "x", ToolConfigID: "cfg-1"})).NoError(t)
		gt.A(t, records).Length(0)
		gt.A(t, f.adapter.FetchRepositoriesCalls()).Length(0)
	})

	t.Run("unknown tool config", func(t *testing.T) {
		f := newScanFixture(t)
		proc := processor.NewScmScan(f.configs, f.factory)

		_, err := proc.Process(ctx, &model.ProcessorItem{ID: "x", ToolConfigID: "missing", IsActive: true})
		gt.Error(t, err)
	})

	t.Run("unregistered provider", func(t *testing.T) {
		configs := memory.NewToolConfigStore()
		gt.NoError(t, configs.PutToolConfig(ctx, &model.ToolConfig{ID: "cfg", Provider: "gitlab", Owner: "acme"}))
		proc := processor.NewScmScan(configs, provider.NewFactory())

		_, err := proc.Process(ctx, &model.ProcessorItem{ID: "x", ToolConfigID: "cfg", IsActive: true})
		gt.True(t, errors.Is(err, types.ErrConfiguration))
	})
}
