package postgres_test

import (
	"context"
	"errors"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/repository/postgres"
	"github.com/m-mizutani/devlens/pkg/repository/testhelper"
	"github.com/m-mizutani/devlens/pkg/utils/testutil"
	"github.com/m-mizutani/gt"
)

func newMock(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	gt.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return postgres.New(db), mock
}

func usageStats(org string) *model.AIUsageStatistics {
	return &model.AIUsageStatistics{
		Tool:             "copilot",
		Organization:     org,
		Date:             time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		TotalSuggestions: 10,
		IngestedAt:       time.Now(),
	}
}

var insertUsage = regexp.QuoteMeta("INSERT INTO ai_usage_statistics")

func TestSaveAllRejectsPerItem(t *testing.T) {
	client, mock := newMock(t)
	ctx := context.Background()

	items := []*model.AIUsageStatistics{
		usageStats("acme"),
		usageStats("dup"),
		usageStats("broken"),
		{Tool: "copilot"}, // fails validation, never sent
		usageStats("beta"),
	}

	mock.ExpectBegin()

	mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertUsage).
		WithArgs("copilot", "acme", sqlmock.AnyArg(), 10, 0, 0.0, 0, 0, 0, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("^RELEASE SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertUsage).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^RELEASE SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertUsage).WillReturnError(&pq.Error{Code: "23514", Message: "check violation"})
	mock.ExpectExec("^ROLLBACK TO SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertUsage).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("^RELEASE SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectCommit()

	result := gt.R1(client.UsageStatistics().SaveAll(ctx, items)).NoError(t)
	gt.V(t, result.Saved).Equal(2)
	gt.V(t, result.Duplicates).Equal([]int{1})
	gt.A(t, result.Rejected).Length(2)
	gt.V(t, result.Rejected[0].Index).Equal(2)
	gt.S(t, result.Rejected[0].Reason).Contains("check violation")
	gt.V(t, result.Rejected[1].Index).Equal(3)

	gt.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAllConnectionFailure(t *testing.T) {
	testCases := map[string]error{
		"network":          &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")},
		"connection class": &pq.Error{Code: "08006", Message: "connection failure"},
		"admin shutdown":   &pq.Error{Code: "57P01", Message: "terminating connection"},
	}

	for name, cause := range testCases {
		t.Run(name, func(t *testing.T) {
			client, mock := newMock(t)
			mock.ExpectBegin()
			mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec(insertUsage).WillReturnError(cause)
			mock.ExpectRollback()

			_, err := client.UsageStatistics().SaveAll(context.Background(), []*model.AIUsageStatistics{usageStats("acme")})
			gt.Error(t, err)
			gt.True(t, errors.Is(err, types.ErrUnavailable))
			gt.True(t, types.IsTransient(err))
			gt.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("syntax error is not transient", func(t *testing.T) {
		client, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(insertUsage).WillReturnError(&pq.Error{Code: "42601", Message: "syntax error"})
		mock.ExpectRollback()

		_, err := client.UsageStatistics().SaveAll(context.Background(), []*model.AIUsageStatistics{usageStats("acme")})
		gt.Error(t, err)
		gt.False(t, types.IsTransient(err))
		gt.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSaveAllEmpty(t *testing.T) {
	client, mock := newMock(t)
	result := gt.R1(client.KpiBenchmarks().SaveAll(context.Background(), nil)).NoError(t)
	gt.V(t, result.Saved).Equal(0)
	gt.NoError(t, mock.ExpectationsWereMet())
}

func TestScmRecordsSaveAll(t *testing.T) {
	client, mock := newMock(t)
	committed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec := &model.ScmRecord{
		Kind:            types.ScmRecordCommit,
		ProcessorItemID: "item-1",
		Provider:        types.ProviderGitHub,
		RepositoryID:    "42",
		Repository:      "acme/api",
		Commit: &model.CommitRecord{
			SHA:         "abc123",
			Branch:      "main",
			Author:      "alice",
			CommittedAt: committed,
			Stats: model.PullRequestStats{
				FilesChanged:   []model.FileChange{{Path: "a.go", LinesAdded: 3, ChangeType: types.ChangeModified}},
				TotalAdditions: 3,
			},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scm_record")).
		WithArgs(
			"github:acme/api:commit:abc123", "commit", "github", "acme/api", "42", "item-1",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			committed, sqlmock.AnyArg(), 3, 0, false, 0, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("^RELEASE SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	result := gt.R1(client.ScmRecords().SaveAll(context.Background(), []*model.ScmRecord{rec})).NoError(t)
	gt.V(t, result.Saved).Equal(1)
	gt.A(t, result.Rejected).Length(0)
	gt.NoError(t, mock.ExpectationsWereMet())
}

func TestScmRecordsUpsertPullRequest(t *testing.T) {
	client, mock := newMock(t)
	merged := time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)

	pr := func(state string, mergedAt *time.Time) *model.ScmRecord {
		return &model.ScmRecord{
			Kind:         types.ScmRecordPullRequest,
			Provider:     types.ProviderGitHub,
			RepositoryID: "42",
			Repository:   "acme/api",
			PullRequest: &model.PullRequestRecord{
				Number:    7,
				Title:     "add api",
				State:     state,
				Author:    "alice",
				CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				MergedAt:  mergedAt,
			},
		}
	}

	upsert := regexp.QuoteMeta("ON CONFLICT (record_key) DO UPDATE SET")

	mock.ExpectBegin()
	mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(upsert).
		WithArgs(
			"github:acme/api:pr:7", "pull_request", "github", "acme/api", "42", "",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), merged, 0, 0, false, 0, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("^RELEASE SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	// unchanged row: the conflict clause updates nothing
	mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(upsert).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^RELEASE SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	result := gt.R1(client.ScmRecords().SaveAll(context.Background(), []*model.ScmRecord{
		pr("merged", &merged),
		pr("merged", &merged),
	})).NoError(t)
	gt.V(t, result.Saved).Equal(1)
	gt.V(t, result.Duplicates).Equal([]int{1})
	gt.A(t, result.Rejected).Length(0)
	gt.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		client, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM pipeline_checkpoint")).
			WithArgs("job-1").
			WillReturnRows(sqlmock.NewRows([]string{"run_id", "cursor", "completed", "read_count", "written_count", "skipped_count", "updated_at"}))

		cp, err := client.GetCheckpoint(ctx, "job-1")
		gt.NoError(t, err)
		gt.V(t, cp).Nil()
		gt.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("found", func(t *testing.T) {
		client, mock := newMock(t)
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("FROM pipeline_checkpoint")).
			WithArgs("job-1").
			WillReturnRows(sqlmock.NewRows([]string{"run_id", "cursor", "completed", "read_count", "written_count", "skipped_count", "updated_at"}).
				AddRow("run-1", "10", false, 10, 9, 1, now))

		cp := gt.R1(client.GetCheckpoint(ctx, "job-1")).NoError(t)
		gt.V(t, cp.RunID).Equal(types.RunID("run-1"))
		gt.V(t, cp.Cursor).Equal(model.Cursor("10"))
		gt.V(t, cp.Written).Equal(9)
		gt.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("upsert", func(t *testing.T) {
		client, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (job_id) DO UPDATE")).
			WithArgs("job-1", "run-1", "20", true, 20, 19, 1, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		gt.NoError(t, client.PutCheckpoint(ctx, &model.Checkpoint{
			JobID: "job-1", RunID: "run-1", Cursor: "20", Completed: true,
			Read: 20, Written: 19, Skipped: 1, UpdatedAt: time.Now(),
		}))
		gt.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty job ID", func(t *testing.T) {
		client, _ := newMock(t)
		gt.Error(t, client.PutCheckpoint(ctx, &model.Checkpoint{}))
	})
}

func TestKpiSampleGroups(t *testing.T) {
	client, mock := newMock(t)
	ctx := context.Background()
	cols := []string{"kpi_id", "granularity", "array_agg"}

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("cycle_time", "day", "{1,2}").
			AddRow("lead_time", "day", "{3}").
			AddRow("lead_time", "week", "{4,5,6}"))

	src := client.KpiSampleGroups(2)
	first := gt.R1(src.GetNextPage(ctx, "")).NoError(t)
	gt.A(t, first.Items).Length(2)
	gt.False(t, first.IsLast)
	gt.V(t, first.Items[0].Values).Equal([]float64{1, 2})
	gt.V(t, first.NextCursor).NotEqual(model.Cursor(""))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE (kpi_id, granularity) > ($1, $2)")).
		WithArgs("lead_time", "day", 3).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("lead_time", "week", "{4,5,6}"))

	second := gt.R1(src.GetNextPage(ctx, first.NextCursor)).NoError(t)
	gt.A(t, second.Items).Length(1)
	gt.True(t, second.IsLast)
	gt.V(t, second.Items[0].Granularity).Equal(types.Granularity("week"))

	_, err := src.GetNextPage(ctx, "%%%")
	gt.Error(t, err)

	gt.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres(t *testing.T) {
	dsn := testutil.GetEnvOrSkip(t, "TEST_POSTGRES_DSN")
	ctx := context.Background()

	client := gt.R1(postgres.Open(ctx, dsn)).NoError(t)
	t.Cleanup(func() { _ = client.Close() })
	gt.NoError(t, client.Migrate(ctx))

	t.Run("checkpoint", func(t *testing.T) {
		testhelper.TestCheckpointStore(t, client)
	})
}
