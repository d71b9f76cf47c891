package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/repository"
	"github.com/m-mizutani/devlens/pkg/repository/memory"
	"github.com/m-mizutani/devlens/pkg/repository/testhelper"
	"github.com/m-mizutani/gt"
)

func TestMemoryCheckpointStore(t *testing.T) {
	testhelper.TestCheckpointStore(t, memory.NewCheckpointStore())
}

func TestMemoryToolConfigStore(t *testing.T) {
	testhelper.TestToolConfigStore(t, memory.NewToolConfigStore())
}

func TestPagedSource(t *testing.T) {
	ctx := context.Background()
	src := memory.NewPagedSource([]int{1, 2, 3, 4, 5}, 2)

	var got []int
	cursor := model.Cursor("")
	for {
		batch := gt.R1(src.GetNextPage(ctx, cursor)).NoError(t)
		got = append(got, batch.Items...)
		if batch.IsLast {
			break
		}
		cursor = batch.NextCursor
	}

	gt.V(t, got).Equal([]int{1, 2, 3, 4, 5})
	gt.V(t, src.Requests()).Equal([]model.Cursor{"", "2", "4"})

	_, err := src.GetNextPage(ctx, "x")
	gt.True(t, errors.Is(err, repository.ErrInvalidInput))

	empty := gt.R1(memory.NewPagedSource([]int{}, 10).GetNextPage(ctx, "")).NoError(t)
	gt.True(t, empty.IsLast)
	gt.A(t, empty.Items).Length(0)
}

func TestSink(t *testing.T) {
	ctx := context.Background()
	sink := memory.NewSink[*model.ScmRecord]()

	commit := func(sha types.CommitSHA) *model.ScmRecord {
		return &model.ScmRecord{
			Kind:       types.ScmRecordCommit,
			Provider:   types.ProviderGitHub,
			Repository: "acme/api",
			Commit:     &model.CommitRecord{SHA: sha},
		}
	}

	result := gt.R1(sink.SaveAll(ctx, []*model.ScmRecord{
		commit("a"),
		commit("b"),
		commit("a"),
		{Kind: types.ScmRecordCommit, Repository: "acme/api"},
	})).NoError(t)

	gt.V(t, result.Saved).Equal(2)
	gt.V(t, result.Duplicates).Equal([]int{2})
	gt.A(t, result.Rejected).Length(1)
	gt.V(t, result.Rejected[0].Index).Equal(3)
	gt.A(t, sink.Items()).Length(2)
}

func TestSinkReplacesChangedPullRequest(t *testing.T) {
	ctx := context.Background()
	sink := memory.NewSink[*model.ScmRecord]()

	pr := func(state string) *model.ScmRecord {
		return &model.ScmRecord{
			Kind:        types.ScmRecordPullRequest,
			Provider:    types.ProviderGitHub,
			Repository:  "acme/api",
			PullRequest: &model.PullRequestRecord{Number: 7, State: state},
		}
	}

	result := gt.R1(sink.SaveAll(ctx, []*model.ScmRecord{pr("open")})).NoError(t)
	gt.V(t, result.Saved).Equal(1)

	result = gt.R1(sink.SaveAll(ctx, []*model.ScmRecord{pr("open")})).NoError(t)
	gt.V(t, result.Saved).Equal(0)
	gt.V(t, result.Duplicates).Equal([]int{0})

	result = gt.R1(sink.SaveAll(ctx, []*model.ScmRecord{pr("merged")})).NoError(t)
	gt.V(t, result.Saved).Equal(1)
	gt.A(t, result.Duplicates).Length(0)

	items := sink.Items()
	gt.A(t, items).Length(1)
	gt.V(t, items[0].PullRequest.State).Equal("merged")
}

func TestDatabaseKpiSampleGroups(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDatabase()
	gt.NoError(t, db.InsertKpiSamples(ctx, []model.KpiSample{
		{KpiID: "lead_time", Granularity: "week", Value: 3},
		{KpiID: "cycle_time", Granularity: "week", Value: 1},
		{KpiID: "lead_time", Granularity: "week", Value: 5},
	}))

	source := db.KpiSampleGroups(1)
	first := gt.R1(source.GetNextPage(ctx, "")).NoError(t)
	gt.A(t, first.Items).Length(1)
	gt.V(t, first.Items[0].KpiID).Equal(types.KpiID("cycle_time"))
	gt.False(t, first.IsLast)

	second := gt.R1(source.GetNextPage(ctx, first.NextCursor)).NoError(t)
	gt.V(t, second.Items[0].Values).Equal([]float64{3, 5})
	gt.True(t, second.IsLast)
}
