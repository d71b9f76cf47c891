package testhelper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/repository"
	"github.com/m-mizutani/gt"
)

// TestCheckpointStore runs the common test cases for CheckpointStore
// implementations.
func TestCheckpointStore(t *testing.T, store interfaces.CheckpointStore) {
	t.Run("MissingCheckpoint", func(t *testing.T) {
		ctx := context.Background()
		jobID := types.JobID(fmt.Sprintf("job-%s", uuid.New().String()[:8]))

		cp, err := store.GetCheckpoint(ctx, jobID)
		gt.NoError(t, err)
		gt.V(t, cp).Nil()
	})

	t.Run("PutAndOverwrite", func(t *testing.T) {
		ctx := context.Background()
		jobID := types.JobID(fmt.Sprintf("job-%s", uuid.New().String()[:8]))
		now := time.Now().UTC().Truncate(time.Millisecond)

		first := &model.Checkpoint{
			JobID:     jobID,
			RunID:     types.NewRunID(),
			Cursor:    "10",
			Read:      10,
			Written:   9,
			Skipped:   1,
			UpdatedAt: now,
		}
		gt.NoError(t, store.PutCheckpoint(ctx, first))

		got, err := store.GetCheckpoint(ctx, jobID)
		gt.NoError(t, err)
		gt.V(t, got).NotNil()
		gt.V(t, got.Cursor).Equal(model.Cursor("10"))
		gt.V(t, got.RunID).Equal(first.RunID)
		gt.V(t, got.Written).Equal(9)
		gt.False(t, got.Completed)
		gt.True(t, got.UpdatedAt.Equal(now))

		second := *first
		second.Cursor = "20"
		second.Completed = true
		second.UpdatedAt = now.Add(time.Minute)
		gt.NoError(t, store.PutCheckpoint(ctx, &second))

		got, err = store.GetCheckpoint(ctx, jobID)
		gt.NoError(t, err)
		gt.V(t, got.Cursor).Equal(model.Cursor("20"))
		gt.True(t, got.Completed)
	})

	t.Run("EmptyJobID", func(t *testing.T) {
		err := store.PutCheckpoint(context.Background(), &model.Checkpoint{Cursor: "1"})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, repository.ErrInvalidInput))
	})
}
