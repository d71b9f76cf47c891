package testhelper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/repository"
	"github.com/m-mizutani/gt"
)

// TestToolConfigStore runs the common test cases for ToolConfigStore
// implementations.
func TestToolConfigStore(t *testing.T, store interfaces.ToolConfigStore) {
	t.Run("PutAndGet", func(t *testing.T) {
		ctx := context.Background()
		id := types.ToolConfigID(fmt.Sprintf("tc-%s", uuid.New().String()[:8]))

		cfg := &model.ToolConfig{
			ID:             id,
			Provider:       types.ProviderGitHub,
			Owner:          "acme",
			CredentialsRef: "env:GITHUB_TOKEN",
			Include:        []string{"api-*"},
			Exclude:        []string{"api-legacy"},
			SkipArchived:   true,
			LookbackDays:   30,
		}
		gt.NoError(t, store.PutToolConfig(ctx, cfg))

		got, err := store.GetToolConfig(ctx, id)
		gt.NoError(t, err)
		gt.V(t, got).Equal(cfg)

		// stored copies are not shared with the caller
		got.Include[0] = "changed"
		again, err := store.GetToolConfig(ctx, id)
		gt.NoError(t, err)
		gt.V(t, again.Include[0]).Equal("api-*")
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.GetToolConfig(context.Background(), types.ToolConfigID("missing-"+uuid.New().String()[:8]))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, repository.ErrNotFound))
	})

	t.Run("EmptyID", func(t *testing.T) {
		err := store.PutToolConfig(context.Background(), &model.ToolConfig{Owner: "acme"})
		gt.True(t, errors.Is(err, repository.ErrInvalidInput))
	})
}
