package firestore

import (
	"context"

	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (x *Client) GetToolConfig(ctx context.Context, id types.ToolConfigID) (*model.ToolConfig, error) {
	docID, err := ToDocID(string(id))
	if err != nil {
		return nil, err
	}

	snap, err := x.client.Collection(collectionToolConfig).Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(repository.ErrNotFound, "tool config not found", goerr.V("id", id))
		}
		return nil, wrapErr(err, "failed to get tool config", goerr.V("id", id))
	}

	var cfg model.ToolConfig
	if err := snap.DataTo(&cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode tool config", goerr.V("id", id))
	}

	return &cfg, nil
}

func (x *Client) PutToolConfig(ctx context.Context, cfg *model.ToolConfig) error {
	docID, err := ToDocID(string(cfg.ID))
	if err != nil {
		return err
	}

	if _, err := x.client.Collection(collectionToolConfig).Doc(docID).Set(ctx, cfg); err != nil {
		return wrapErr(err, "failed to put tool config", goerr.V("id", cfg.ID))
	}

	return nil
}
