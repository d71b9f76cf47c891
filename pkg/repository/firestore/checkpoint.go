package firestore

import (
	"context"

	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (x *Client) GetCheckpoint(ctx context.Context, jobID types.JobID) (*model.Checkpoint, error) {
	docID, err := ToDocID(string(jobID))
	if err != nil {
		return nil, err
	}

	snap, err := x.client.Collection(collectionCheckpoint).Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, wrapErr(err, "failed to get checkpoint", goerr.V("jobID", jobID))
	}

	var cp model.Checkpoint
	if err := snap.DataTo(&cp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode checkpoint", goerr.V("jobID", jobID))
	}

	return &cp, nil
}

func (x *Client) PutCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	docID, err := ToDocID(string(cp.JobID))
	if err != nil {
		return err
	}

	if _, err := x.client.Collection(collectionCheckpoint).Doc(docID).Set(ctx, cp); err != nil {
		return wrapErr(err, "failed to put checkpoint",
			goerr.V("jobID", cp.JobID),
			goerr.V("cursor", cp.Cursor),
		)
	}

	return nil
}
