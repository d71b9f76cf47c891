package firestore

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionCheckpoint    = "checkpoint"
	collectionToolConfig    = "tool_config"
	collectionProcessorItem = "processor_item"
	batchSize               = 500
)

// Client stores checkpoints, tool configurations and processor items in
// Firestore.
type Client struct {
	client *firestore.Client
}

var (
	_ interfaces.CheckpointStore     = (*Client)(nil)
	_ interfaces.ToolConfigStore     = (*Client)(nil)
	_ interfaces.ProcessorItemSource = (*Client)(nil)
)

// New creates a new Firestore-based repository
func New(ctx context.Context, projectID, databaseID string) (*Client, error) {
	var client *firestore.Client
	var err error

	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}

	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID),
		)
	}

	return &Client{
		client: client,
	}, nil
}

func (x *Client) Close() error {
	return x.client.Close()
}

// ToDocID validates an ID for use as a Firestore document ID. Firestore
// document IDs cannot contain "/" and cannot be "." or "..".
func ToDocID(id string) (string, error) {
	if id == "" || id == "." || id == ".." {
		return "", goerr.Wrap(repository.ErrInvalidInput, "invalid document ID", goerr.V("id", id))
	}
	if strings.Contains(id, "/") {
		return "", goerr.Wrap(repository.ErrInvalidInput, "document ID contains invalid character '/'", goerr.V("id", id))
	}
	return id, nil
}

// wrapErr classifies Firestore errors. Unavailable backends are transient.
func wrapErr(err error, msg string, values ...goerr.Option) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return goerr.Wrap(types.ErrUnavailable, msg, append(values, goerr.V("cause", err.Error()))...)
	}
	return goerr.Wrap(err, msg, values...)
}
