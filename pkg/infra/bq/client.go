package bq

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/bigquery/storage/managedwriter"
	"cloud.google.com/go/bigquery/storage/managedwriter/adapt"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/devlens/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	insertRetryLimit = 5
	insertRetryWait  = 2 * time.Second
)

type Client struct {
	bqClient *bigquery.Client
	mwClient *managedwriter.Client
	project  string
	dataset  string
	tableID  types.BQTableID
}

var _ interfaces.BigQuery = (*Client)(nil)

func New(ctx context.Context, projectID types.GoogleProjectID, datasetID types.BQDatasetID, tableID types.BQTableID, options ...option.ClientOption) (*Client, error) {
	mwClient, err := managedwriter.NewClient(ctx, projectID.String(), options...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create bigquery client", goerr.V("projectID", projectID))
	}

	bqClient, err := bigquery.NewClient(ctx, string(projectID), options...)
	if err != nil {
		safe.Close(mwClient)
		return nil, goerr.Wrap(err, "failed to create BigQuery client", goerr.V("projectID", projectID))
	}

	return &Client{
		bqClient: bqClient,
		mwClient: mwClient,
		project:  projectID.String(),
		dataset:  datasetID.String(),
		tableID:  tableID,
	}, nil
}

// Table returns a client bound to another table of the same dataset. The
// underlying connections are shared.
func (x *Client) Table(tableID types.BQTableID) interfaces.BigQuery {
	c := *x
	c.tableID = tableID
	return &c
}

func (x *Client) Close() error {
	return errors.Join(x.mwClient.Close(), x.bqClient.Close())
}

// CreateTable implements interfaces.BigQuery.
func (x *Client) CreateTable(ctx context.Context, md *bigquery.TableMetadata) error {
	if err := x.bqClient.Dataset(x.dataset).Table(x.tableID.String()).Create(ctx, md); err != nil {
		return goerr.Wrap(err, "failed to create table", goerr.V("dataset", x.dataset), goerr.V("table", x.tableID))
	}
	return nil
}

// GetMetadata implements interfaces.BigQuery. If the table does not exist, it returns nil.
func (x *Client) GetMetadata(ctx context.Context) (*bigquery.TableMetadata, error) {
	md, err := x.bqClient.Dataset(x.dataset).Table(x.tableID.String()).Metadata(ctx)
	if err != nil {
		if gErr, ok := err.(*googleapi.Error); ok && gErr.Code == 404 {
			return nil, nil
		}
		return nil, wrapErr(err, "failed to get table metadata", goerr.V("dataset", x.dataset), goerr.V("table", x.tableID))
	}

	return md, nil
}

// Insert implements interfaces.BigQuery. A slice or array is appended as one
// row per element. With WithRetry(true), an insert rejected because the write
// stream has not caught up with a schema update is retried.
func (x *Client) Insert(ctx context.Context, schema bigquery.Schema, data any, opts ...interfaces.BigQueryInsertOption) error {
	var cfg interfaces.BigQueryInsertConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	for attempt := 0; ; attempt++ {
		err := x.insert(ctx, schema, data)
		if err == nil || !cfg.EnableRetry || !IsSchemaNotFoundError(err) || attempt >= insertRetryLimit {
			return err
		}

		wait := insertRetryWait * time.Duration(attempt+1)
		logging.From(ctx).Warn("schema is not propagated yet, retry insert",
			"table", x.tableID,
			"attempt", attempt+1,
			"wait", wait,
		)
		select {
		case <-ctx.Done():
			return goerr.Wrap(ctx.Err(), "insert retry interrupted", goerr.V("table", x.tableID))
		case <-time.After(wait):
		}
	}
}

func (x *Client) insert(ctx context.Context, schema bigquery.Schema, data any) error {
	convertedSchema, err := adapt.BQSchemaToStorageTableSchema(schema)
	if err != nil {
		return goerr.Wrap(err, "failed to convert schema")
	}

	descriptor, err := adapt.StorageSchemaToProto2Descriptor(convertedSchema, "root")
	if err != nil {
		return goerr.Wrap(err, "failed to convert schema to descriptor")
	}
	messageDescriptor, ok := descriptor.(protoreflect.MessageDescriptor)
	if !ok {
		return goerr.New("adapted descriptor is not a message descriptor")
	}
	descriptorProto, err := adapt.NormalizeDescriptor(messageDescriptor)
	if err != nil {
		return goerr.Wrap(err, "failed to normalize descriptor")
	}

	var rows [][]byte
	for _, record := range splitRows(data) {
		b, err := encodeRow(messageDescriptor, record)
		if err != nil {
			return err
		}
		rows = append(rows, b)
	}
	if len(rows) == 0 {
		return nil
	}

	ms, err := x.mwClient.NewManagedStream(ctx,
		managedwriter.WithDestinationTable(
			managedwriter.TableParentFromParts(
				x.project,
				x.dataset,
				x.tableID.String(),
			),
		),
		managedwriter.WithSchemaDescriptor(descriptorProto),
	)
	if err != nil {
		return wrapErr(err, "failed to create managed stream", goerr.V("table", x.tableID))
	}
	defer safe.Close(ms)

	arResult, err := ms.AppendRows(ctx, rows)
	if err != nil {
		return wrapErr(err, "failed to append rows", goerr.V("table", x.tableID), goerr.V("rows", len(rows)))
	}

	if _, err := arResult.FullResponse(ctx); err != nil {
		return wrapErr(err, "failed to get append result", goerr.V("table", x.tableID), goerr.V("rows", len(rows)))
	}

	return nil
}

func splitRows(data any) []any {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return []any{data}
	}

	rows := make([]any, v.Len())
	for i := range rows {
		rows[i] = v.Index(i).Interface()
	}
	return rows
}

func encodeRow(md protoreflect.MessageDescriptor, record any) ([]byte, error) {
	message := dynamicpb.NewMessage(md)

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to Marshal json message", goerr.V("v", record))
	}
	sanitizedRaw, err := sanitizeProtoJSON(raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to sanitize json message", goerr.V("raw", string(raw)))
	}

	// First, json->proto message
	if err := protojson.Unmarshal(sanitizedRaw, message); err != nil {
		return nil, goerr.Wrap(err, "failed to Unmarshal json message", goerr.V("raw", string(raw)))
	}
	// Then, proto message -> bytes.
	b, err := proto.Marshal(message)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to Marshal proto message")
	}
	return b, nil
}

// IsSchemaNotFoundError reports whether the write API rejected rows because
// the stream does not know fields added by a recent schema update.
func IsSchemaNotFoundError(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := status.FromError(e); ok && st.Code() == codes.InvalidArgument {
			return strings.Contains(st.Message(), "Input schema has more fields than BigQuery schema")
		}
	}
	return false
}

func wrapErr(err error, msg string, values ...goerr.Option) error {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return goerr.Wrap(types.ErrUnavailable, msg, append(values, goerr.V("cause", err.Error()))...)
		}
	}
	if gErr, ok := err.(*googleapi.Error); ok && (gErr.Code == 429 || gErr.Code >= 500) {
		return goerr.Wrap(types.ErrUnavailable, msg, append(values, goerr.V("cause", err.Error()))...)
	}
	return goerr.Wrap(err, msg, values...)
}

func sanitizeProtoJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	sanitized := sanitizeProtoJSONValue(data)

	buf, err := json.Marshal(sanitized)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func sanitizeProtoJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(val))
		for key, value := range val {
			newKey := protoFieldJSONName(key)
			res[newKey] = sanitizeProtoJSONValue(value)
		}
		return res
	case []any:
		for i := range val {
			val[i] = sanitizeProtoJSONValue(val[i])
		}
		return val
	default:
		return v
	}
}

func protoFieldJSONName(name string) string {
	if protoreflect.Name(name).IsValid() {
		return name
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(name))
	encoded = strings.ReplaceAll(strings.ReplaceAll(strings.ReplaceAll(encoded, "+", "_"), "/", "_"), "=", "")
	return "col_" + encoded
}

// UpdateTable implements interfaces.BigQuery.
func (x *Client) UpdateTable(ctx context.Context, md bigquery.TableMetadataToUpdate, eTag string) error {
	if _, err := x.bqClient.Dataset(x.dataset).Table(x.tableID.String()).Update(ctx, md, eTag); err != nil {
		return wrapErr(err, "failed to update table", goerr.V("dataset", x.dataset), goerr.V("table", x.tableID), goerr.V("meta", md))
	}

	return nil
}
