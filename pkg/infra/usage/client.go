package usage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/infra/httpclient"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/devlens/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

const defaultPageSize = 100

// Client pages through an AI-tool usage export. The endpoint answers
// GET ?cursor=&page_size= with {"records": [...], "next_cursor": "", "has_more": bool}.
type Client struct {
	httpClient *http.Client
	endpoint   string
	pageSize   int
}

var _ interfaces.BatchService[*model.AIUsageRecord] = (*Client)(nil)

type Option func(*Client)

func WithPageSize(n int) Option {
	return func(x *Client) {
		x.pageSize = n
	}
}

func New(httpClient *http.Client, endpoint string, options ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, goerr.Wrap(types.ErrConfiguration, "invalid usage endpoint", goerr.V("endpoint", endpoint))
	}

	x := &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		pageSize:   defaultPageSize,
	}
	for _, opt := range options {
		opt(x)
	}
	if x.pageSize <= 0 {
		return nil, goerr.Wrap(types.ErrConfiguration, "page size must be positive", goerr.V("pageSize", x.pageSize))
	}
	return x, nil
}

type pageResponse struct {
	Records    []*model.AIUsageRecord `json:"records"`
	NextCursor string                 `json:"next_cursor"`
	HasMore    bool                   `json:"has_more"`
}

func (x *Client) GetNextPage(ctx context.Context, cursor model.Cursor) (*model.PagedBatch[*model.AIUsageRecord], error) {
	u, _ := url.Parse(x.endpoint)
	q := u.Query()
	q.Set("page_size", strconv.Itoa(x.pageSize))
	if cursor != "" {
		q.Set("cursor", string(cursor))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "failed to build usage request", goerr.V("url", u.String()))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, httpclient.RequestError(err, "usage request failed", goerr.V("cursor", cursor))
	}
	defer safe.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.StatusError(resp, "usage endpoint responded with error", goerr.V("cursor", cursor))
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "malformed usage page",
			goerr.V("cursor", cursor),
			goerr.V("cause", err.Error()),
		)
	}
	if page.HasMore && page.NextCursor == "" {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "usage page has more records but no next cursor", goerr.V("cursor", cursor))
	}

	logging.From(ctx).Debug("fetched usage page",
		"cursor", cursor,
		"records", len(page.Records),
		"has_more", page.HasMore,
	)

	batch := &model.PagedBatch[*model.AIUsageRecord]{
		Items:     page.Records,
		LevelName: "ai_usage",
		Cursor:    cursor,
		IsLast:    !page.HasMore,
	}
	if page.HasMore {
		batch.NextCursor = model.Cursor(page.NextCursor)
	}
	return batch, nil
}
