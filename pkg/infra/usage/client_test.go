package usage_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/infra/httpclient"
	"github.com/m-mizutani/devlens/pkg/infra/usage"
	"github.com/m-mizutani/gt"
)

func TestGetNextPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.V(t, r.Header.Get("Authorization")).Equal("Bearer usage-token")
		gt.V(t, r.URL.Query().Get("page_size")).Equal("2")
		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprint(w, `{"records": [
				{"tool": "copilot", "organization": "acme", "date": "2024-05-01", "total_suggestions": 10, "accepted_suggestions": 4},
				{"tool": "copilot", "organization": "acme", "date": "2024-05-02", "users": [{"login": "alice"}]}
			], "next_cursor": "c2", "has_more": true}`)
		case "c2":
			fmt.Fprint(w, `{"records": [{"tool": "copilot", "organization": "acme", "date": "2024-05-03"}], "has_more": false}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)

	httpClient := &http.Client{Transport: &httpclient.BearerAuth{Token: "usage-token"}}
	client := gt.R1(usage.New(httpClient, srv.URL+"/v1/usage", usage.WithPageSize(2))).NoError(t)
	ctx := context.Background()

	first := gt.R1(client.GetNextPage(ctx, "")).NoError(t)
	gt.A(t, first.Items).Length(2)
	gt.V(t, first.Items[0].TotalSuggestions).Equal(10)
	gt.A(t, first.Items[1].Users).Length(1)
	gt.V(t, first.NextCursor).Equal(model.Cursor("c2"))
	gt.False(t, first.IsLast)

	second := gt.R1(client.GetNextPage(ctx, first.NextCursor)).NoError(t)
	gt.A(t, second.Items).Length(1)
	gt.V(t, second.Cursor).Equal(model.Cursor("c2"))
	gt.True(t, second.IsLast)
	gt.V(t, second.NextCursor).Equal(model.Cursor(""))

	_, err := client.GetNextPage(ctx, "bogus")
	gt.True(t, errors.Is(err, types.ErrPersistentProvider))
}

func TestGetNextPageErrors(t *testing.T) {
	testCases := map[string]struct {
		handler http.HandlerFunc
		want    error
	}{
		"server error": {
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			want:    types.ErrTransientProvider,
		},
		"malformed body": {
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"records": [`) },
			want:    types.ErrPersistentProvider,
		},
		"more without cursor": {
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"records": [], "has_more": true}`) },
			want:    types.ErrPersistentProvider,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			t.Cleanup(srv.Close)

			client := gt.R1(usage.New(srv.Client(), srv.URL)).NoError(t)
			_, err := client.GetNextPage(context.Background(), "")
			gt.True(t, errors.Is(err, tc.want))
		})
	}
}

func TestNew(t *testing.T) {
	_, err := usage.New(http.DefaultClient, "not a url")
	gt.True(t, errors.Is(err, types.ErrConfiguration))

	_, err = usage.New(http.DefaultClient, "https://example.com", usage.WithPageSize(0))
	gt.True(t, errors.Is(err, types.ErrConfiguration))
}
