package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// StatusError classifies a non-successful provider response. 429, 5xx and an
// exhausted quota are transient, any other status is persistent.
func StatusError(resp *http.Response, msg string, values ...goerr.Option) error {
	values = append(values,
		goerr.V("status", resp.StatusCode),
		goerr.V("url", resp.Request.URL.String()),
	)
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 1024)); err == nil && len(body) > 0 {
		values = append(values, goerr.V("body", string(body)))
	}

	if retryable(resp) {
		return goerr.Wrap(types.ErrTransientProvider, msg, values...)
	}
	return goerr.Wrap(types.ErrPersistentProvider, msg, values...)
}

// RequestError classifies a failure without response. Cancellation is kept as
// is, anything else is treated as a network failure and transient.
func RequestError(err error, msg string, values ...goerr.Option) error {
	if errors.Is(err, context.Canceled) {
		return goerr.Wrap(err, msg, values...)
	}
	return goerr.Wrap(types.ErrTransientProvider, msg, append(values, goerr.V("cause", err.Error()))...)
}
