package httpclient

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
	defaultMaxWait    = time.Minute
)

// Transport is a http.RoundTripper for provider APIs. Every attempt waits on
// the shared rate limiter first. 429, 5xx and exhausted quota responses are
// retried, honoring Retry-After and X-RateLimit-Reset when the wait fits in
// MaxWait.
type Transport struct {
	base       http.RoundTripper
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxWait    time.Duration
	now        func() time.Time

	retrier *retryablehttp.RoundTripper
}

var _ http.RoundTripper = (*Transport)(nil)

type Option func(*Transport)

func WithLimiter(limiter *rate.Limiter) Option {
	return func(x *Transport) {
		x.limiter = limiter
	}
}

func WithMaxRetries(n int) Option {
	return func(x *Transport) {
		x.maxRetries = n
	}
}

// WithBackoff sets the initial wait between retries of responses without a
// server provided wait. It doubles on every retry.
func WithBackoff(d time.Duration) Option {
	return func(x *Transport) {
		x.backoff = d
	}
}

// WithMaxWait caps a single wait. A server asking for longer is not retried.
func WithMaxWait(d time.Duration) Option {
	return func(x *Transport) {
		x.maxWait = d
	}
}

func WithNow(fn func() time.Time) Option {
	return func(x *Transport) {
		x.now = fn
	}
}

func New(base http.RoundTripper, options ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	x := &Transport{
		base:       base,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		maxWait:    defaultMaxWait,
		now:        time.Now,
	}
	for _, opt := range options {
		opt(x)
	}

	client := &retryablehttp.Client{
		HTTPClient:     &http.Client{Transport: &limited{base: x.base, limiter: x.limiter}},
		RetryWaitMin:   x.backoff,
		RetryWaitMax:   x.maxWait,
		RetryMax:       x.maxRetries,
		CheckRetry:     x.checkRetry,
		Backoff:        x.wait,
		ErrorHandler:   retryablehttp.PassthroughErrorHandler,
		RequestLogHook: logRetry,
	}
	x.retrier = &retryablehttp.RoundTripper{Client: client}
	return x
}

// NewClient returns a http.Client using a Transport over base.
func NewClient(base http.RoundTripper, options ...Option) *http.Client {
	return &http.Client{Transport: New(base, options...)}
}

func (x *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return x.retrier.RoundTrip(req)
}

var errLimiterWait = goerr.New("rate limiter wait failed")

// limited waits on the rate limiter before each attempt, retries included.
type limited struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (x *limited) RoundTrip(req *http.Request) (*http.Response, error) {
	if x.limiter != nil {
		if err := x.limiter.Wait(req.Context()); err != nil {
			return nil, goerr.Wrap(errLimiterWait, "rate limiter refused request",
				goerr.V("url", req.URL.String()),
				goerr.V("cause", err.Error()),
			)
		}
	}
	return x.base.RoundTrip(req)
}

func logRetry(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt == 0 {
		return
	}
	logging.From(req.Context()).Warn("retrying provider request",
		"url", req.URL.String(),
		"attempt", attempt,
	)
}

// checkRetry retries network failures and retryable statuses. A response
// whose server provided wait exceeds maxWait is returned as is.
func (x *Transport) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if errors.Is(err, errLimiterWait) {
		return false, err
	}
	if err != nil {
		return true, nil
	}
	if !retryable(resp) {
		return false, nil
	}
	if d, ok := x.serverWait(resp); ok && d > x.maxWait {
		return false, nil
	}
	return true, nil
}

// wait returns the wait before retry number attempt (zero based).
func (x *Transport) wait(initial, limit time.Duration, attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if d, ok := x.serverWait(resp); ok {
			return d
		}
	}
	d := initial << attempt
	if d > limit || d <= 0 {
		return limit
	}
	return d
}

func retryable(resp *http.Response) bool {
	return resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= 500 ||
		IsRateLimited(resp)
}

// IsRateLimited reports a GitHub style exhausted quota, which is answered with
// 403 and X-RateLimit-Remaining: 0.
func IsRateLimited(resp *http.Response) bool {
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// serverWait reads the wait requested by Retry-After or X-RateLimit-Reset.
func (x *Transport) serverWait(resp *http.Response) (time.Duration, bool) {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			return nonNegative(time.Duration(sec) * time.Second), true
		}
		if t, err := http.ParseTime(v); err == nil {
			return nonNegative(t.Sub(x.now())), true
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			return nonNegative(time.Unix(epoch, 0).Sub(x.now())), true
		}
	}
	return 0, false
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
