package httpclient

import (
	"net/http"
	"time"
)

func (x *Transport) WaitForTest(attempt int, resp *http.Response) time.Duration {
	return x.wait(x.backoff, x.maxWait, attempt, resp)
}
