package httpclient

import "net/http"

// BearerAuth sets an Authorization header on every request that does not
// carry one yet.
type BearerAuth struct {
	Token string
	Base  http.RoundTripper
}

var _ http.RoundTripper = (*BearerAuth)(nil)

func (x *BearerAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	base := x.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if x.Token == "" || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+x.Token)
	return base.RoundTrip(r)
}
