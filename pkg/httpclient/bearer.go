package httpclient

import "net/http"

// TokenSource supplies the current bearer credential. It is consulted on
// every request so that login, logout, and token refresh are always observed.
type TokenSource interface {
	// Token returns the raw credential and whether one is currently held.
	Token() (string, bool)
}

// Bearer returns a middleware that attaches an Authorization bearer header
// when the source currently holds a credential. Requests go out unauthenticated
// otherwise; rejecting them early is the caller's job.
func Bearer(source TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if source != nil {
				if token, ok := source.Token(); ok {
					req = req.Clone(req.Context())
					req.Header.Set("Authorization", "Bearer "+token)
				}
			}
			return next.RoundTrip(req)
		})
	}
}
