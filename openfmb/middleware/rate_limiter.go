package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit gates outgoing requests with a token bucket. Requests wait for a
// token rather than failing, honoring the request context while blocked.
func RateLimit(rps float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(req)
		})
	}
}
