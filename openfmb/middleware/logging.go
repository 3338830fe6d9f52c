package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logging logs one entry per request, tagged with a generated request ID so
// entries from concurrent callers can be told apart.
func Logging(logger *logrus.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			requestID := uuid.NewString()

			resp, err := next.RoundTrip(req)

			fields := logrus.Fields{
				"request_id": requestID,
				"method":     req.Method,
				"url":        req.URL.String(),
				"duration":   time.Since(start).String(),
			}
			if err != nil {
				logger.WithFields(fields).WithError(err).Error("Request failed")
				return nil, err
			}

			fields["status"] = resp.StatusCode
			logger.WithFields(fields).Info("Request completed")
			return resp, nil
		})
	}
}
