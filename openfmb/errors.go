package openfmb

import "fmt"

// APIError is the single error type surfaced by the client. It covers
// connection failures, timeouts, non-2xx responses and undecodable payloads.
type APIError struct {
	Message    string
	StatusCode int            // 0 when no HTTP status applies
	Payload    map[string]any // decoded error body, or request context fields
	Err        error          // underlying transport error, if any
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status_code=%d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}
