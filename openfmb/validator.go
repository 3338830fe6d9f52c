package openfmb

import "fmt"

const (
	// DefaultLimit is used when a HistoricalQuery does not set Limit.
	DefaultLimit = 100

	// MaxLimit is the largest record count the API accepts per request.
	MaxLimit = 5000
)

// validate normalizes and checks query bounds so that malformed queries fail
// without a network round trip.
func (q HistoricalQuery) validate() (HistoricalQuery, error) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return q, fmt.Errorf("invalid limit: %d", q.Limit)
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.Start.After(q.End) {
		return q, fmt.Errorf("start time must be before end time")
	}
	return q, nil
}
