package openfmb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout is the per-request timeout applied unless WithTimeout is
// used. Kept short so control loops never hang on a dead service.
const DefaultTimeout = 5 * time.Second

// Client talks to an OpenFMB telemetry API over HTTP. It is safe for
// concurrent use; connection pooling is handled by the underlying
// http.Client.
type Client struct {
	baseURL     string
	timeout     time.Duration
	httpClient  *http.Client
	logger      *logrus.Logger
	middlewares []func(http.RoundTripper) http.RoundTripper
}

// NewClient returns a client for the API rooted at baseURL
// (e.g. "http://localhost:8000"). A trailing slash is stripped.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		logger:  logrus.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	} else {
		// Copy so installing middleware never mutates a caller's client.
		hc := *c.httpClient
		c.httpClient = &hc
	}

	if len(c.middlewares) > 0 {
		transport := c.httpClient.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		for i := len(c.middlewares) - 1; i >= 0; i-- {
			transport = c.middlewares[i](transport)
		}
		c.httpClient.Transport = transport
	}

	return c
}

// CheckHealth reports whether the API and its database are responsive. Any
// failure is folded into a false return; this is the one operation that
// never returns an error.
func (c *Client) CheckHealth(ctx context.Context) bool {
	var status map[string]any
	if err := c.get(ctx, "/test-db", nil, &status); err != nil {
		return false
	}
	_, ok := status["database_version"]
	return ok
}

// LastState retrieves the most recent measurement for a device. An unknown
// device surfaces as an *APIError carrying the service's HTTP status.
func (c *Client) LastState(ctx context.Context, deviceID uuid.UUID) (*Measurement, error) {
	var envelope struct {
		LatestMeasurement *Measurement `json:"latest_measurement"`
	}

	endpoint := fmt.Sprintf("/devices/%s/last-state", deviceID)
	if err := c.get(ctx, endpoint, nil, &envelope); err != nil {
		return nil, err
	}

	if envelope.LatestMeasurement == nil {
		return &Measurement{}, nil
	}
	return envelope.LatestMeasurement, nil
}

// HistoricalData retrieves up to q.Limit measurements for a device, ordered
// by timestamp as returned by the service.
func (c *Client) HistoricalData(ctx context.Context, deviceID uuid.UUID, q HistoricalQuery) ([]Measurement, error) {
	q, err := q.validate()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	if !q.Start.IsZero() {
		params.Set("start", q.Start.Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		params.Set("end", q.End.Format(time.RFC3339))
	}

	var envelope struct {
		Measurements []Measurement `json:"measurements"`
	}

	endpoint := fmt.Sprintf("/devices/%s/historical", deviceID)
	if err := c.get(ctx, endpoint, params, &envelope); err != nil {
		return nil, err
	}
	return envelope.Measurements, nil
}

// Devices lists the device UUIDs known to the service.
func (c *Client) Devices(ctx context.Context) (*DeviceList, error) {
	var list DeviceList
	if err := c.get(ctx, "/devices", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// get performs one GET request and decodes the JSON response into dest,
// mapping every failure mode onto *APIError.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dest any) error {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &APIError{
			Message: "could not build request",
			Payload: map[string]any{"url": u},
			Err:     err,
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.WithField("url", u).Error("Timeout connecting to API")
			return &APIError{
				Message:    fmt.Sprintf("request timed out after %s", c.timeout),
				StatusCode: http.StatusRequestTimeout,
				Payload:    map[string]any{"url": u, "timeout": c.timeout.Seconds()},
				Err:        err,
			}
		}
		c.logger.WithField("url", u).Error("Connection failed")
		return &APIError{
			Message: "could not connect to the OpenFMB API",
			Payload: map[string]any{"url": u},
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			Message: "could not read response body",
			Payload: map[string]any{"url": u},
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			payload = map[string]any{"detail": strings.TrimSpace(string(body))}
		}
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"url":    u,
		}).Error("API returned error status")
		return &APIError{
			Message:    fmt.Sprintf("API error: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Payload:    payload,
		}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		c.logger.WithField("url", u).Error("Invalid JSON received")
		return &APIError{
			Message: "API returned invalid JSON",
			Payload: map[string]any{"url": u},
			Err:     err,
		}
	}

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
