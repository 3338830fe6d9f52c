// Package openfmb provides a synchronous HTTP client for the OpenFMB
// microgrid telemetry API.
//
// # Architecture
//
// The client maps one method to one REST endpoint:
//   - CheckHealth: service and database liveness probe
//   - LastState: latest measurement for a single device
//   - HistoricalData: bounded time-series query for a single device
//   - Devices: enumeration of known device UUIDs
//
// Every call blocks until the response arrives, the configured timeout
// expires, or the context is canceled. Connections are pooled by the
// underlying http.Client; the library keeps no other state between calls.
//
// All failures surface as *APIError, with CheckHealth as the single
// exception: it folds any failure into a false return so control loops can
// poll it without error handling.
//
// Example Usage
//
//	client := openfmb.NewClient("http://localhost:8000",
//	    openfmb.WithTimeout(2*time.Second),
//	)
//	state, err := client.LastState(ctx, deviceID)
//	if err != nil {
//	    var apiErr *openfmb.APIError
//	    if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
//	        // unknown device
//	    }
//	}
//	fmt.Println(state.Data["voltage"])
//
// Optional transport middleware (request logging, prometheus metrics,
// client-side rate limiting, response caching) lives in the middleware
// subpackage and is installed with WithTransport.
package openfmb
