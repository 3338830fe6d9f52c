package middleware

// This in-memory cache is used for simplicity. golang-lru automatically
// evicts the least recently accessed entries, bounding memory usage.

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	lru "github.com/hashicorp/golang-lru"
)

type cachedResponse struct {
	status int
	header http.Header
	body   []byte
}

func (c *cachedResponse) response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    c.status,
		Header:        c.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(c.body)),
		ContentLength: int64(len(c.body)),
		Request:       req,
	}
}

// Cache memoizes successful GET responses in an LRU of the given size.
// Errors and non-2xx responses pass through uncached.
func Cache(size int) (Middleware, error) {
	store, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	mw := func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Method != http.MethodGet {
				return next.RoundTrip(req)
			}

			key := cacheKey(req)
			if entry, ok := store.Get(key); ok {
				return entry.(*cachedResponse).response(req), nil
			}

			resp, err := next.RoundTrip(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return resp, nil
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, err
			}

			entry := &cachedResponse{
				status: resp.StatusCode,
				header: resp.Header.Clone(),
				body:   body,
			}
			store.Add(key, entry)
			return entry.response(req), nil
		})
	}
	return mw, nil
}

func cacheKey(req *http.Request) string {
	return fmt.Sprintf("%s:%s", req.Method, req.URL.String())
}
