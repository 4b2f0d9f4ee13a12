package httpds

import (
	"context"
	"fmt"
	"net/http"
)

// FetchFirstBytes returns at most n bytes of the body at url. The request
// carries a Range header; servers that ignore it are truncated client-side.
func (c *Client) FetchFirstBytes(ctx context.Context, url string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("httpds: byte count must be positive, got %d", n)
	}
	resp, err := c.Do(ctx, http.MethodGet, url, nil, http.Header{"Range": {fmt.Sprintf("bytes=0-%d", n-1)}})
	if err != nil {
		return nil, err
	}
	body := resp.Body
	if len(body) > n {
		body = body[:n]
	}
	return body, nil
}
