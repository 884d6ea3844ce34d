package datex

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Client fetches the compressed feed documents. A failed fetch aborts the
// caller's cycle before any parsing happens.
type Client struct {
	HTTP *http.Client
}

// Fetch issues a GET and returns a reader over the decompressed document.
// The returned ReadCloser closes both the gzip stream and the response body.
func (c *Client) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: gzip: %w", url, err)
	}
	return &feedBody{gz: gz, body: resp.Body}, nil
}

type feedBody struct {
	gz   *gzip.Reader
	body io.ReadCloser
}

func (f *feedBody) Read(p []byte) (int, error) {
	return f.gz.Read(p)
}

func (f *feedBody) Close() error {
	gzErr := f.gz.Close()
	if err := f.body.Close(); err != nil {
		return err
	}
	return gzErr
}
