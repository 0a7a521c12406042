// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pdiddy/textextract/internal/httputil"
)

const (
	textEndpoint = "/tika"
	metaEndpoint = "/meta"
)

// HTTPClient uses the Tika server REST API: PUT /tika for plain text and
// PUT /meta for JSON metadata.
type HTTPClient struct {
	textURL    string
	metaURL    string
	client  *http.Client
	retries int
}

// NewHTTPClient creates a client for the given base URLs. A nil client uses
// http.DefaultClient. Requests are sent once; see SetRetries.
func NewHTTPClient(textBaseURL, metaBaseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		textURL: textBaseURL + textEndpoint,
		metaURL: metaBaseURL + metaEndpoint,
		client:  client,
	}
}

// SetRetries makes busy answers (429, 503) retry up to n times with
// exponential backoff. Zero sends every request once.
func (c *HTTPClient) SetRetries(n int) {
	c.retries = max(n, 0)
}

func (c *HTTPClient) ExtractText(ctx context.Context, path string) (string, error) {
	return extractString(ctx, path, func(ctx context.Context, path string, w io.Writer) error {
		return c.put(ctx, c.textURL, "text/plain", path, w)
	})
}

func (c *HTTPClient) ExtractMetadata(ctx context.Context, path string, w io.Writer) error {
	return c.put(ctx, c.metaURL, "application/json", path, w)
}

func (c *HTTPClient) put(ctx context.Context, url, accept, path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", accept)

	var resp *http.Response
	if c.retries > 0 {
		resp, err = httputil.DoWithRetry(ctx, c.client, req, c.retries)
	} else {
		resp, err = c.client.Do(req)
	}
	if err != nil {
		return fmt.Errorf("PUT %s for %s: %w", url, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("PUT %s for %s: HTTP %d: %s", url, path, resp.StatusCode, bytes.TrimSpace(body))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading response for %s: %w", path, err)
	}
	return nil
}
