// Package tfidf is the HTTP client for the TF-IDF search backend.
package tfidf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	chatPath   = "/chat"
	healthPath = "/health"
)

// Client talks to a single search backend. It never retries and sets no
// timeout of its own; the transport's defaults apply.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a client for baseURL. Trailing slashes are dropped.
// A nil httpClient means a zero http.Client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// ---- Helpers ----

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnreachableError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			b = nil
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}

// decodeObject reads a JSON object keeping numbers as json.Number so that
// integer chunk ids survive unchanged.
func decodeObject(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &MalformedResponseError{Err: fmt.Errorf("expected a JSON object, got %T", v)}
	}
	return obj, nil
}

// ---- Endpoints ----

// Send posts query to /chat and returns the normalized ranking.
func (c *Client) Send(ctx context.Context, query string, resultLimit int) (*Response, error) {
	payload, err := json.Marshal(chatRequest{Query: query, TopK: resultLimit})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, chatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	obj, err := decodeObject(resp.Body)
	if err != nil {
		return nil, err
	}
	return normalizeResponse(query, obj), nil
}

// Health fetches the backend's /health status.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.do(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	obj, err := decodeObject(resp.Body)
	if err != nil {
		return nil, err
	}
	h := &Health{}
	h.Status, _ = stringField(obj["status"])
	if n, ok := numberField(obj["chunks"]); ok {
		h.Chunks = int(n)
	}
	return h, nil
}
