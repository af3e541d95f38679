package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the Discord REST API.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord %s %s failed with status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type HTTPClient struct {
	inner   *http.Client
	baseURL string
	headers map[string]string
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	headers := map[string]string{
		"User-Agent": "DiscordBot (archipelalog, 1.0)",
	}
	if token != "" {
		headers["Authorization"] = "Bot " + token
	}
	return &HTTPClient{
		inner:   &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
	}
}

// DoJSON sends body as JSON (when non-nil) and decodes a 2xx answer into out
// (when non-nil).
func (c *HTTPClient) DoJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.inner.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	bodyRaw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(bodyRaw))}
	}
	if out == nil || len(bodyRaw) == 0 {
		return nil
	}
	return json.Unmarshal(bodyRaw, out)
}
