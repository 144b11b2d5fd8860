// Package clients implements the HTTP contracts with the external
// collaborator services: question generation and answer scoring,
// segment transcription, and realtime evaluation. The orchestrator
// never performs any of that work itself; it only decides when to call
// and what payload to send.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// serviceError is the collaborators' shared error envelope. The
// message is surfaced to the caller verbatim.
type serviceError struct {
	Error string `json:"error"`
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

func newHTTPClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) httpClient {
	return httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// postJSON sends a JSON payload and decodes the JSON response into
// out. Non-2xx responses are turned into the service's own error
// message when one is present.
func (c *httpClient) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	return c.decode(resp, path, out)
}

func (c *httpClient) decode(resp *http.Response, path string, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var svcErr serviceError
		if json.Unmarshal(data, &svcErr) == nil && svcErr.Error != "" {
			return fmt.Errorf("%s", svcErr.Error)
		}
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
