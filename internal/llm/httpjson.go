package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes caps how much of a backend response is read
const maxResponseBytes = 8 << 20

// postJSON marshals body, POSTs it to url and decodes a 200 response into out.
// For any other status, describe turns the raw body into the error detail;
// a nil describe or an empty result falls back to the body text.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any, describe func([]byte) string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		detail := ""
		if describe != nil {
			detail = describe(respBody)
		}
		if detail == "" {
			detail = string(respBody)
		}
		return fmt.Errorf("API error (%d): %s", httpResp.StatusCode, detail)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
