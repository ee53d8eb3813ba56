package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient calls the extraction service over HTTP. The document is sent
// base64-encoded in a JSON body; the service answers with the extracted
// fields or a password-required flag.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *HTTPClient) Extract(ctx context.Context, blob []byte, req Request) (Result, error) {
	body, err := json.Marshal(map[string]interface{}{
		"document": base64.StdEncoding.EncodeToString(blob),
		"month":    req.Month,
		"year":     req.Year,
		"password": req.Password,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode extraction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build extraction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("extraction service returned %d", resp.StatusCode)
	}

	var payload struct {
		Success          bool    `json:"success"`
		RequiresPassword bool    `json:"requires_password"`
		Fields           *Fields `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("decode extraction response: %w", err)
	}

	return Result{
		Success:          payload.Success,
		RequiresPassword: payload.RequiresPassword,
		Fields:           payload.Fields,
	}, nil
}
