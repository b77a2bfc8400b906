package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/telhawk-systems/homeids/internal/models"
)

// APIClient reads the audit log from a running homeids server.
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates a client for the server at baseURL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// LogQuery selects which records Logs returns.
type LogQuery struct {
	Type    string
	Device  string
	Limit   int
	Attacks bool
}

// Logs fetches records from /api/logs or /api/logs/attack.
func (c *APIClient) Logs(ctx context.Context, q LogQuery) ([]models.LogEvent, error) {
	path := "/api/logs"
	if q.Attacks {
		path = "/api/logs/attack"
	}

	params := url.Values{}
	if q.Type != "" && !q.Attacks {
		params.Set("type", q.Type)
	}
	if q.Device != "" && !q.Attacks {
		params.Set("device", q.Device)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var result struct {
		Logs    []models.LogEvent `json:"logs"`
		Attacks []models.LogEvent `json:"attacks"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if q.Attacks {
		return result.Attacks, nil
	}
	return result.Logs, nil
}
