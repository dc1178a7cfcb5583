// Package apiclient is the HTTP client for the promo-server API, used by
// the kiosk binary to back its access controller with the central server.
package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrUnexpectedStatus = errors.New("unexpected status from promo API")

// Client talks to the promo-server REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new promo API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// doJSON executes req and decodes a JSON response body into out when the
// status matches wantStatus. Other statuses map to ErrUnexpectedStatus.
func (c *Client) doJSON(req *http.Request, wantStatus int, out interface{}) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach promo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode promo API response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func encodeBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return bytes.NewReader(data), nil
}
