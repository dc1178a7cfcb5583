package apiclient

import (
	"context"
	"fmt"
	"net/http"
)

type adminStatsRequest struct {
	Action        string `json:"action"`
	AdminPassword string `json:"adminPassword"`
}

// Verify checks password against the back-office stats endpoint. A 2xx
// means the password is good, 401 and 403 mean it is not; anything else
// is a transport-level error and leaves the caller locked out.
func (c *Client) Verify(ctx context.Context, password string) (bool, error) {
	body, err := encodeBody(adminStatsRequest{Action: "stats", AdminPassword: password})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/admin/stats", body)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, err := c.doJSON(req, http.StatusOK, nil)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
