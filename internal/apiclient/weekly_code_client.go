package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"creperie-promo/internal/domain"
)

// GetActive fetches this week's active code. A 404 means no code is
// active and maps to domain.ErrNoActiveCode.
func (c *Client) GetActive(ctx context.Context) (*domain.WeeklyCode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/weekly-code", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	code := &domain.WeeklyCode{}
	status, err := c.doJSON(req, http.StatusOK, code)
	if status == http.StatusNotFound {
		return nil, domain.ErrNoActiveCode
	}
	if err != nil {
		return nil, err
	}
	return code, nil
}
