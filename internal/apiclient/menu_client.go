package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"creperie-promo/internal/domain"
)

// ListPublic fetches the public menu.
func (c *Client) ListPublic(ctx context.Context) ([]*domain.MenuItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/menu", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var items []*domain.MenuItem
	if _, err := c.doJSON(req, http.StatusOK, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListSecret fetches the secret menu using token for authorization. Dead
// tokens come back as domain.ErrSessionNotFound so callers can fall back
// to a fresh unlock.
func (c *Client) ListSecret(ctx context.Context, token string) ([]*domain.MenuItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/menu/secret", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var items []*domain.MenuItem
	status, err := c.doJSON(req, http.StatusOK, &items)
	if status == http.StatusUnauthorized {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}
