package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"creperie-promo/internal/domain"
)

// Create registers a session with the server. The server assigns the ID,
// creation time and server-side expiry; those fields are copied back into
// session.
func (c *Client) Create(ctx context.Context, session *domain.AccessSession) error {
	body, err := encodeBody(session)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/access/sessions", body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	created := &domain.AccessSession{}
	status, err := c.doJSON(req, http.StatusCreated, created)
	if status == http.StatusConflict {
		return domain.ErrTokenExists
	}
	if err != nil {
		return err
	}

	*session = *created
	return nil
}

// GetByToken fetches the unexpired session for token. Unknown and expired
// tokens both map to domain.ErrSessionNotFound.
func (c *Client) GetByToken(ctx context.Context, token string) (*domain.AccessSession, error) {
	endpoint := c.baseURL + "/api/v1/access/sessions/" + url.PathEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	session := &domain.AccessSession{}
	status, err := c.doJSON(req, http.StatusOK, session)
	if status == http.StatusNotFound {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Delete revokes the session for token. Deleting an unknown token is not
// an error.
func (c *Client) Delete(ctx context.Context, token string) error {
	endpoint := c.baseURL + "/api/v1/access/sessions/" + url.PathEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	_, err = c.doJSON(req, http.StatusNoContent, nil)
	return err
}
