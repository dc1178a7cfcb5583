package domain

import (
	"context"
	"errors"
)

var ErrMenuItemNotFound = errors.New("menu item not found")

// MenuItem is a dish on the public or secret menu.
type MenuItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int    `json:"price_cents"`
	Secret      bool   `json:"secret"`
	Position    int    `json:"position"`
}

// MenuItemRepository defines the interface for menu data access
type MenuItemRepository interface {
	ListPublic(ctx context.Context) ([]*MenuItem, error)
	ListSecret(ctx context.Context) ([]*MenuItem, error)
}
