package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"creperie-promo/internal/domain"
)

type MenuItemRepository struct {
	db       *sql.DB
	listStmt *sql.Stmt
}

// NewMenuItemRepository creates a new MenuItemRepository with prepared
// statements. Returns an error if statement preparation fails.
func NewMenuItemRepository(db *sql.DB) (*MenuItemRepository, error) {
	repo := &MenuItemRepository{db: db}

	var err error
	repo.listStmt, err = db.Prepare(`
		SELECT id, name, description, price_cents, secret, position
		FROM menu_items
		WHERE secret = $1
		ORDER BY position, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return repo, nil
}

func (r *MenuItemRepository) ListPublic(ctx context.Context) ([]*domain.MenuItem, error) {
	return r.list(ctx, false)
}

func (r *MenuItemRepository) ListSecret(ctx context.Context) ([]*domain.MenuItem, error) {
	return r.list(ctx, true)
}

func (r *MenuItemRepository) list(ctx context.Context, secret bool) ([]*domain.MenuItem, error) {
	rows, err := r.listStmt.QueryContext(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.MenuItem, 0)
	for rows.Next() {
		item := &domain.MenuItem{}
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Description,
			&item.PriceCents,
			&item.Secret,
			&item.Position,
		); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menu items: %w", err)
	}
	return items, nil
}
