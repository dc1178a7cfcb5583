package handler

import (
	"encoding/json"
	"net/http"

	"creperie-promo/internal/domain"
)

// MenuHandler serves the public and secret menus
type MenuHandler struct {
	menu domain.MenuItemRepository
}

// NewMenuHandler creates a new menu handler
func NewMenuHandler(menu domain.MenuItemRepository) *MenuHandler {
	return &MenuHandler{menu: menu}
}

// Menu returns the public menu
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ListPublic(r.Context())
	if err != nil {
		http.Error(w, `{"error":"Failed to load menu"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// SecretMenu returns the secret menu. Access control happens in the
// middleware; by the time we get here the caller holds a live session.
func (h *MenuHandler) SecretMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ListSecret(r.Context())
	if err != nil {
		http.Error(w, `{"error":"Failed to load menu"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}
