package handler

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"creperie-promo/internal/service"
)

// AdminHandler handles back office endpoints
type AdminHandler struct {
	accessService *service.AccessService
	passwordHash  []byte
}

// NewAdminHandler creates a new admin handler. passwordHash is the
// bcrypt hash of the admin password.
func NewAdminHandler(accessService *service.AccessService, passwordHash string) *AdminHandler {
	return &AdminHandler{
		accessService: accessService,
		passwordHash:  []byte(passwordHash),
	}
}

// AdminStatsRequest represents an admin stats request
type AdminStatsRequest struct {
	Action        string `json:"action"`
	AdminPassword string `json:"adminPassword"`
}

// Stats authenticates the admin password and returns access stats. The
// endpoint doubles as the password check for the admin bypass flow, so
// wrong passwords answer 401 and nothing else leaks.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var req AdminStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Action != "stats" {
		http.Error(w, `{"error":"Unknown action"}`, http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.AdminPassword)); err != nil {
		http.Error(w, `{"error":"Invalid password"}`, http.StatusUnauthorized)
		return
	}

	stats, err := h.accessService.Stats(r.Context())
	if err != nil {
		http.Error(w, `{"error":"Failed to gather stats"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
