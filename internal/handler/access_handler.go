package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creperie-promo/internal/domain"
	"creperie-promo/internal/observability"
	"creperie-promo/internal/service"
)

// AccessHandler handles code verification, quiz grants and session
// management endpoints.
type AccessHandler struct {
	accessService *service.AccessService
	stats         *StatsBroadcaster // nil disables dashboard pushes
}

// NewAccessHandler creates a new access handler
func NewAccessHandler(accessService *service.AccessService, stats *StatsBroadcaster) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
		stats:         stats,
	}
}

// VerifyCodeRequest represents a weekly code verification request
type VerifyCodeRequest struct {
	Code string `json:"code"`
}

// QuizGrantRequest represents a quiz consolation grant request
type QuizGrantRequest struct {
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	FirstName  string `json:"first_name"`
	SecretCode string `json:"secret_code"`
}

// VerifyCode checks a submitted code against this week's secret code
func (h *AccessHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		http.Error(w, `{"error":"Code is required"}`, http.StatusBadRequest)
		return
	}

	session, err := h.accessService.VerifyCode(r.Context(), req.Code)
	if errors.Is(err, domain.ErrInvalidCode) {
		observability.CodeVerificationsTotal.WithLabelValues("rejected").Inc()
		http.Error(w, `{"error":"Invalid code"}`, http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"Verification failed"}`, http.StatusInternalServerError)
		return
	}

	observability.CodeVerificationsTotal.WithLabelValues("granted").Inc()
	observability.AccessGrantsTotal.WithLabelValues("code").Inc()
	h.stats.Push(r.Context(), "code")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// QuizGrant issues consolation access to a quiz participant
func (h *AccessHandler) QuizGrant(w http.ResponseWriter, r *http.Request) {
	var req QuizGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	session, err := h.accessService.GrantFromQuiz(r.Context(), req.Email, req.Phone, req.FirstName, req.SecretCode)
	if errors.Is(err, domain.ErrInvalidInput) {
		http.Error(w, `{"error":"Invalid participant details"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"Grant failed"}`, http.StatusInternalServerError)
		return
	}

	observability.AccessGrantsTotal.WithLabelValues("quiz").Inc()
	h.stats.Push(r.Context(), "quiz")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

// CreateSession registers a session minted by a remote client
func (h *AccessHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var session domain.AccessSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	err := h.accessService.Register(r.Context(), &session)
	if errors.Is(err, domain.ErrInvalidInput) {
		http.Error(w, `{"error":"Invalid session"}`, http.StatusBadRequest)
		return
	}
	if errors.Is(err, domain.ErrTokenExists) {
		http.Error(w, `{"error":"Token already registered"}`, http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"Failed to store session"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

// GetSession returns the unexpired session for a token
func (h *AccessHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	session, err := h.accessService.Lookup(r.Context(), token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, `{"error":"Session not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"Lookup failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// DeleteSession revokes a session. Revoking an unknown token succeeds.
func (h *AccessHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.accessService.Revoke(r.Context(), token); err != nil {
		http.Error(w, `{"error":"Failed to revoke session"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// WeeklyCode returns this week's active code
func (h *AccessHandler) WeeklyCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.accessService.ActiveCode(r.Context())
	if errors.Is(err, domain.ErrNoActiveCode) {
		http.Error(w, `{"error":"No active code"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"Lookup failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(code)
}
