package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("access session not found")
	ErrSessionExpired  = errors.New("access session expired")
	ErrTokenExists     = errors.New("access token already exists")
	ErrInvalidCode     = errors.New("invalid code")
	ErrInvalidInput    = errors.New("invalid input")
)

// AdminToken is the sentinel token value stored for admin-granted sessions.
// Admin sessions never touch the database; the sentinel only lives in the
// client's local store.
const (
	AdminToken = "admin"
	AdminCode  = "ADMIN"
)

// AccessSession is one grant of secret-menu access. Rows are append-only:
// every unlock mints a fresh token, existing rows are never updated.
type AccessSession struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	FirstName  string    `json:"first_name"`
	Token      string    `json:"access_token"`
	SecretCode string    `json:"secret_code"`
	WeekStart  string    `json:"week_start"` // YYYY-MM-DD, local Monday
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// AccessSessionRepository defines the interface for session data access
type AccessSessionRepository interface {
	Create(ctx context.Context, session *AccessSession) error
	GetByToken(ctx context.Context, token string) (*AccessSession, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}
