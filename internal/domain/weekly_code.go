package domain

import (
	"context"
	"errors"
	"time"
)

var ErrNoActiveCode = errors.New("no active weekly code")

// WeeklyCode is the single unlock code for one calendar week (Monday start).
type WeeklyCode struct {
	ID         string    `json:"id"`
	WeekStart  string    `json:"week_start"` // YYYY-MM-DD, local Monday
	SecretCode string    `json:"secret_code"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// WeeklyCodeRepository defines the interface for weekly code data access
type WeeklyCodeRepository interface {
	// GetActive returns the newest active code by week_start.
	GetActive(ctx context.Context) (*WeeklyCode, error)
	// Ensure inserts a code for the given week if none exists yet and
	// deactivates codes from earlier weeks. Idempotent.
	Ensure(ctx context.Context, weekStart, secretCode string) error
}
