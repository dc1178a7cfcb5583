package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"creperie-promo/internal/domain"
)

var idCounter int64

// nextID generates a unique ID for test fixtures
func nextID() string {
	id := atomic.AddInt64(&idCounter, 1)
	return fmt.Sprintf("test-id-%d", id)
}

// NewTestAccessSession creates a session fixture with sensible defaults
func NewTestAccessSession(opts ...func(*domain.AccessSession)) *domain.AccessSession {
	id := nextID()
	session := &domain.AccessSession{
		ID:         id,
		Email:      fmt.Sprintf("visitor-%s@example.com", id),
		Phone:      "0612345678",
		FirstName:  "Camille",
		Token:      "token-" + id,
		SecretCode: "CREPE25",
		WeekStart:  "2026-08-24",
		ExpiresAt:  time.Now().Add(7 * 24 * time.Hour),
		CreatedAt:  time.Now(),
	}

	for _, opt := range opts {
		opt(session)
	}
	return session
}

// WithSessionToken sets the access token on a session fixture
func WithSessionToken(token string) func(*domain.AccessSession) {
	return func(s *domain.AccessSession) {
		s.Token = token
	}
}

// WithSessionEmail sets the email on a session fixture
func WithSessionEmail(email string) func(*domain.AccessSession) {
	return func(s *domain.AccessSession) {
		s.Email = email
	}
}

// WithSessionExpired moves the session's expiry into the past
func WithSessionExpired() func(*domain.AccessSession) {
	return func(s *domain.AccessSession) {
		s.ExpiresAt = time.Now().Add(-time.Hour)
	}
}

// NewTestWeeklyCode creates a weekly code fixture with sensible defaults
func NewTestWeeklyCode(opts ...func(*domain.WeeklyCode)) *domain.WeeklyCode {
	code := &domain.WeeklyCode{
		ID:         nextID(),
		WeekStart:  "2026-08-24",
		SecretCode: "CREPE25",
		Active:     true,
		CreatedAt:  time.Now(),
	}

	for _, opt := range opts {
		opt(code)
	}
	return code
}

// WithCode sets the secret code on a weekly code fixture
func WithCode(secretCode string) func(*domain.WeeklyCode) {
	return func(c *domain.WeeklyCode) {
		c.SecretCode = secretCode
	}
}

// WithWeekStart sets the week on a weekly code fixture
func WithWeekStart(weekStart string) func(*domain.WeeklyCode) {
	return func(c *domain.WeeklyCode) {
		c.WeekStart = weekStart
	}
}

// NewTestMenuItem creates a menu item fixture with sensible defaults
func NewTestMenuItem(opts ...func(*domain.MenuItem)) *domain.MenuItem {
	id := nextID()
	item := &domain.MenuItem{
		ID:          id,
		Name:        "Crepe " + id,
		Description: "A test crepe",
		PriceCents:  850,
		Secret:      false,
		Position:    0,
	}

	for _, opt := range opts {
		opt(item)
	}
	return item
}

// WithSecretItem marks a menu item fixture as secret-menu only
func WithSecretItem() func(*domain.MenuItem) {
	return func(i *domain.MenuItem) {
		i.Secret = true
	}
}

// WithItemName sets the name on a menu item fixture
func WithItemName(name string) func(*domain.MenuItem) {
	return func(i *domain.MenuItem) {
		i.Name = name
	}
}
