// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the creperie-promo application.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"creperie-promo/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
	ErrMockUnavailable    = errors.New("mock: backend unavailable")
)

// MockSessionRepository implements domain.AccessSessionRepository for testing
type MockSessionRepository struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	CreateFunc        func(ctx context.Context, session *domain.AccessSession) error
	GetByTokenFunc    func(ctx context.Context, token string) (*domain.AccessSession, error)
	DeleteFunc        func(ctx context.Context, token string) error
	DeleteExpiredFunc func(ctx context.Context) (int64, error)
	CountActiveFunc   func(ctx context.Context) (int64, error)

	// In-memory storage for simple tests
	Sessions map[string]*domain.AccessSession
}

// NewMockSessionRepository creates a new MockSessionRepository with initialized maps
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		Sessions: make(map[string]*domain.AccessSession),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.AccessSession) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Sessions == nil {
		m.Sessions = make(map[string]*domain.AccessSession)
	}
	if _, exists := m.Sessions[session.Token]; exists {
		return domain.ErrTokenExists
	}

	if session.ID == "" {
		session.ID = "session-" + session.Token
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().Add(7 * 24 * time.Hour)
	}
	m.Sessions[session.Token] = session
	return nil
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*domain.AccessSession, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.Sessions[token]
	if !ok || session.ExpiresAt.Before(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Sessions, token)
	return nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	now := time.Now()
	for token, session := range m.Sessions {
		if session.ExpiresAt.Before(now) {
			delete(m.Sessions, token)
			count++
		}
	}
	return count, nil
}

func (m *MockSessionRepository) CountActive(ctx context.Context) (int64, error) {
	if m.CountActiveFunc != nil {
		return m.CountActiveFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	now := time.Now()
	for _, session := range m.Sessions {
		if session.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

// MockWeeklyCodeRepository implements domain.WeeklyCodeRepository for testing
type MockWeeklyCodeRepository struct {
	mu sync.RWMutex

	// Function overrides
	GetActiveFunc func(ctx context.Context) (*domain.WeeklyCode, error)
	EnsureFunc    func(ctx context.Context, weekStart, secretCode string) error

	// In-memory storage keyed by week_start
	Codes map[string]*domain.WeeklyCode
}

// NewMockWeeklyCodeRepository creates a new MockWeeklyCodeRepository with initialized maps
func NewMockWeeklyCodeRepository() *MockWeeklyCodeRepository {
	return &MockWeeklyCodeRepository{
		Codes: make(map[string]*domain.WeeklyCode),
	}
}

func (m *MockWeeklyCodeRepository) GetActive(ctx context.Context) (*domain.WeeklyCode, error) {
	if m.GetActiveFunc != nil {
		return m.GetActiveFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var newest *domain.WeeklyCode
	for _, code := range m.Codes {
		if !code.Active {
			continue
		}
		if newest == nil || code.WeekStart > newest.WeekStart {
			newest = code
		}
	}
	if newest == nil {
		return nil, domain.ErrNoActiveCode
	}
	return newest, nil
}

func (m *MockWeeklyCodeRepository) Ensure(ctx context.Context, weekStart, secretCode string) error {
	if m.EnsureFunc != nil {
		return m.EnsureFunc(ctx, weekStart, secretCode)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Codes == nil {
		m.Codes = make(map[string]*domain.WeeklyCode)
	}
	if _, exists := m.Codes[weekStart]; !exists {
		m.Codes[weekStart] = &domain.WeeklyCode{
			ID:         "code-" + weekStart,
			WeekStart:  weekStart,
			SecretCode: secretCode,
			Active:     true,
			CreatedAt:  time.Now(),
		}
	}
	for ws, code := range m.Codes {
		if ws < weekStart {
			code.Active = false
		}
	}
	return nil
}

// MockMenuRepository implements domain.MenuItemRepository for testing
type MockMenuRepository struct {
	mu sync.RWMutex

	// Function overrides
	ListPublicFunc func(ctx context.Context) ([]*domain.MenuItem, error)
	ListSecretFunc func(ctx context.Context) ([]*domain.MenuItem, error)

	// In-memory storage
	Items []*domain.MenuItem
}

// NewMockMenuRepository creates a new MockMenuRepository
func NewMockMenuRepository(items ...*domain.MenuItem) *MockMenuRepository {
	return &MockMenuRepository{Items: items}
}

func (m *MockMenuRepository) ListPublic(ctx context.Context) ([]*domain.MenuItem, error) {
	if m.ListPublicFunc != nil {
		return m.ListPublicFunc(ctx)
	}
	return m.list(false), nil
}

func (m *MockMenuRepository) ListSecret(ctx context.Context) ([]*domain.MenuItem, error) {
	if m.ListSecretFunc != nil {
		return m.ListSecretFunc(ctx)
	}
	return m.list(true), nil
}

func (m *MockMenuRepository) list(secret bool) []*domain.MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*domain.MenuItem, 0)
	for _, item := range m.Items {
		if item.Secret == secret {
			result = append(result, item)
		}
	}
	return result
}

// MockAdminVerifier implements access.AdminVerifier for testing
type MockAdminVerifier struct {
	// Function override
	VerifyFunc func(ctx context.Context, password string) (bool, error)

	// Password accepted when no override is set
	Password string
}

func (m *MockAdminVerifier) Verify(ctx context.Context, password string) (bool, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, password)
	}
	return m.Password != "" && password == m.Password, nil
}

// GrantEventCall records one call to PublishAccessGranted
type GrantEventCall struct {
	Token  string
	Email  string
	Source string
}

// MockGrantPublisher implements service.GrantPublisher for testing
type MockGrantPublisher struct {
	mu sync.RWMutex

	// Function override
	PublishFunc func(ctx context.Context, session *domain.AccessSession, source string) error

	// Call tracking
	Calls []GrantEventCall
}

func (m *MockGrantPublisher) PublishAccessGranted(ctx context.Context, session *domain.AccessSession, source string) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, session, source)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, GrantEventCall{
		Token:  session.Token,
		Email:  session.Email,
		Source: source,
	})
	return nil
}

// GetCalls returns a copy of all recorded grant event calls
func (m *MockGrantPublisher) GetCalls() []GrantEventCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]GrantEventCall{}, m.Calls...)
}

// MockStore implements access.Store with per-operation failure injection.
type MockStore struct {
	mu sync.RWMutex

	// Errors returned by the corresponding operation when set
	GetErr    error
	SetErr    error
	RemoveErr error

	Data map[string]string
}

// NewMockStore creates a new MockStore with initialized maps
func NewMockStore() *MockStore {
	return &MockStore{Data: make(map[string]string)}
}

func (m *MockStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return "", m.GetErr
	}
	return m.Data[key], nil
}

func (m *MockStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Data[key] = value
	return nil
}

func (m *MockStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.Data, key)
	return nil
}
