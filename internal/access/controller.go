package access

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"creperie-promo/internal/domain"
)

// SessionDuration is the local sliding-expiry window. The server keeps its
// own, longer TTL on the session row; this window only bounds how long a
// client may sit idle before it has to unlock again.
const SessionDuration = 30 * time.Minute

// Placeholder identity written for code-based unlocks, where the visitor
// never gave us contact details.
const (
	anonymousEmail = "secret-menu@anonymous.local"
	anonymousPhone = "0000000000"
	anonymousName  = "Visiteur"
)

// SessionStore is the slice of the session persistence the controller needs.
type SessionStore interface {
	Create(ctx context.Context, session *domain.AccessSession) error
	GetByToken(ctx context.Context, token string) (*domain.AccessSession, error)
}

// CodeSource provides the currently active weekly code.
type CodeSource interface {
	GetActive(ctx context.Context) (*domain.WeeklyCode, error)
}

// AdminVerifier checks an admin password against the back office.
type AdminVerifier interface {
	Verify(ctx context.Context, password string) (bool, error)
}

// State is a point-in-time snapshot of the controller.
type State struct {
	HasAccess     bool
	IsLoading     bool
	AccessToken   string
	SecretCode    string
	IsAdminAccess bool
}

// Controller is the single authority over secret-menu access. It owns the
// local session cache, validates it against the backing store, and moves
// between locked and unlocked through three unlock paths: weekly code,
// admin password, and quiz consolation grant.
//
// Every failure collapses to "locked" here; callers never see an error and
// cannot tell a wrong code from a network problem.
type Controller struct {
	sessions SessionStore
	codes    CodeSource
	admin    AdminVerifier
	store    Store // nil when no local storage exists in this environment
	now      func() time.Time
	newToken func() string

	mu    sync.Mutex
	gen   uint64
	state State
}

// Option customizes a Controller. Used by tests to pin the clock and the
// token source.
type Option func(*Controller)

// WithClock replaces the controller's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithTokenSource replaces the access-token generator.
func WithTokenSource(fn func() string) Option {
	return func(c *Controller) { c.newToken = fn }
}

// NewController creates a Controller. store may be nil, in which case every
// check reports locked (environment without local storage).
func NewController(sessions SessionStore, codes CodeSource, admin AdminVerifier, store Store, opts ...Option) *Controller {
	c := &Controller{
		sessions: sessions,
		codes:    codes,
		admin:    admin,
		store:    store,
		now:      time.Now,
		newToken: NewToken,
		state:    State{IsLoading: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CheckAccess re-derives the access state. It is idempotent and safe to
// call on every page load or focus regain. If a newer check (or any state
// mutation) starts while this one is waiting on the session lookup, the
// stale result is discarded instead of clobbering newer state.
func (c *Controller) CheckAccess(ctx context.Context) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state.IsLoading = true
	c.mu.Unlock()

	if c.store == nil {
		c.finish(gen, State{}, nil)
		return
	}

	// Admin bypass wins over everything, including a corrupt session cache.
	if c.storeGet(KeyAdminBypass) == "true" {
		c.finish(gen, State{
			HasAccess:     true,
			AccessToken:   domain.AdminToken,
			SecretCode:    domain.AdminCode,
			IsAdminAccess: true,
		}, nil)
		return
	}

	token := c.storeGet(KeyToken)
	if raw := c.storeGet(KeyTimestamp); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || c.now().Sub(time.UnixMilli(ms)) > SessionDuration {
			c.finish(gen, State{}, c.clearSession)
			return
		}
	}
	if token == "" {
		c.finish(gen, State{}, nil)
		return
	}

	// The local cache is not a source of truth: the row must still exist
	// and be unexpired server-side.
	session, err := c.sessions.GetByToken(ctx, token)
	if err != nil {
		slog.Debug("session lookup failed, treating as locked",
			slog.String("error", err.Error()))
		c.finish(gen, State{}, c.clearSession)
		return
	}

	c.finish(gen, State{
		HasAccess:   true,
		AccessToken: token,
		SecretCode:  session.SecretCode,
	}, func() {
		// Sliding renewal: push the local window forward.
		c.storeSet(KeyTimestamp, strconv.FormatInt(c.now().UnixMilli(), 10))
	})
}

// VerifyCode checks code against the active weekly code and, on a match,
// creates a new anonymous session. Wrong code, missing code and any
// persistence failure all return false without touching state.
func (c *Controller) VerifyCode(ctx context.Context, code string) bool {
	active, err := c.codes.GetActive(ctx)
	if err != nil {
		slog.Debug("weekly code fetch failed", slog.String("error", err.Error()))
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(code), active.SecretCode) {
		return false
	}

	token := c.newToken()
	secretCode := strings.ToUpper(strings.TrimSpace(code))
	session := &domain.AccessSession{
		Email:      anonymousEmail,
		Phone:      anonymousPhone,
		FirstName:  anonymousName,
		Token:      token,
		SecretCode: secretCode,
		WeekStart:  WeekStart(c.now()),
	}
	if err := c.sessions.Create(ctx, session); err != nil {
		slog.Debug("session insert failed", slog.String("error", err.Error()))
		return false
	}

	c.adoptSession(token, secretCode)
	return true
}

// VerifyAdminAccess submits password to the back office. Success sets the
// permanent local bypass flag; admin sessions never expire until revoked.
func (c *Controller) VerifyAdminAccess(ctx context.Context, password string) bool {
	ok, err := c.admin.Verify(ctx, password)
	if err != nil {
		slog.Debug("admin verification failed", slog.String("error", err.Error()))
		return false
	}
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.storeSet(KeyAdminBypass, "true")
	c.state = State{
		HasAccess:     true,
		AccessToken:   domain.AdminToken,
		SecretCode:    domain.AdminCode,
		IsAdminAccess: true,
	}
	return true
}

// GrantAccessFromQuiz issues consolation access to a quiz participant.
// A brand-new token is minted every time; duplicate grants for the same
// person in the same week are allowed. Returns ok=false on any persistence
// failure, leaving prior state unchanged.
func (c *Controller) GrantAccessFromQuiz(ctx context.Context, email, phone, firstName, secretCode string) (string, bool) {
	token := c.newToken()
	session := &domain.AccessSession{
		Email:      email,
		Phone:      phone,
		FirstName:  firstName,
		Token:      token,
		SecretCode: strings.ToUpper(strings.TrimSpace(secretCode)),
		WeekStart:  WeekStart(c.now()),
	}
	if err := c.sessions.Create(ctx, session); err != nil {
		slog.Debug("quiz grant insert failed", slog.String("error", err.Error()))
		return "", false
	}

	c.adoptSession(token, session.SecretCode)
	return token, true
}

// RevokeAccess clears the session cache and the admin bypass flag and
// resets to the fully locked shape. Best effort: store failures are
// swallowed.
func (c *Controller) RevokeAccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.clearSession()
	c.storeRemove(KeyAdminBypass)
	c.state = State{}
}

// adoptSession installs a freshly granted non-admin session.
func (c *Controller) adoptSession(token, secretCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.storeSet(KeyToken, token)
	c.storeSet(KeyTimestamp, strconv.FormatInt(c.now().UnixMilli(), 10))
	c.state = State{
		HasAccess:   true,
		AccessToken: token,
		SecretCode:  secretCode,
	}
}

// finish commits the outcome of a check unless a newer mutation superseded
// it. sideEffect runs under the same lock so local-store writes cannot
// interleave with a competing grant or revoke.
func (c *Controller) finish(gen uint64, s State, sideEffect func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if sideEffect != nil {
		sideEffect()
	}
	c.state = s
}

func (c *Controller) clearSession() {
	c.storeRemove(KeyToken)
	c.storeRemove(KeyTimestamp)
}

func (c *Controller) storeGet(key string) string {
	if c.store == nil {
		return ""
	}
	v, err := c.store.Get(key)
	if err != nil {
		return ""
	}
	return v
}

func (c *Controller) storeSet(key, value string) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(key, value); err != nil {
		slog.Debug("local store write failed", slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

func (c *Controller) storeRemove(key string) {
	if c.store == nil {
		return
	}
	if err := c.store.Remove(key); err != nil {
		slog.Debug("local store remove failed", slog.String("key", key),
			slog.String("error", err.Error()))
	}
}
