package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"regexp"
	"strings"
	"time"

	"creperie-promo/internal/access"
	"creperie-promo/internal/domain"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9 .\-]{6,20}$`)
)

// codeWords seed the generated weekly codes, e.g. "CREPE25" or "CIDRE07".
var codeWords = []string{
	"CREPE", "GALETTE", "SUZETTE", "CARAMEL", "SARRASIN", "CIDRE", "BEURRE", "CHANDELEUR",
}

// Placeholder identity for code-based unlocks where the visitor stays
// anonymous. Mirrors what the access controller writes client-side.
const (
	anonymousEmail = "secret-menu@anonymous.local"
	anonymousPhone = "0000000000"
	anonymousName  = "Visiteur"
)

// GrantPublisher notifies downstream consumers (the email worker) that
// access was granted.
type GrantPublisher interface {
	PublishAccessGranted(ctx context.Context, session *domain.AccessSession, source string) error
}

// AccessService is the server-side authority for issuing and validating
// secret-menu access sessions.
type AccessService struct {
	sessions domain.AccessSessionRepository
	codes    domain.WeeklyCodeRepository
	events   GrantPublisher // nil disables event publishing
	now      func() time.Time
}

func NewAccessService(sessions domain.AccessSessionRepository, codes domain.WeeklyCodeRepository, events GrantPublisher) *AccessService {
	return &AccessService{
		sessions: sessions,
		codes:    codes,
		events:   events,
		now:      time.Now,
	}
}

// VerifyCode checks code against the active weekly code and issues an
// anonymous session on a match. Returns ErrInvalidCode both when the code
// is wrong and when no code is active this week.
func (s *AccessService) VerifyCode(ctx context.Context, code string) (*domain.AccessSession, error) {
	active, err := s.codes.GetActive(ctx)
	if errors.Is(err, domain.ErrNoActiveCode) {
		return nil, domain.ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(code), active.SecretCode) {
		return nil, domain.ErrInvalidCode
	}

	return s.createSession(ctx, anonymousEmail, anonymousPhone, anonymousName, active.SecretCode, "code")
}

// GrantFromQuiz issues consolation access to a quiz participant. Every call
// mints a new session; duplicate grants for the same person in the same
// week are allowed.
func (s *AccessService) GrantFromQuiz(ctx context.Context, email, phone, firstName, secretCode string) (*domain.AccessSession, error) {
	if !emailRegex.MatchString(email) || len(email) > 255 {
		return nil, domain.ErrInvalidInput
	}
	if !phoneRegex.MatchString(phone) {
		return nil, domain.ErrInvalidInput
	}
	if firstName == "" || len(firstName) > 100 {
		return nil, domain.ErrInvalidInput
	}
	if secretCode == "" || len(secretCode) > 50 {
		return nil, domain.ErrInvalidInput
	}

	code := strings.ToUpper(strings.TrimSpace(secretCode))
	return s.createSession(ctx, email, phone, firstName, code, "quiz")
}

// Register stores a session minted by a remote client (the kiosk). The
// caller supplies the token; the repository assigns the server-side
// expiry.
func (s *AccessService) Register(ctx context.Context, session *domain.AccessSession) error {
	if session.Token == "" || session.Token == domain.AdminToken {
		return domain.ErrInvalidInput
	}
	if session.Email == "" || session.FirstName == "" {
		return domain.ErrInvalidInput
	}
	if session.WeekStart == "" {
		session.WeekStart = access.WeekStart(s.now())
	}
	return s.sessions.Create(ctx, session)
}

// ActiveCode returns this week's code.
func (s *AccessService) ActiveCode(ctx context.Context) (*domain.WeeklyCode, error) {
	return s.codes.GetActive(ctx)
}

// Lookup returns the unexpired session for token.
func (s *AccessService) Lookup(ctx context.Context, token string) (*domain.AccessSession, error) {
	return s.sessions.GetByToken(ctx, token)
}

// Revoke deletes the session row for token.
func (s *AccessService) Revoke(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Stats summarizes access activity for the back office.
type Stats struct {
	ActiveSessions int64  `json:"active_sessions"`
	WeekStart      string `json:"week_start"`
}

func (s *AccessService) Stats(ctx context.Context) (*Stats, error) {
	count, err := s.sessions.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to gather access stats: %w", err)
	}
	return &Stats{
		ActiveSessions: count,
		WeekStart:      access.WeekStart(s.now()),
	}, nil
}

// EnsureWeeklyCode makes sure the current week has a code, generating one
// if the week just started. Idempotent; safe to call from a ticker.
func (s *AccessService) EnsureWeeklyCode(ctx context.Context) error {
	weekStart := access.WeekStart(s.now())
	code := codeWords[mrand.Intn(len(codeWords))] + fmt.Sprintf("%02d", mrand.Intn(100))
	return s.codes.Ensure(ctx, weekStart, code)
}

func (s *AccessService) createSession(ctx context.Context, email, phone, firstName, code, source string) (*domain.AccessSession, error) {
	session := &domain.AccessSession{
		Email:      email,
		Phone:      phone,
		FirstName:  firstName,
		Token:      access.NewToken(),
		SecretCode: code,
		WeekStart:  access.WeekStart(s.now()),
	}

	err := s.sessions.Create(ctx, session)
	if errors.Is(err, domain.ErrTokenExists) {
		// Token collision is vanishingly rare; one retry with a fresh token.
		session.Token = access.NewToken()
		err = s.sessions.Create(ctx, session)
	}
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.PublishAccessGranted(ctx, session, source); err != nil {
			slog.Warn("failed to publish access granted event",
				slog.String("source", source),
				slog.String("error", err.Error()))
		}
	}

	return session, nil
}
