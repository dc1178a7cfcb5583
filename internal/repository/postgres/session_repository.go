package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"creperie-promo/internal/domain"
)

// sessionTTL is the server-side lifetime of a session row. Independent of
// the client's 30-minute sliding window: the row caps how long any token
// can be revalidated at all.
const sessionTTL = 7 * 24 * time.Hour

type SessionRepository struct {
	db                *sql.DB
	createStmt        *sql.Stmt
	getByTokenStmt    *sql.Stmt
	deleteStmt        *sql.Stmt
	deleteExpiredStmt *sql.Stmt
	countActiveStmt   *sql.Stmt
}

// NewSessionRepository creates a new SessionRepository with prepared statements.
// Returns an error if statement preparation fails.
func NewSessionRepository(db *sql.DB) (*SessionRepository, error) {
	repo := &SessionRepository{db: db}

	var err error
	repo.createStmt, err = db.Prepare(`
		INSERT INTO access_sessions (email, phone, first_name, access_token, secret_code, week_start, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare create statement: %w", err)
	}

	repo.getByTokenStmt, err = db.Prepare(`
		SELECT id, email, phone, first_name, access_token, secret_code, week_start, expires_at, created_at
		FROM access_sessions
		WHERE access_token = $1 AND expires_at > $2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getByToken statement: %w", err)
	}

	repo.deleteStmt, err = db.Prepare(`DELETE FROM access_sessions WHERE access_token = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	repo.deleteExpiredStmt, err = db.Prepare(`DELETE FROM access_sessions WHERE expires_at <= $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare deleteExpired statement: %w", err)
	}

	repo.countActiveStmt, err = db.Prepare(`
		SELECT COUNT(*) FROM access_sessions WHERE expires_at > $1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare countActive statement: %w", err)
	}

	return repo, nil
}

// Create inserts a session row. The repository, not the caller, assigns
// expires_at; sessions are append-only and never updated afterwards.
func (r *SessionRepository) Create(ctx context.Context, session *domain.AccessSession) error {
	session.ExpiresAt = time.Now().Add(sessionTTL)

	err := r.createStmt.QueryRowContext(ctx,
		session.Email,
		session.Phone,
		session.FirstName,
		session.Token,
		session.SecretCode,
		session.WeekStart,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err, "access_sessions_access_token_key") {
			return domain.ErrTokenExists
		}
		return fmt.Errorf("failed to create access session: %w", err)
	}
	return nil
}

// GetByToken retrieves an unexpired session by its access token.
// Returns ErrSessionNotFound if the token is unknown or the row expired.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.AccessSession, error) {
	session := &domain.AccessSession{}
	err := r.getByTokenStmt.QueryRowContext(ctx, token, time.Now()).Scan(
		&session.ID,
		&session.Email,
		&session.Phone,
		&session.FirstName,
		&session.Token,
		&session.SecretCode,
		&session.WeekStart,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.deleteStmt.ExecContext(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.deleteExpiredStmt.ExecContext(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}

// CountActive returns the number of unexpired sessions, for the admin
// stats endpoint and the live dashboard feed.
func (r *SessionRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.countActiveStmt.QueryRowContext(ctx, time.Now()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}
