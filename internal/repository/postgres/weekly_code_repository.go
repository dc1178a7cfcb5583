package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"creperie-promo/internal/domain"
)

type WeeklyCodeRepository struct {
	db            *sql.DB
	tx            *TxManager
	getActiveStmt *sql.Stmt
}

// NewWeeklyCodeRepository creates a new WeeklyCodeRepository with prepared
// statements. Returns an error if statement preparation fails.
func NewWeeklyCodeRepository(db *sql.DB) (*WeeklyCodeRepository, error) {
	repo := &WeeklyCodeRepository{db: db, tx: NewTxManager(db)}

	var err error
	repo.getActiveStmt, err = db.Prepare(`
		SELECT id, week_start, secret_code, active, created_at
		FROM weekly_codes
		WHERE active = true
		ORDER BY week_start DESC
		LIMIT 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getActive statement: %w", err)
	}

	return repo, nil
}

// GetActive returns the newest active weekly code.
// Returns ErrNoActiveCode when no code row is active.
func (r *WeeklyCodeRepository) GetActive(ctx context.Context) (*domain.WeeklyCode, error) {
	code := &domain.WeeklyCode{}
	err := r.getActiveStmt.QueryRowContext(ctx).Scan(
		&code.ID,
		&code.WeekStart,
		&code.SecretCode,
		&code.Active,
		&code.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNoActiveCode
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active weekly code: %w", err)
	}
	return code, nil
}

// Ensure inserts the code for weekStart if the week has none yet and
// deactivates codes from earlier weeks. Idempotent: a concurrent or
// repeated call for the same week is a no-op.
func (r *WeeklyCodeRepository) Ensure(ctx context.Context, weekStart, secretCode string) error {
	return r.tx.WithTx(ctx, func(tx *sql.Tx) error {
		// ON CONFLICT rather than catching the unique violation: an errored
		// statement would abort the whole transaction.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO weekly_codes (week_start, secret_code, active)
			VALUES ($1, $2, true)
			ON CONFLICT (week_start) DO NOTHING
		`, weekStart, secretCode)
		if err != nil {
			return fmt.Errorf("failed to insert weekly code: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE weekly_codes SET active = false WHERE week_start < $1
		`, weekStart); err != nil {
			return fmt.Errorf("failed to deactivate previous weekly codes: %w", err)
		}
		return nil
	})
}
