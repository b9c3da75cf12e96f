package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/luminapay/creditsvc/internal/repos/accounts"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

type accountsRepo struct{ db *sql.DB }

func New(db *sql.DB) *accountsRepo {
	return &accountsRepo{db: db}
}

func (r *accountsRepo) Get(ctx context.Context, userID string) (accounts.Account, error) {
	var a accounts.Account

	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, credits, total_credits_earned, total_credits_used, last_credit_update
		FROM credit_accounts
		WHERE user_id = $1
	`, userID).Scan(&a.UserID, &a.Credits, &a.TotalCreditsEarned, &a.TotalCreditsUsed, &a.LastCreditUpdate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}

		return accounts.Account{}, fmt.Errorf("get account: %w", err)
	}

	return a, nil
}

func (r *accountsRepo) GetForUpdate(tx *sql.Tx, userID string) (accounts.Account, error) {
	// First credit for a user creates the row. DO NOTHING keeps a racing
	// insert harmless; the FOR UPDATE below serializes the rest.
	_, err := tx.Exec(`
		INSERT INTO credit_accounts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return accounts.Account{}, fmt.Errorf("ensure account: %w", err)
	}

	var a accounts.Account

	err = tx.QueryRow(`
		SELECT user_id, credits, total_credits_earned, total_credits_used, last_credit_update
		FROM credit_accounts
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&a.UserID, &a.Credits, &a.TotalCreditsEarned, &a.TotalCreditsUsed, &a.LastCreditUpdate)
	if err != nil {
		return accounts.Account{}, fmt.Errorf("lock/get account: %w", err)
	}

	return a, nil
}

func (r *accountsRepo) ApplyCredit(tx *sql.Tx, userID string, credits int64, at time.Time) error {
	res, err := tx.Exec(`
		UPDATE credit_accounts
		SET credits = credits + $2,
		    total_credits_earned = total_credits_earned + $2,
		    last_credit_update = $3
		WHERE user_id = $1
	`, userID, credits, at)
	if err != nil {
		return fmt.Errorf("apply credit: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return accounts.ErrAccountNotFound
	}

	return nil
}
