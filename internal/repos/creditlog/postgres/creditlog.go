package creditlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/luminapay/creditsvc/internal/infra/pgutils"
	"github.com/luminapay/creditsvc/internal/repos/creditlog"
)

var _ creditlog.CreditLog = (*creditLogRepo)(nil)

type creditLogRepo struct{ db *sql.DB }

func New(db *sql.DB) *creditLogRepo {
	return &creditLogRepo{db: db}
}

func (r *creditLogRepo) Insert(tx *sql.Tx, e creditlog.Entry) error {
	_, err := tx.Exec(`
		INSERT INTO credit_transactions
			(id, user_id, type, amount, credits_before, credits_after,
			 order_id, payment_id, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.UserID, e.Type, e.Amount, e.CreditsBefore, e.CreditsAfter,
		e.OrderID, e.PaymentID, e.Source, e.CreatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return creditlog.ErrDuplicateGrant
		}

		return fmt.Errorf("insert credit transaction: %w", err)
	}

	return nil
}

func (r *creditLogRepo) GetByOrder(ctx context.Context, orderID string) (creditlog.Entry, error) {
	var e creditlog.Entry

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, amount, credits_before, credits_after,
		       order_id, payment_id, source, created_at
		FROM credit_transactions
		WHERE order_id = $1
	`, orderID).Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.CreditsBefore,
		&e.CreditsAfter, &e.OrderID, &e.PaymentID, &e.Source, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return creditlog.Entry{}, creditlog.ErrEntryNotFound
		}

		return creditlog.Entry{}, fmt.Errorf("get credit transaction: %w", err)
	}

	return e, nil
}

func (r *creditLogRepo) ListByUser(ctx context.Context, userID string, limit int) ([]creditlog.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount, credits_before, credits_after,
		       order_id, payment_id, source, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var entries []creditlog.Entry

	for rows.Next() {
		var e creditlog.Entry

		err = rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.CreditsBefore,
			&e.CreditsAfter, &e.OrderID, &e.PaymentID, &e.Source, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan credit transaction: %w", err)
		}

		entries = append(entries, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate credit transactions: %w", err)
	}

	return entries, nil
}
