package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/luminapay/creditsvc/internal/repos/receipts"
)

var _ receipts.Receipts = (*receiptsRepo)(nil)

type receiptsRepo struct{ db *sql.DB }

func New(db *sql.DB) *receiptsRepo {
	return &receiptsRepo{db: db}
}

func (r *receiptsRepo) Insert(tx *sql.Tx, rec receipts.Receipt) error {
	_, err := tx.Exec(`
		INSERT INTO receipts
			(id, order_id, user_id, payment_id, amount_minor, currency, credits, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.OrderID, rec.UserID, rec.PaymentID, rec.AmountMinor,
		rec.Currency, rec.Credits, rec.IssuedAt)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	return nil
}

func (r *receiptsRepo) GetByOrder(ctx context.Context, orderID string) (receipts.Receipt, error) {
	var rec receipts.Receipt

	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, user_id, payment_id, amount_minor, currency, credits, issued_at
		FROM receipts
		WHERE order_id = $1
	`, orderID).Scan(&rec.ID, &rec.OrderID, &rec.UserID, &rec.PaymentID,
		&rec.AmountMinor, &rec.Currency, &rec.Credits, &rec.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return receipts.Receipt{}, receipts.ErrReceiptNotFound
		}

		return receipts.Receipt{}, fmt.Errorf("get receipt: %w", err)
	}

	return rec, nil
}

func (r *receiptsRepo) ListByUser(ctx context.Context, userID string, limit int) ([]receipts.Receipt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, user_id, payment_id, amount_minor, currency, credits, issued_at
		FROM receipts
		WHERE user_id = $1
		ORDER BY issued_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var recs []receipts.Receipt

	for rows.Next() {
		var rec receipts.Receipt

		err = rows.Scan(&rec.ID, &rec.OrderID, &rec.UserID, &rec.PaymentID,
			&rec.AmountMinor, &rec.Currency, &rec.Credits, &rec.IssuedAt)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}

		recs = append(recs, rec)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}

	return recs, nil
}
