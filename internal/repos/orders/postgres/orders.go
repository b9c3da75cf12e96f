package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/luminapay/creditsvc/internal/repos/orders"
)

var _ orders.Orders = (*ordersRepo)(nil)

type ordersRepo struct{ db *sql.DB }

func New(db *sql.DB) *ordersRepo {
	return &ordersRepo{db: db}
}

const orderColumns = `
	id, user_id, amount_minor, currency, credits_requested, status,
	COALESCE(payment_id, ''), COALESCE(credits_after, 0), created_at, completed_at
`

func scanOrder(row *sql.Row) (orders.Order, error) {
	var (
		o           orders.Order
		completedAt sql.NullTime
	)

	err := row.Scan(
		&o.ID, &o.UserID, &o.AmountMinor, &o.Currency, &o.CreditsRequested,
		&o.Status, &o.PaymentID, &o.CreditsAfter, &o.CreatedAt, &completedAt,
	)
	if err != nil {
		return orders.Order{}, err
	}

	if completedAt.Valid {
		o.CompletedAt = completedAt.Time
	}

	return o, nil
}

func (r *ordersRepo) Get(ctx context.Context, orderID string) (orders.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, orderID)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return orders.Order{}, orders.ErrOrderNotFound
		}

		return orders.Order{}, fmt.Errorf("get order: %w", err)
	}

	return o, nil
}

func (r *ordersRepo) GetForUpdate(tx *sql.Tx, orderID string) (orders.Order, error) {
	row := tx.QueryRow(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return orders.Order{}, orders.ErrOrderNotFound
		}

		return orders.Order{}, fmt.Errorf("lock/get order: %w", err)
	}

	return o, nil
}

func (r *ordersRepo) MarkCompleted(tx *sql.Tx, orderID, paymentID string, creditsAfter int64, completedAt time.Time) error {
	res, err := tx.Exec(`
		UPDATE orders
		SET status = 'completed',
		    payment_id = $2,
		    credits_after = $3,
		    completed_at = $4
		WHERE id = $1
		  AND status = 'pending'
	`, orderID, paymentID, creditsAfter, completedAt)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return orders.ErrOrderNotPending
	}

	return nil
}

func (r *ordersRepo) MarkFailed(tx *sql.Tx, orderID, paymentID string, failedAt time.Time) error {
	res, err := tx.Exec(`
		UPDATE orders
		SET status = 'failed',
		    payment_id = $2,
		    completed_at = $3
		WHERE id = $1
		  AND status = 'pending'
	`, orderID, paymentID, failedAt)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return orders.ErrOrderNotPending
	}

	return nil
}
