package receipts

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/luminapay/creditsvc/internal/infra/pgtestutil"
	"github.com/luminapay/creditsvc/internal/repos/receipts"
)

func seedOrder(t *testing.T, db *sql.DB, id, userID string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO orders (id, user_id, amount_minor, currency, credits_requested, status)
		VALUES ($1, $2, 1015, 'EUR', 100, 'pending')
	`, id, userID)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func insertReceipt(t *testing.T, db *sql.DB, repo *receiptsRepo, rec receipts.Receipt) {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := repo.Insert(tx, rec); err != nil {
		t.Fatalf("insert receipt: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestReceipts_InsertAndGetByOrder(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	seedOrder(t, db, "ord_1", "user_a")

	want := receipts.Receipt{
		ID:          uuid.NewString(),
		OrderID:     "ord_1",
		UserID:      "user_a",
		PaymentID:   "pay_1",
		AmountMinor: 1015,
		Currency:    "EUR",
		Credits:     100,
		IssuedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	insertReceipt(t, db, repo, want)

	got, err := repo.GetByOrder(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("get by order: %v", err)
	}

	if got.ID != want.ID || got.AmountMinor != 1015 || got.Credits != 100 {
		t.Fatalf("unexpected receipt: %+v", got)
	}
	if !got.IssuedAt.Equal(want.IssuedAt) {
		t.Fatalf("issued_at: want %v, got %v", want.IssuedAt, got.IssuedAt)
	}
}

func TestReceipts_GetByOrder_NotFound(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	_, err := repo.GetByOrder(context.Background(), "ord_missing")
	if !errors.Is(err, receipts.ErrReceiptNotFound) {
		t.Fatalf("want ErrReceiptNotFound, got %v", err)
	}
}

func TestReceipts_ListByUser(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, orderID := range []string{"ord_1", "ord_2"} {
		seedOrder(t, db, orderID, "user_a")
		insertReceipt(t, db, repo, receipts.Receipt{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			UserID:      "user_a",
			PaymentID:   "pay_" + orderID,
			AmountMinor: 1015,
			Currency:    "EUR",
			Credits:     100,
			IssuedAt:    base.Add(time.Duration(i) * time.Second),
		})
	}

	recs, err := repo.ListByUser(context.Background(), "user_a", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(recs) != 2 {
		t.Fatalf("want 2 receipts, got %d", len(recs))
	}
	// Newest first.
	if recs[0].OrderID != "ord_2" {
		t.Fatalf("expected newest receipt first, got %s", recs[0].OrderID)
	}

	recs, err = repo.ListByUser(context.Background(), "user_nobody", 10)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("want no receipts, got %d", len(recs))
	}
}
