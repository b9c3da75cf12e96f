package ledger

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/luminapay/creditsvc/internal/gateway"
	"github.com/luminapay/creditsvc/internal/repos/accounts"
	"github.com/luminapay/creditsvc/internal/repos/creditlog"
	"github.com/luminapay/creditsvc/internal/repos/orders"
	"github.com/luminapay/creditsvc/internal/repos/receipts"
)

// memStore is an in-memory stand-in for the postgres store. Its runTx
// mirrors the store's transaction contract: one writer at a time, all
// mutations of a failed unit rolled back. Conflicts are injectable so the
// bounded-retry behavior can be pinned down deterministically.
type memStore struct {
	mu sync.Mutex

	orders     map[string]orders.Order
	accounts   map[string]accounts.Account
	entries    map[string]creditlog.Entry   // keyed by order ID
	receiptRec map[string]receipts.Receipt  // keyed by order ID

	conflictsToInject int
}

func newMemStore() *memStore {
	return &memStore{
		orders:     make(map[string]orders.Order),
		accounts:   make(map[string]accounts.Account),
		entries:    make(map[string]creditlog.Entry),
		receiptRec: make(map[string]receipts.Receipt),
	}
}

func (m *memStore) runTx(_ context.Context, fn func(*sql.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conflictsToInject > 0 {
		m.conflictsToInject--

		return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}

	snap := m.snapshot()

	err := fn(nil)
	if err != nil {
		m.restore(snap)

		return err
	}

	return nil
}

type memSnapshot struct {
	orders     map[string]orders.Order
	accounts   map[string]accounts.Account
	entries    map[string]creditlog.Entry
	receiptRec map[string]receipts.Receipt
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		orders:     make(map[string]orders.Order, len(m.orders)),
		accounts:   make(map[string]accounts.Account, len(m.accounts)),
		entries:    make(map[string]creditlog.Entry, len(m.entries)),
		receiptRec: make(map[string]receipts.Receipt, len(m.receiptRec)),
	}

	for k, v := range m.orders {
		s.orders[k] = v
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	for k, v := range m.entries {
		s.entries[k] = v
	}
	for k, v := range m.receiptRec {
		s.receiptRec[k] = v
	}

	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.orders = s.orders
	m.accounts = s.accounts
	m.entries = s.entries
	m.receiptRec = s.receiptRec
}

// --- orders.Orders ---

type memOrders struct{ s *memStore }

func (r memOrders) Get(_ context.Context, orderID string) (orders.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}

	return o, nil
}

func (r memOrders) GetForUpdate(_ *sql.Tx, orderID string) (orders.Order, error) {
	o, ok := r.s.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}

	return o, nil
}

func (r memOrders) MarkCompleted(_ *sql.Tx, orderID, paymentID string, creditsAfter int64, completedAt time.Time) error {
	o, ok := r.s.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	if o.Status != orders.StatusPending {
		return orders.ErrOrderNotPending
	}

	o.Status = orders.StatusCompleted
	o.PaymentID = paymentID
	o.CreditsAfter = creditsAfter
	o.CompletedAt = completedAt
	r.s.orders[orderID] = o

	return nil
}

func (r memOrders) MarkFailed(_ *sql.Tx, orderID, paymentID string, failedAt time.Time) error {
	o, ok := r.s.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	if o.Status != orders.StatusPending {
		return orders.ErrOrderNotPending
	}

	o.Status = orders.StatusFailed
	o.PaymentID = paymentID
	o.CompletedAt = failedAt
	r.s.orders[orderID] = o

	return nil
}

// --- accounts.Accounts ---

type memAccounts struct{ s *memStore }

func (r memAccounts) Get(_ context.Context, userID string) (accounts.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[userID]
	if !ok {
		return accounts.Account{}, accounts.ErrAccountNotFound
	}

	return a, nil
}

func (r memAccounts) GetForUpdate(_ *sql.Tx, userID string) (accounts.Account, error) {
	a, ok := r.s.accounts[userID]
	if !ok {
		a = accounts.Account{UserID: userID}
		r.s.accounts[userID] = a
	}

	return a, nil
}

func (r memAccounts) ApplyCredit(_ *sql.Tx, userID string, credits int64, at time.Time) error {
	a, ok := r.s.accounts[userID]
	if !ok {
		return accounts.ErrAccountNotFound
	}

	a.Credits += credits
	a.TotalCreditsEarned += credits
	a.LastCreditUpdate = at
	r.s.accounts[userID] = a

	return nil
}

// --- creditlog.CreditLog ---

type memCreditLog struct{ s *memStore }

func (r memCreditLog) Insert(_ *sql.Tx, e creditlog.Entry) error {
	if _, exists := r.s.entries[e.OrderID]; exists {
		return creditlog.ErrDuplicateGrant
	}

	r.s.entries[e.OrderID] = e

	return nil
}

func (r memCreditLog) GetByOrder(_ context.Context, orderID string) (creditlog.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.entries[orderID]
	if !ok {
		return creditlog.Entry{}, creditlog.ErrEntryNotFound
	}

	return e, nil
}

func (r memCreditLog) ListByUser(_ context.Context, userID string, _ int) ([]creditlog.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []creditlog.Entry
	for _, e := range r.s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}

	return out, nil
}

// --- receipts.Receipts ---

type memReceipts struct{ s *memStore }

func (r memReceipts) Insert(_ *sql.Tx, rec receipts.Receipt) error {
	r.s.receiptRec[rec.OrderID] = rec

	return nil
}

func (r memReceipts) GetByOrder(_ context.Context, orderID string) (receipts.Receipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.receiptRec[orderID]
	if !ok {
		return receipts.Receipt{}, receipts.ErrReceiptNotFound
	}

	return rec, nil
}

func (r memReceipts) ListByUser(_ context.Context, userID string, _ int) ([]receipts.Receipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []receipts.Receipt
	for _, rec := range r.s.receiptRec {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}

	return out, nil
}

// --- gateway.StatusChecker ---

type fakeChecker struct {
	mu      sync.Mutex
	payment gateway.Payment
	err     error
	calls   int
}

func (f *fakeChecker) PaymentStatus(_ context.Context, _ string) (gateway.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return gateway.Payment{}, f.err
	}

	return f.payment, nil
}

func (f *fakeChecker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}
