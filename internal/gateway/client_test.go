package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_PaymentStatus_Captured(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/pay_123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payment_id":"pay_123","status":"captured","amount":"10.15","currency":"EUR"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", time.Second)

	got, err := c.PaymentStatus(context.Background(), "pay_123")
	if err != nil {
		t.Fatalf("payment status: %v", err)
	}

	if got.Status != StatusCaptured {
		t.Fatalf("status: want captured, got %s", got.Status)
	}
	if got.AmountMinor != 1015 {
		t.Fatalf("amount minor: want 1015, got %d", got.AmountMinor)
	}
	if got.Currency != "EUR" {
		t.Fatalf("currency: want EUR, got %s", got.Currency)
	}
}

func TestClient_PaymentStatus_NonCapturedStatuses(t *testing.T) {
	t.Parallel()

	for _, status := range []string{"pending", "authorized", "failed", "refused"} {
		status := status
		t.Run(status, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"payment_id":"pay_1","status":"` + status + `","amount":"5.00","currency":"EUR"}`))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "k", time.Second)

			got, err := c.PaymentStatus(context.Background(), "pay_1")
			if err != nil {
				t.Fatalf("payment status: %v", err)
			}
			if got.Status == StatusCaptured {
				t.Fatal("non-captured status reported as captured")
			}
		})
	}
}

func TestClient_PaymentStatus_UnknownPayment(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such payment"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)

	_, err := c.PaymentStatus(context.Background(), "pay_missing")
	if !errors.Is(err, ErrPaymentUnknown) {
		t.Fatalf("want ErrPaymentUnknown, got %v", err)
	}
}

func TestClient_PaymentStatus_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)

	_, err := c.PaymentStatus(context.Background(), "pay_1")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("want ErrGatewayUnavailable, got %v", err)
	}
}

func TestClient_PaymentStatus_Timeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, "k", 50*time.Millisecond)

	_, err := c.PaymentStatus(context.Background(), "pay_1")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("want ErrGatewayUnavailable on timeout, got %v", err)
	}
}

func TestClient_PaymentStatus_MalformedBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not_json", `<html>gateway maintenance</html>`},
		{"sub_cent_amount", `{"payment_id":"p","status":"captured","amount":"1.001","currency":"EUR"}`},
		{"amount_not_decimal", `{"payment_id":"p","status":"captured","amount":"ten","currency":"EUR"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "k", time.Second)

			_, err := c.PaymentStatus(context.Background(), "pay_1")
			if !errors.Is(err, ErrGatewayUnavailable) {
				t.Fatalf("want ErrGatewayUnavailable, got %v", err)
			}
		})
	}
}
