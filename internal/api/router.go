package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter constructs the router with all API endpoints registered.
func NewRouter(h *HandlerProvider) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	// The two entry points feed the same ledger engine; either may arrive
	// first, both are idempotent.
	r.Post("/payments/verify", h.VerifyPaymentHandler)
	r.Post("/webhooks/gateway", h.GatewayWebhookHandler)

	// Read surfaces for the balance and receipt UIs.
	r.Get("/user/{userId}/credits", h.GetCreditsHandler)
	r.Get("/user/{userId}/receipts", h.ListReceiptsHandler)

	return r
}
