package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/luminapay/creditsvc/internal/api"
	"github.com/luminapay/creditsvc/internal/auth"
	"github.com/luminapay/creditsvc/internal/gateway"
	"github.com/luminapay/creditsvc/internal/infra/logging"
	"github.com/luminapay/creditsvc/internal/infra/pgutils"
	pgaccounts "github.com/luminapay/creditsvc/internal/repos/accounts/postgres"
	pgreceipts "github.com/luminapay/creditsvc/internal/repos/receipts/postgres"
	"github.com/luminapay/creditsvc/internal/services/ledger"
	"github.com/luminapay/creditsvc/internal/signature"
	"github.com/luminapay/creditsvc/pkg/envconf"
	"github.com/luminapay/creditsvc/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	_ = godotenv.Load()

	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		slog.Info("Close database pool")

		return db.Close()
	})

	// --- Verification chain ---
	sig, err := signature.New([]byte(cfg.PaymentSignatureSecret), []byte(cfg.WebhookSignatureSecret))
	if err != nil {
		return fmt.Errorf("init signature verifier: %w", err)
	}

	guard, err := auth.NewGuard([]byte(cfg.AuthTokenSecret))
	if err != nil {
		return fmt.Errorf("init identity guard: %w", err)
	}

	checker := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)

	ledgerSrv := ledger.New(db, checker, sig, guard)

	// --- HTTP server ---
	handler := api.NewRouter(api.NewHandler(ledgerSrv, sig, pgaccounts.New(db), pgreceipts.New(db)))
	srv := api.NewServer(cfg.Port, handler)

	// Register HTTP server graceful shutdown
	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
