package main

import (
	"log/slog"
	"time"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	PostgresDSN string `env:"PG_DSN"`

	// Secrets shared with the payment gateway and the auth service.
	PaymentSignatureSecret string `env:"PAYMENT_SIGNATURE_SECRET"`
	WebhookSignatureSecret string `env:"WEBHOOK_SIGNATURE_SECRET"`
	AuthTokenSecret        string `env:"AUTH_TOKEN_SECRET"`

	GatewayBaseURL string        `env:"GATEWAY_BASE_URL"`
	GatewayAPIKey  string        `env:"GATEWAY_API_KEY"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"5s"`
}
