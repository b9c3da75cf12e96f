// Package signature verifies the keyed signatures the payment gateway
// attaches to identifiers and webhook payloads. Two secrets are in play:
// the payment secret covers the orderID/paymentID pair echoed back by the
// paying client, the webhook secret covers raw webhook bodies.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrMalformedSignature = errors.New("malformed signature")
)

type Verifier struct {
	paymentSecret []byte
	webhookSecret []byte
}

func New(paymentSecret, webhookSecret []byte) (*Verifier, error) {
	if len(paymentSecret) == 0 {
		return nil, errors.New("payment secret is empty")
	}
	if len(webhookSecret) == 0 {
		return nil, errors.New("webhook secret is empty")
	}

	return &Verifier{paymentSecret: paymentSecret, webhookSecret: webhookSecret}, nil
}

// Payment checks the client-supplied signature over the order/payment pair.
// A mismatch is a hard rejection, never a warning.
func (v *Verifier) Payment(orderID, paymentID, supplied string) error {
	if orderID == "" || paymentID == "" {
		return fmt.Errorf("%w: empty identifier", ErrMalformedSignature)
	}

	return verify(v.paymentSecret, []byte(orderID+"."+paymentID), supplied)
}

// Webhook checks the gateway signature over the exact raw body bytes.
// Re-serialized JSON will not verify; callers must pass the body untouched.
func (v *Verifier) Webhook(body []byte, supplied string) error {
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedSignature)
	}

	return verify(v.webhookSecret, body, supplied)
}

// SignPayment produces the signature the gateway would attach to the pair.
// Used by tests and the mock gateway tooling.
func (v *Verifier) SignPayment(orderID, paymentID string) string {
	return sign(v.paymentSecret, []byte(orderID+"."+paymentID))
}

// SignWebhook produces the signature the gateway would attach to a body.
func (v *Verifier) SignWebhook(body []byte) string {
	return sign(v.webhookSecret, body)
}

func sign(secret, msg []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(msg)

	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret, msg []byte, supplied string) error {
	if supplied == "" {
		return fmt.Errorf("%w: empty signature", ErrMalformedSignature)
	}

	got, err := hex.DecodeString(supplied)
	if err != nil {
		return fmt.Errorf("%w: not hex encoded", ErrMalformedSignature)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(msg)

	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrSignatureMismatch
	}

	return nil
}
