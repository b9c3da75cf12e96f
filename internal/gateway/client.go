package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Client talks to the gateway's payment query endpoint:
//
//	GET {base}/v1/payments/{paymentId}
//
// The embedded http.Client carries the request timeout, so a hung gateway
// fails the lookup instead of hanging the verification flow.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

var _ StatusChecker = (*Client)(nil)

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type paymentResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

func (c *Client) PaymentStatus(ctx context.Context, paymentID string) (Payment, error) {
	if paymentID == "" {
		return Payment{}, fmt.Errorf("payment id is empty")
	}

	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, url.PathEscape(paymentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Payment{}, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Payment{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	//nolint:errcheck
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Payment{}, fmt.Errorf("%w: %s", ErrPaymentUnknown, paymentID)
	case resp.StatusCode != http.StatusOK:
		return Payment{}, fmt.Errorf("%w: unexpected status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var body paymentResponse

	dec := json.NewDecoder(resp.Body)

	err = dec.Decode(&body)
	if err != nil {
		return Payment{}, fmt.Errorf("%w: decode response: %v", ErrGatewayUnavailable, err)
	}

	amountMinor, err := parseAmountMinor(body.Amount)
	if err != nil {
		return Payment{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	return Payment{
		PaymentID:   body.PaymentID,
		Status:      Status(body.Status),
		AmountMinor: amountMinor,
		Currency:    body.Currency,
	}, nil
}

// parseAmountMinor converts the gateway's decimal amount string ("10.15")
// into minor units. More than two fractional digits means the response is
// not one of ours.
func parseAmountMinor(s string) (int64, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}

	minor := amount.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-cent precision", s)
	}

	return minor.IntPart(), nil
}
