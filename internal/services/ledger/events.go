package ledger

import (
	"encoding/json"
	"fmt"
)

// Gateway webhook envelopes are parsed into tagged variants at the
// boundary; raw maps never reach the engine.

const (
	eventTypeCaptured = "payment.captured"
	eventTypeFailed   = "payment.failed"
)

type GatewayEvent interface{ gatewayEvent() }

// CapturedEvent reports funds collected for an order. UserID is optional;
// when the gateway echoes it, the identity guard checks it against the
// order's owner.
type CapturedEvent struct {
	EventID   string
	OrderID   string
	PaymentID string
	UserID    string
}

// FailedEvent reports a payment that will never capture.
type FailedEvent struct {
	EventID   string
	OrderID   string
	PaymentID string
	Reason    string
}

// UnknownEvent is any event type this subsystem does not handle. It is
// acknowledged and dropped so the gateway stops redelivering it.
type UnknownEvent struct {
	EventID string
	Type    string
}

func (CapturedEvent) gatewayEvent() {}
func (FailedEvent) gatewayEvent()   {}
func (UnknownEvent) gatewayEvent()  {}

type eventEnvelope struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		OrderID   string `json:"order_id"`
		PaymentID string `json:"payment_id"`
		UserID    string `json:"user_id"`
		Reason    string `json:"reason"`
	} `json:"data"`
}

// ParseGatewayEvent interprets a signature-verified webhook body.
func ParseGatewayEvent(body []byte) (GatewayEvent, error) {
	var env eventEnvelope

	err := json.Unmarshal(body, &env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}

	switch env.Type {
	case eventTypeCaptured:
		if env.Data.OrderID == "" || env.Data.PaymentID == "" {
			return nil, fmt.Errorf("%w: captured event without identifiers", ErrMalformedEvent)
		}

		return CapturedEvent{
			EventID:   env.EventID,
			OrderID:   env.Data.OrderID,
			PaymentID: env.Data.PaymentID,
			UserID:    env.Data.UserID,
		}, nil

	case eventTypeFailed:
		if env.Data.OrderID == "" {
			return nil, fmt.Errorf("%w: failed event without order id", ErrMalformedEvent)
		}

		return FailedEvent{
			EventID:   env.EventID,
			OrderID:   env.Data.OrderID,
			PaymentID: env.Data.PaymentID,
			Reason:    env.Data.Reason,
		}, nil

	default:
		return UnknownEvent{EventID: env.EventID, Type: env.Type}, nil
	}
}
