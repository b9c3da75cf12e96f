package ledger

import (
	"errors"
	"testing"
)

func TestParseGatewayEvent_Captured(t *testing.T) {
	t.Parallel()

	body := []byte(`{
		"event_id": "evt_1",
		"type": "payment.captured",
		"data": {"order_id": "ord_1", "payment_id": "pay_1", "user_id": "user_a"}
	}`)

	ev, err := ParseGatewayEvent(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	captured, ok := ev.(CapturedEvent)
	if !ok {
		t.Fatalf("want CapturedEvent, got %T", ev)
	}

	if captured.OrderID != "ord_1" || captured.PaymentID != "pay_1" || captured.UserID != "user_a" {
		t.Fatalf("unexpected fields: %+v", captured)
	}
}

func TestParseGatewayEvent_Failed(t *testing.T) {
	t.Parallel()

	body := []byte(`{
		"event_id": "evt_2",
		"type": "payment.failed",
		"data": {"order_id": "ord_1", "payment_id": "pay_1", "reason": "card declined"}
	}`)

	ev, err := ParseGatewayEvent(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	failed, ok := ev.(FailedEvent)
	if !ok {
		t.Fatalf("want FailedEvent, got %T", ev)
	}

	if failed.Reason != "card declined" {
		t.Fatalf("unexpected fields: %+v", failed)
	}
}

func TestParseGatewayEvent_UnknownType(t *testing.T) {
	t.Parallel()

	body := []byte(`{"event_id": "evt_3", "type": "refund.created", "data": {}}`)

	ev, err := ParseGatewayEvent(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	unknown, ok := ev.(UnknownEvent)
	if !ok {
		t.Fatalf("want UnknownEvent, got %T", ev)
	}

	if unknown.Type != "refund.created" {
		t.Fatalf("unexpected type: %s", unknown.Type)
	}
}

func TestParseGatewayEvent_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not_json", `not json at all`},
		{"missing_type", `{"event_id": "evt_1", "data": {}}`},
		{"captured_without_order", `{"type": "payment.captured", "data": {"payment_id": "pay_1"}}`},
		{"captured_without_payment", `{"type": "payment.captured", "data": {"order_id": "ord_1"}}`},
		{"failed_without_order", `{"type": "payment.failed", "data": {}}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseGatewayEvent([]byte(tt.body))
			if !errors.Is(err, ErrMalformedEvent) {
				t.Fatalf("want ErrMalformedEvent, got %v", err)
			}
		})
	}
}
