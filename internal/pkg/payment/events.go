package payment

import (
	"encoding/json"
	"fmt"
)

// Gateway event types handled by the processor.
const (
	EventCheckoutCompleted             = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	EventCheckoutExpired               = "checkout.session.expired"
	EventChargeSucceeded               = "charge.succeeded"
	EventChargeRefunded                = "charge.refunded"
	EventPaymentIntentFailed           = "payment_intent.payment_failed"
)

// MetadataPaymentID is the session metadata key carrying our payment UUID.
// It is the only linkage the webhook processor can rely on.
const MetadataPaymentID = "payment_id"

// WebhookEvent is a closed union over the event variants the state machine
// dispatches on. Everything else parses to Unhandled.
type WebhookEvent interface {
	isWebhookEvent()
}

// CheckoutSessionData is the shared payload of checkout.session.* events.
type CheckoutSessionData struct {
	SessionID       string
	PaymentIntentID string
	CustomerID      string
	PaymentID       string // our payment UUID from session metadata
}

// ChargeData is the shared payload of charge.* events.
type ChargeData struct {
	ChargeID        string
	PaymentIntentID string
	ReceiptURL      string
	AmountRefunded  int64
}

// PaymentIntentData is the payload of payment_intent.* events.
type PaymentIntentData struct {
	PaymentIntentID string
	FailureMessage  string
}

type CheckoutCompleted struct{ CheckoutSessionData }

type CheckoutAsyncPaymentSucceeded struct{ CheckoutSessionData }

type CheckoutAsyncPaymentFailed struct{ CheckoutSessionData }

type CheckoutExpired struct{ CheckoutSessionData }

type ChargeSucceeded struct{ ChargeData }

type ChargeRefunded struct{ ChargeData }

type PaymentIntentFailed struct{ PaymentIntentData }

// Unhandled is the catch-all for event types outside the transition table.
type Unhandled struct{ EventType string }

func (CheckoutCompleted) isWebhookEvent()             {}
func (CheckoutAsyncPaymentSucceeded) isWebhookEvent() {}
func (CheckoutAsyncPaymentFailed) isWebhookEvent()    {}
func (CheckoutExpired) isWebhookEvent()               {}
func (ChargeSucceeded) isWebhookEvent()               {}
func (ChargeRefunded) isWebhookEvent()                {}
func (PaymentIntentFailed) isWebhookEvent()           {}
func (Unhandled) isWebhookEvent()                     {}

type rawCheckoutSession struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	Customer      string            `json:"customer"`
	Metadata      map[string]string `json:"metadata"`
}

type rawCharge struct {
	ID             string `json:"id"`
	PaymentIntent  string `json:"payment_intent"`
	ReceiptURL     string `json:"receipt_url"`
	AmountRefunded int64  `json:"amount_refunded"`
}

type rawPaymentIntent struct {
	ID               string `json:"id"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// ParseEvent decodes a verified gateway event into its typed variant.
func ParseEvent(ev *Event) (WebhookEvent, error) {
	switch ev.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncPaymentSucceeded,
		EventCheckoutAsyncPaymentFailed, EventCheckoutExpired:
		var raw rawCheckoutSession
		if err := json.Unmarshal(ev.Payload, &raw); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", ev.Type, err)
		}
		data := CheckoutSessionData{
			SessionID:       raw.ID,
			PaymentIntentID: raw.PaymentIntent,
			CustomerID:      raw.Customer,
			PaymentID:       raw.Metadata[MetadataPaymentID],
		}
		switch ev.Type {
		case EventCheckoutCompleted:
			return CheckoutCompleted{data}, nil
		case EventCheckoutAsyncPaymentSucceeded:
			return CheckoutAsyncPaymentSucceeded{data}, nil
		case EventCheckoutAsyncPaymentFailed:
			return CheckoutAsyncPaymentFailed{data}, nil
		default:
			return CheckoutExpired{data}, nil
		}

	case EventChargeSucceeded, EventChargeRefunded:
		var raw rawCharge
		if err := json.Unmarshal(ev.Payload, &raw); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", ev.Type, err)
		}
		data := ChargeData{
			ChargeID:        raw.ID,
			PaymentIntentID: raw.PaymentIntent,
			ReceiptURL:      raw.ReceiptURL,
			AmountRefunded:  raw.AmountRefunded,
		}
		if ev.Type == EventChargeSucceeded {
			return ChargeSucceeded{data}, nil
		}
		return ChargeRefunded{data}, nil

	case EventPaymentIntentFailed:
		var raw rawPaymentIntent
		if err := json.Unmarshal(ev.Payload, &raw); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", ev.Type, err)
		}
		data := PaymentIntentData{PaymentIntentID: raw.ID}
		if raw.LastPaymentError != nil {
			data.FailureMessage = raw.LastPaymentError.Message
		}
		return PaymentIntentFailed{data}, nil

	default:
		return Unhandled{EventType: ev.Type}, nil
	}
}
