package payment

import (
	"context"
	"time"
)

// LineItem is one priced line of a checkout session. Zero-amount lines are
// never sent to the gateway.
type LineItem struct {
	Name     string
	Amount   int64
	Metadata map[string]string
}

// CheckoutSessionInput carries everything the gateway needs to host a
// time-bounded checkout page.
type CheckoutSessionInput struct {
	CustomerID string
	Currency   string
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
	ExpiresAt  time.Time
}

// CheckoutSession is the gateway-hosted session the payer is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// Refund is the gateway's view of an issued refund.
type Refund struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
	Reason   string
}

// PaymentIntentDetails holds the subset of intent data the processor needs.
type PaymentIntentDetails struct {
	ID            string
	ReceiptURL    string
	PaymentMethod string
}

// Event is a signature-verified gateway notification. Payload is the raw
// JSON of the event object, parsed by the processor into a typed variant.
type Event struct {
	ID      string
	Type    string
	Payload []byte
}

// Gateway abstracts the payment provider. Components take it as a
// constructor argument so tests can inject fakes.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error)
	VerifyWebhookSignature(payload []byte, signatureHeader string) (*Event, error)
	CreateRefund(ctx context.Context, paymentIntentID string, amount int64, reason string) (*Refund, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntentDetails, error)
}
