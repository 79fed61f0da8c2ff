package payment

import (
	"context"
	"strings"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/valetdesk/ValetDesk/internal/pkg/apperrors"
	"github.com/valetdesk/ValetDesk/internal/pkg/env"
)

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway creates a gateway client with explicit credentials.
func NewStripeGateway(apiKey, webhookSecret string) *StripeGateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeGateway{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// NewStripeGatewayFromEnv creates a gateway client from environment config.
func NewStripeGatewayFromEnv() *StripeGateway {
	return NewStripeGateway(
		strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
	)
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	cust, err := g.api.Customers.New(params)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindGateway, "stripe customer creation failed", err)
	}
	return cust.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.LineItems))
	for _, item := range in.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(in.Currency),
				UnitAmount: stripe.Int64(item.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:     stripe.String(item.Name),
					Metadata: item.Metadata,
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(in.SuccessURL),
		CancelURL:          stripe.String(in.CancelURL),
		PaymentMethodTypes: stripe.StringSlice([]string{"card", "link"}),
		InvoiceCreation: &stripe.CheckoutSessionInvoiceCreationParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if !in.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(in.ExpiresAt.Unix())
	}
	if in.CustomerID != "" {
		params.Customer = stripe.String(in.CustomerID)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGateway, "stripe checkout session creation failed", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) VerifyWebhookSignature(payload []byte, signatureHeader string) (*Event, error) {
	ev, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindSignature, "webhook signature verification failed", err)
	}
	return &Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Payload: ev.Data.Raw,
	}, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, paymentIntentID string, amount int64, reason string) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}
	if reason != "" {
		params.Reason = stripe.String(reason)
	}

	ref, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGateway, "stripe refund creation failed", err)
	}
	return &Refund{
		ID:       ref.ID,
		Amount:   ref.Amount,
		Currency: string(ref.Currency),
		Status:   string(ref.Status),
		Reason:   string(ref.Reason),
	}, nil
}

func (g *StripeGateway) RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntentDetails, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGateway, "stripe payment intent retrieval failed", err)
	}

	details := &PaymentIntentDetails{ID: pi.ID}
	if pi.LatestCharge != nil {
		details.ReceiptURL = pi.LatestCharge.ReceiptURL
		if pi.LatestCharge.PaymentMethodDetails != nil {
			details.PaymentMethod = string(pi.LatestCharge.PaymentMethodDetails.Type)
		}
	}
	return details, nil
}
