package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/valetdesk/ValetDesk/app/models"
	"github.com/valetdesk/ValetDesk/internal/pkg/apperrors"
)

// sessionExpiry bounds how long a gateway checkout page stays payable.
const sessionExpiry = 24 * time.Hour

const defaultCurrency = "eur"

const (
	serviceLineName = "Valet service"
	tipLineName     = "Tip"
)

// CreateCheckoutInput is the authenticated checkout request.
type CreateCheckoutInput struct {
	EventID       uint
	RequestID     *uint
	Currency      string
	ServiceAmount float64
	TipAmount     float64
	Notes         string
}

// CreatePublicCheckoutInput is the guest checkout request, authorized by
// ticket token instead of a session.
type CreatePublicCheckoutInput struct {
	Token         string
	ServiceAmount float64
	TipAmount     float64
	Notes         string
}

// RefundInput describes a refund request. Amount 0 means full refund.
type RefundInput struct {
	PaymentUUID string
	Amount      int64
	Reason      string
	Notes       string
}

// CheckoutResult is returned to the caller for the gateway redirect.
type CheckoutResult struct {
	PaymentUUID string `json:"payment_id"`
	SessionID   string `json:"session_id"`
	URL         string `json:"url"`
}

// Service drives the payment lifecycle: checkout session creation and
// refunds. Webhook-driven transitions live in Processor.
type Service struct {
	repo    Repository
	gateway Gateway
	baseURL string
}

// NewService creates a payment service from injected collaborators.
func NewService(repo Repository, gateway Gateway, baseURL string) *Service {
	return &Service{repo: repo, gateway: gateway, baseURL: strings.TrimRight(baseURL, "/")}
}

// NewServiceFromDB creates a payment service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, baseURL string) *Service {
	return NewService(NewRepository(db), gateway, baseURL)
}

// CreateAuthenticatedCheckout starts a checkout for a logged-in valet. The
// payer must be a member of the target event.
func (s *Service) CreateAuthenticatedCheckout(ctx context.Context, userID uint, userEmail string, in CreateCheckoutInput) (*CheckoutResult, error) {
	currency := normalizeCurrency(in.Currency)
	serviceAmount := ClampServiceAmount(in.ServiceAmount)
	tipAmount := ClampTipAmount(in.TipAmount)

	member, err := s.repo.IsEventMember(userID, in.EventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "membership lookup failed", err)
	}
	if !member {
		return nil, apperrors.New(apperrors.KindForbidden, "payer is not assigned to this event")
	}

	// Never trust an unvalidated foreign key from the client.
	var requestID *uint
	if in.RequestID != nil {
		exists, err := s.repo.RequestExists(*in.RequestID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindStorage, "request lookup failed", err)
		}
		if exists {
			requestID = in.RequestID
		}
	}

	customerName := ""
	if user, err := s.repo.GetUserByID(userID); err == nil {
		customerName = user.Name
	}
	customerID, err := s.gateway.CreateCustomer(ctx, userEmail, customerName, map[string]string{
		"user_id": strconv.FormatUint(uint64(userID), 10),
	})
	if err != nil {
		return nil, gatewayErr("customer creation failed", err)
	}

	p := &models.Payment{
		RequestID:     requestID,
		EventID:       in.EventID,
		ValetID:       &userID,
		Currency:      currency,
		ServiceAmount: serviceAmount,
		TipAmount:     tipAmount,
		Status:        models.PaymentStatusPending,
		Notes:         in.Notes,
		MetadataJSON:  `{"source":"private"}`,
	}

	successURL := s.baseURL + "/valet/payments?success=1"
	cancelURL := s.baseURL + "/valet/payments?canceled=1"

	return s.finishCheckout(ctx, p, customerID, successURL, cancelURL, map[string]string{
		"user_id": strconv.FormatUint(uint64(userID), 10),
	})
}

// CreatePublicCheckout starts a guest checkout authorized by a ticket token.
// The payment attaches to the ticket's most recent request when one exists.
func (s *Service) CreatePublicCheckout(ctx context.Context, in CreatePublicCheckoutInput) (*CheckoutResult, error) {
	ticket, err := s.repo.GetTicketByToken(in.Token)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.KindNotFound, "invalid ticket token")
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "ticket lookup failed", err)
	}

	requestID, err := s.repo.LatestRequestIDForTicket(ticket.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "request lookup failed", err)
	}

	p := &models.Payment{
		RequestID:     requestID,
		EventID:       ticket.EventID,
		ValetID:       nil, // guest payment, no valet attached
		Currency:      defaultCurrency,
		ServiceAmount: ClampServiceAmount(in.ServiceAmount),
		TipAmount:     ClampTipAmount(in.TipAmount),
		Status:        models.PaymentStatusPending,
		Notes:         in.Notes,
		MetadataJSON:  fmt.Sprintf(`{"source":"public","ticket_id":%d}`, ticket.ID),
	}

	successURL := s.baseURL + "/r/" + in.Token + "?success=1"
	cancelURL := s.baseURL + "/r/" + in.Token + "?canceled=1"

	return s.finishCheckout(ctx, p, "", successURL, cancelURL, map[string]string{
		"ticket_id": strconv.FormatUint(uint64(ticket.ID), 10),
	})
}

// finishCheckout inserts the pending payment row, then creates the gateway
// session and attaches provider ids. The insert happens BEFORE the gateway
// call so every gateway session has a durable local counterpart; a gateway
// failure after the insert leaves an orphaned pending row that records an
// amount never charged.
func (s *Service) finishCheckout(ctx context.Context, p *models.Payment, customerID, successURL, cancelURL string, extraMetadata map[string]string) (*CheckoutResult, error) {
	if err := s.repo.CreatePayment(p); err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "payment insert failed", err)
	}

	metadata := map[string]string{
		MetadataPaymentID: p.UUID,
		"event_id":        strconv.FormatUint(uint64(p.EventID), 10),
	}
	if p.RequestID != nil {
		metadata["request_id"] = strconv.FormatUint(uint64(*p.RequestID), 10)
	}
	for k, v := range extraMetadata {
		metadata[k] = v
	}

	lineItems := []LineItem{
		{
			Name:   serviceLineName,
			Amount: p.ServiceAmount,
			Metadata: map[string]string{
				"type":     "service",
				"event_id": strconv.FormatUint(uint64(p.EventID), 10),
			},
		},
	}
	// Zero-amount line items are never sent to the gateway.
	if p.TipAmount > 0 {
		lineItems = append(lineItems, LineItem{
			Name:     tipLineName,
			Amount:   p.TipAmount,
			Metadata: map[string]string{"type": "tip"},
		})
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerID: customerID,
		Currency:   p.Currency,
		LineItems:  lineItems,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Metadata:   metadata,
		ExpiresAt:  time.Now().Add(sessionExpiry),
	})
	if err != nil {
		return nil, gatewayErr("checkout session creation failed", err)
	}

	if err := s.repo.AttachProviderIDs(p.ID, sess.ID, customerID); err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "payment update failed", err)
	}

	return &CheckoutResult{
		PaymentUUID: p.UUID,
		SessionID:   sess.ID,
		URL:         sess.URL,
	}, nil
}

// Refund issues a full or partial refund for a succeeded payment. All
// preconditions are checked before any gateway call.
func (s *Service) Refund(ctx context.Context, in RefundInput) (*Refund, error) {
	p, err := s.repo.GetPaymentByUUID(in.PaymentUUID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.KindNotFound, "payment not found")
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "payment lookup failed", err)
	}

	if p.Status != models.PaymentStatusSucceeded {
		return nil, apperrors.New(apperrors.KindInvalidOperation, "can only refund succeeded payments")
	}
	if p.ProviderIntent == "" {
		return nil, apperrors.New(apperrors.KindInvalidOperation, "payment has no gateway transaction")
	}

	reason := normalizeRefundReason(in.Reason)
	ref, err := s.gateway.CreateRefund(ctx, p.ProviderIntent, in.Amount, reason)
	if err != nil {
		return nil, gatewayErr("refund creation failed", err)
	}

	refundAmount := in.Amount
	if refundAmount == 0 {
		refundAmount = p.TotalAmount
	}
	status := models.PaymentStatusRefunded
	if refundAmount < p.TotalAmount {
		status = models.PaymentStatusPartiallyRefunded
	}

	now := time.Now()
	ok, err := s.repo.TransitionStatus(p.ID, []string{models.PaymentStatusSucceeded}, status, map[string]interface{}{
		"refund_amount": refundAmount,
		"refund_reason": reason,
		"refunded_at":   &now,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "refund persist failed", err)
	}
	if !ok {
		// Lost a race against a concurrent refund; the gateway refund stands
		// and the webhook reconciliation will settle the row.
		return ref, apperrors.New(apperrors.KindInvalidOperation, "payment already left succeeded state")
	}

	return ref, nil
}

func normalizeCurrency(currency string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if len(c) != 3 {
		return defaultCurrency
	}
	return c
}

func normalizeRefundReason(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "duplicate":
		return "duplicate"
	case "fraudulent":
		return "fraudulent"
	default:
		return "requested_by_customer"
	}
}

func gatewayErr(msg string, err error) error {
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	return apperrors.Wrap(apperrors.KindGateway, msg, err)
}
