package payment

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/valetdesk/ValetDesk/app/models"
)

// fakeRepo is an in-memory Repository with the same guard semantics as the
// GORM implementation.
type fakeRepo struct {
	nextID   uint
	payments map[uint]*models.Payment
	ledger   map[string]*models.PaymentWebhookEvent
	ledgerID uint

	members       map[[2]uint]bool
	requests      map[uint]bool
	latestRequest map[uint]uint
	tickets       map[string]*models.Ticket
	users         map[uint]*models.User

	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		payments:      make(map[uint]*models.Payment),
		ledger:        make(map[string]*models.PaymentWebhookEvent),
		members:       make(map[[2]uint]bool),
		requests:      make(map[uint]bool),
		latestRequest: make(map[uint]uint),
		tickets:       make(map[string]*models.Ticket),
		users:         make(map[uint]*models.User),
	}
}

func (f *fakeRepo) CreatePayment(p *models.Payment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	p.ID = f.nextID
	if p.UUID == "" {
		p.UUID = "pay-uuid-" + string(rune('0'+f.nextID))
	}
	p.TotalAmount = p.ServiceAmount + p.TipAmount
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakeRepo) GetPaymentByUUID(uuid string) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.UUID == uuid {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetPaymentByProviderIntent(intentID string) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.ProviderIntent == intentID && intentID != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) AttachProviderIDs(paymentID uint, sessionID, customerID string) error {
	p, ok := f.payments[paymentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.ProviderSession = sessionID
	if customerID != "" {
		p.ProviderCust = customerID
	}
	return nil
}

func (f *fakeRepo) BackfillReceiptURL(paymentID uint, receiptURL string) error {
	p, ok := f.payments[paymentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.ReceiptURL == "" {
		p.ReceiptURL = receiptURL
	}
	return nil
}

func (f *fakeRepo) TransitionStatus(paymentID uint, from []string, to string, updates map[string]interface{}) (bool, error) {
	p, ok := f.payments[paymentID]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range from {
		if p.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	p.Status = to
	for k, v := range updates {
		switch k {
		case "last_event_id":
			p.LastEventID = v.(string)
		case "paid_at":
			p.PaidAt = v.(*time.Time)
		case "refunded_at":
			p.RefundedAt = v.(*time.Time)
		case "refund_amount":
			p.RefundAmount = v.(int64)
		case "refund_reason":
			p.RefundReason = v.(string)
		case "notes":
			p.Notes = v.(string)
		case "provider_payment_intent_id":
			p.ProviderIntent = v.(string)
		case "receipt_url":
			p.ReceiptURL = v.(string)
		}
	}
	return true, nil
}

func (f *fakeRepo) RecordWebhookEvent(ev *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	if stored, ok := f.ledger[ev.ProviderEventID]; ok {
		cp := *stored
		return false, &cp, nil
	}
	f.ledgerID++
	ev.ID = f.ledgerID
	cp := *ev
	f.ledger[ev.ProviderEventID] = &cp
	out := cp
	return true, &out, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, ev := range f.ledger {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) IsEventMember(userID, eventID uint) (bool, error) {
	return f.members[[2]uint{userID, eventID}], nil
}

func (f *fakeRepo) RequestExists(requestID uint) (bool, error) {
	return f.requests[requestID], nil
}

func (f *fakeRepo) LatestRequestIDForTicket(ticketID uint) (*uint, error) {
	if id, ok := f.latestRequest[ticketID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (f *fakeRepo) GetTicketByToken(token string) (*models.Ticket, error) {
	if t, ok := f.tickets[token]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetUserByID(userID uint) (*models.User, error) {
	if u, ok := f.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// mustPayment returns the stored payment row by id, failing loudly if absent.
func (f *fakeRepo) payment(id uint) *models.Payment {
	return f.payments[id]
}

type refundCall struct {
	intentID string
	amount   int64
	reason   string
}

// fakeGateway records calls and returns canned responses.
type fakeGateway struct {
	customerCalls int
	sessionCalls  []CheckoutSessionInput
	refundCalls   []refundCall

	sessionErr error
	refundErr  error
	receiptURL string
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	g.customerCalls++
	return "cus_fake", nil
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	g.sessionCalls = append(g.sessionCalls, in)
	return &CheckoutSession{ID: "cs_fake", URL: "https://gateway.test/checkout/cs_fake"}, nil
}

func (g *fakeGateway) VerifyWebhookSignature(payload []byte, signatureHeader string) (*Event, error) {
	return nil, nil
}

func (g *fakeGateway) CreateRefund(ctx context.Context, paymentIntentID string, amount int64, reason string) (*Refund, error) {
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refundCalls = append(g.refundCalls, refundCall{intentID: paymentIntentID, amount: amount, reason: reason})
	return &Refund{ID: "re_fake", Amount: amount, Status: "succeeded", Reason: reason}, nil
}

func (g *fakeGateway) RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntentDetails, error) {
	return &PaymentIntentDetails{ID: id, ReceiptURL: g.receiptURL}, nil
}
