package payment

import (
	"context"
	"testing"

	"github.com/valetdesk/ValetDesk/app/models"
	"github.com/valetdesk/ValetDesk/internal/pkg/apperrors"
)

func newTestService(repo *fakeRepo, gw *fakeGateway) *Service {
	return NewService(repo, gw, "https://valetdesk.test/")
}

func TestCreateAuthenticatedCheckout(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	repo.members[[2]uint{7, 1}] = true
	repo.users[7] = &models.User{Name: "Mika"}

	res, err := svc.CreateAuthenticatedCheckout(context.Background(), 7, "mika@valetdesk.test", CreateCheckoutInput{
		EventID:       1,
		Currency:      "EUR",
		ServiceAmount: 50, // below the floor, clamped up
		TipAmount:     0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SessionID != "cs_fake" || res.URL == "" {
		t.Fatalf("unexpected checkout result: %+v", res)
	}

	p := repo.payment(1)
	if p == nil {
		t.Fatalf("expected a stored payment row")
	}
	if p.Status != models.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", p.Status)
	}
	if p.ServiceAmount != MinServiceAmount {
		t.Fatalf("expected service amount clamped to %d, got %d", MinServiceAmount, p.ServiceAmount)
	}
	if p.ProviderSession != "cs_fake" || p.ProviderCust != "cus_fake" {
		t.Fatalf("provider ids not attached: %+v", p)
	}

	if gw.customerCalls != 1 {
		t.Fatalf("expected one customer call, got %d", gw.customerCalls)
	}
	if len(gw.sessionCalls) != 1 {
		t.Fatalf("expected one session call, got %d", len(gw.sessionCalls))
	}
	in := gw.sessionCalls[0]
	if in.Metadata[MetadataPaymentID] != p.UUID {
		t.Fatalf("session metadata must carry the payment id, got %q", in.Metadata[MetadataPaymentID])
	}
	if len(in.LineItems) != 1 {
		t.Fatalf("zero tip must not produce a line item: %+v", in.LineItems)
	}
	if in.Currency != "eur" {
		t.Fatalf("expected lowercased currency, got %q", in.Currency)
	}
}

func TestCreateAuthenticatedCheckout_TipLine(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	repo.members[[2]uint{7, 1}] = true

	_, err := svc.CreateAuthenticatedCheckout(context.Background(), 7, "mika@valetdesk.test", CreateCheckoutInput{
		EventID:       1,
		ServiceAmount: 1500,
		TipAmount:     300,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := gw.sessionCalls[0]
	if len(in.LineItems) != 2 {
		t.Fatalf("expected service and tip line items, got %d", len(in.LineItems))
	}
	if in.LineItems[1].Name != tipLineName || in.LineItems[1].Amount != 300 {
		t.Fatalf("unexpected tip line: %+v", in.LineItems[1])
	}
}

func TestCreateAuthenticatedCheckout_NonMember(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	_, err := svc.CreateAuthenticatedCheckout(context.Background(), 7, "mika@valetdesk.test", CreateCheckoutInput{
		EventID:       1,
		ServiceAmount: 1500,
	})
	if apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatalf("no payment row may exist for a rejected checkout")
	}
	if gw.customerCalls != 0 || len(gw.sessionCalls) != 0 {
		t.Fatalf("gateway must not be called for a rejected checkout")
	}
}

func TestCreateAuthenticatedCheckout_InvalidRequestReference(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	repo.members[[2]uint{7, 1}] = true
	badRequest := uint(99)

	_, err := svc.CreateAuthenticatedCheckout(context.Background(), 7, "mika@valetdesk.test", CreateCheckoutInput{
		EventID:       1,
		RequestID:     &badRequest,
		ServiceAmount: 1500,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.payment(1).RequestID != nil {
		t.Fatalf("unknown request reference must be stored as nil")
	}
}

func TestCreatePublicCheckout(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	repo.tickets["tok123"] = &models.Ticket{EventID: 4}
	repo.tickets["tok123"].ID = 11
	repo.latestRequest[11] = 33

	res, err := svc.CreatePublicCheckout(context.Background(), CreatePublicCheckoutInput{
		Token:         "tok123",
		ServiceAmount: 1500,
		TipAmount:     200,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.URL == "" {
		t.Fatalf("expected redirect url")
	}

	p := repo.payment(1)
	if p.ValetID != nil {
		t.Fatalf("guest payments carry no valet, got %v", *p.ValetID)
	}
	if p.RequestID == nil || *p.RequestID != 33 {
		t.Fatalf("expected payment attached to latest request, got %v", p.RequestID)
	}
	if p.EventID != 4 {
		t.Fatalf("expected event from ticket, got %d", p.EventID)
	}
	if gw.customerCalls != 0 {
		t.Fatalf("guest checkout must not create a gateway customer")
	}
}

func TestCreatePublicCheckout_UnknownToken(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	_, err := svc.CreatePublicCheckout(context.Background(), CreatePublicCheckoutInput{
		Token:         "nope",
		ServiceAmount: 1500,
	})
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatalf("no payment row may exist for an invalid token")
	}
	if len(gw.sessionCalls) != 0 {
		t.Fatalf("gateway must not be called for an invalid token")
	}
}

func TestRefund_Partial(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	p := seedPayment(repo, "pay-1", models.PaymentStatusSucceeded, 1500, 0)
	repo.payment(p.ID).ProviderIntent = "pi_1"

	ref, err := svc.Refund(context.Background(), RefundInput{
		PaymentUUID: "pay-1",
		Amount:      500,
		Reason:      "Duplicate",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Amount != 500 {
		t.Fatalf("expected refund of 500, got %d", ref.Amount)
	}

	got := repo.payment(p.ID)
	if got.Status != models.PaymentStatusPartiallyRefunded {
		t.Fatalf("expected partially_refunded, got %s", got.Status)
	}
	if got.RefundAmount != 500 || got.RefundReason != "duplicate" {
		t.Fatalf("unexpected refund fields: %+v", got)
	}
	if got.RefundedAt == nil {
		t.Fatalf("expected refunded_at set")
	}
	if len(gw.refundCalls) != 1 || gw.refundCalls[0].intentID != "pi_1" {
		t.Fatalf("unexpected gateway refund calls: %+v", gw.refundCalls)
	}
}

func TestRefund_FullByDefault(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	p := seedPayment(repo, "pay-1", models.PaymentStatusSucceeded, 1500, 200)
	repo.payment(p.ID).ProviderIntent = "pi_1"

	_, err := svc.Refund(context.Background(), RefundInput{PaymentUUID: "pay-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := repo.payment(p.ID)
	if got.Status != models.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got %s", got.Status)
	}
	if got.RefundAmount != 1700 {
		t.Fatalf("expected full amount 1700, got %d", got.RefundAmount)
	}
}

func TestRefund_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		status string
		intent string
	}{
		{name: "pending payment", status: models.PaymentStatusPending, intent: "pi_1"},
		{name: "already refunded", status: models.PaymentStatusRefunded, intent: "pi_1"},
		{name: "no gateway transaction", status: models.PaymentStatusSucceeded, intent: ""},
	}

	for _, tt := range tests {
		repo := newFakeRepo()
		gw := &fakeGateway{}
		svc := newTestService(repo, gw)

		p := seedPayment(repo, "pay-1", tt.status, 1500, 0)
		repo.payment(p.ID).ProviderIntent = tt.intent

		_, err := svc.Refund(context.Background(), RefundInput{PaymentUUID: "pay-1", Amount: 100})
		if apperrors.KindOf(err) != apperrors.KindInvalidOperation {
			t.Fatalf("%s: expected invalid operation, got %v", tt.name, err)
		}
		if len(gw.refundCalls) != 0 {
			t.Fatalf("%s: gateway must not be called", tt.name)
		}
		if got := repo.payment(p.ID); got.Status != tt.status {
			t.Fatalf("%s: status changed to %s", tt.name, got.Status)
		}
	}
}

func TestRefund_UnknownPayment(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeGateway{})

	_, err := svc.Refund(context.Background(), RefundInput{PaymentUUID: "missing"})
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
