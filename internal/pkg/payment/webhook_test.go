package payment

import (
	"context"
	"fmt"
	"testing"

	"github.com/valetdesk/ValetDesk/app/models"
)

func seedPayment(f *fakeRepo, uuid, status string, service, tip int64) *models.Payment {
	p := &models.Payment{
		UUID:          uuid,
		EventID:       1,
		Currency:      "eur",
		ServiceAmount: service,
		TipAmount:     tip,
		Status:        status,
	}
	if err := f.CreatePayment(p); err != nil {
		panic(err)
	}
	return f.payment(p.ID)
}

func checkoutEvent(eventID, eventType, paymentUUID, intentID string) *Event {
	payload := fmt.Sprintf(`{"id": "cs_1", "payment_intent": %q, "customer": "cus_1", "metadata": {"payment_id": %q}}`, intentID, paymentUUID)
	return &Event{ID: eventID, Type: eventType, Payload: []byte(payload)}
}

func chargeEvent(eventID, eventType, intentID, receiptURL string, amountRefunded int64) *Event {
	payload := fmt.Sprintf(`{"id": "ch_1", "payment_intent": %q, "receipt_url": %q, "amount_refunded": %d}`, intentID, receiptURL, amountRefunded)
	return &Event{ID: eventID, Type: eventType, Payload: []byte(payload)}
}

func TestProcess_CheckoutCompleted(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{receiptURL: "https://gateway.test/receipt/1"}
	proc := NewProcessor(repo, gw)

	p := seedPayment(repo, "pay-1", models.PaymentStatusPending, 1500, 0)

	err := proc.Process(context.Background(), checkoutEvent("evt_1", EventCheckoutCompleted, "pay-1", "pi_1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := repo.payment(p.ID)
	if got.Status != models.PaymentStatusSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}
	if got.PaidAt == nil {
		t.Fatalf("expected paid_at to be set")
	}
	if got.ProviderIntent != "pi_1" {
		t.Fatalf("expected intent id attached, got %q", got.ProviderIntent)
	}
	if got.ReceiptURL != "https://gateway.test/receipt/1" {
		t.Fatalf("expected receipt url, got %q", got.ReceiptURL)
	}
	if got.LastEventID != "evt_1" {
		t.Fatalf("expected last event id evt_1, got %q", got.LastEventID)
	}
	if got.TotalAmount != 1500 {
		t.Fatalf("total amount changed: %d", got.TotalAmount)
	}
}

func TestProcess_DuplicateDelivery(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	proc := NewProcessor(repo, gw)

	p := seedPayment(repo, "pay-1", models.PaymentStatusPending, 1500, 200)
	ev := checkoutEvent("evt_1", EventCheckoutCompleted, "pay-1", "pi_1")

	if err := proc.Process(context.Background(), ev); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	first := *repo.payment(p.ID)

	if err := proc.Process(context.Background(), ev); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	second := *repo.payment(p.ID)

	if first.Status != second.Status || first.RefundAmount != second.RefundAmount || first.LastEventID != second.LastEventID {
		t.Fatalf("replay changed state: first %+v, second %+v", first, second)
	}
}

func TestProcess_AsyncPaymentSucceededIsSuccess(t *testing.T) {
	repo := newFakeRepo()
	proc := NewProcessor(repo, &fakeGateway{})

	p := seedPayment(repo, "pay-1", models.PaymentStatusPending, 2000, 0)

	err := proc.Process(context.Background(), checkoutEvent("evt_1", EventCheckoutAsyncPaymentSucceeded, "pay-1", "pi_1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.payment(p.ID); got.Status != models.PaymentStatusSucceeded {
		t.Fatalf("async settlement must succeed, got %s", got.Status)
	}
}

func TestProcess_AsyncPaymentFailed(t *testing.T) {
	repo := newFakeRepo()
	proc := NewProcessor(repo, &fakeGateway{})

	p := seedPayment(repo, "pay-1", models.PaymentStatusPending, 2000, 0)

	err := proc.Process(context.Background(), checkoutEvent("evt_1", EventCheckoutAsyncPaymentFailed, "pay-1", "pi_1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := repo.payment(p.ID)
	if got.Status != models.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.Notes == "" {
		t.Fatalf("expected failure note")
	}
}

func TestProcess_SessionExpired(t *testing.T) {
	repo := newFakeRepo()
	proc := NewProcessor(repo, &fakeGateway{})

	p := seedPayment(repo, "pay-1", models.PaymentStatusPending, 2000, 0)

	err := proc.Process(context.Background(), checkoutEvent("evt_1", EventCheckoutExpired, "pay-1", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.payment(p.ID); got.Status != models.PaymentStatusCanceled {
		t.Fatalf("expected canceled, got %s", got.Status)
	}
}

func TestProcess_ChargeRefunded_FullAndPartial(t *testing.T) {
	tests := []struct {
		name       string
		refunded   int64
		wantStatus string
	}{
		{name: "full", refunded: 1500, wantStatus: models.PaymentStatusRefunded},
		{name: "partial", refunded: 500, wantStatus: models.PaymentStatusPartiallyRefunded},
	}

	for _, tt := range tests {
		repo := newFakeRepo()
		proc := NewProcessor(repo, &fakeGateway{})

		p := seedPayment(repo, "pay-1", models.PaymentStatusSucceeded, 1500, 0)
		repo.payment(p.ID).ProviderIntent = "pi_1"

		err := proc.Process(context.Background(), chargeEvent("evt_r", EventChargeRefunded, "pi_1", "", tt.refunded))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		got := repo.payment(p.ID)
		if got.Status != tt.wantStatus {
			t.Fatalf("%s: expected %s, got %s", tt.name, tt.wantStatus, got.Status)
		}
		if got.RefundAmount != tt.refunded {
			t.Fatalf("%s: expected refund amount %d, got %d", tt.name, tt.refunded, got.RefundAmount)
		}
		if got.RefundedAt == nil {
			t.Fatalf("%s: expected refunded_at set", tt.name)
		}
	}
}

func TestProcess_RefundedPaymentNeverRegresses(t *testing.T) {
	repo := newFakeRepo()
	proc := NewProcessor(repo, &fakeGateway{})

	p := seedPayment(repo, "pay-1", models.PaymentStatusRefunded, 1500, 0)
	repo.payment(p.ID).ProviderIntent = "pi_1"

	// A late success event must not un-terminate the refund.
	err := proc.Process(context.Background(), checkoutEvent("evt_late", EventCheckoutCompleted, "pay-1", "pi_1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.payment(p.ID); got.Status != models.PaymentStatusRefunded {
		t.Fatalf("refunded payment regressed to %s", got.Status)
	}
}

func TestProcess_UnresolvablePaymentIsAcknowledged(t *testing.T) {
	repo := newFakeRepo()
	proc := NewProcessor(repo, &fakeGateway{})

	// No payment row exists; the gateway must not see a retryable failure.
	err := proc.Process(context.Background(), checkoutEvent("evt_1", EventCheckoutCompleted, "missing-uuid", "pi_1"))
	if err != nil {
		t.Fatalf("expected ack for unresolvable payment, got %v", err)
	}

	// Missing metadata entirely is acknowledged too.
	err = proc.Process(context.Background(), &Event{
		ID:      "evt_2",
		Type:    EventCheckoutCompleted,
		Payload: []byte(`{"id": "cs_1"}`),
	})
	if err != nil {
		t.Fatalf("expected ack for missing metadata, got %v", err)
	}
}

func TestProcess_ChargeSucceededBackfillsReceiptOnly(t *testing.T) {
	repo := newFakeRepo()
	proc := NewProcessor(repo, &fakeGateway{})

	p := seedPayment(repo, "pay-1", models.PaymentStatusSucceeded, 1500, 0)
	repo.payment(p.ID).ProviderIntent = "pi_1"

	err := proc.Process(context.Background(), chargeEvent("evt_c", EventChargeSucceeded, "pi_1", "https://gateway.test/r/1", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := repo.payment(p.ID)
	if got.ReceiptURL != "https://gateway.test/r/1" {
		t.Fatalf("expected receipt backfill, got %q", got.ReceiptURL)
	}
	if got.Status != models.PaymentStatusSucceeded {
		t.Fatalf("charge.succeeded must not change status, got %s", got.Status)
	}

	// A second receipt never overwrites the first.
	err = proc.Process(context.Background(), chargeEvent("evt_c2", EventChargeSucceeded, "pi_1", "https://gateway.test/r/other", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.payment(p.ID); got.ReceiptURL != "https://gateway.test/r/1" {
		t.Fatalf("receipt url overwritten: %q", got.ReceiptURL)
	}
}

func TestProcess_PaymentIntentFailed(t *testing.T) {
	repo := newFakeRepo()
	proc := NewProcessor(repo, &fakeGateway{})

	p := seedPayment(repo, "pay-1", models.PaymentStatusPending, 1500, 0)
	repo.payment(p.ID).ProviderIntent = "pi_1"

	ev := &Event{
		ID:      "evt_f",
		Type:    EventPaymentIntentFailed,
		Payload: []byte(`{"id": "pi_1", "last_payment_error": {"message": "insufficient funds"}}`),
	}
	if err := proc.Process(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := repo.payment(p.ID)
	if got.Status != models.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.Notes != "insufficient funds" {
		t.Fatalf("expected gateway failure message, got %q", got.Notes)
	}
}

func TestProcess_UnhandledEventTypeIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	proc := NewProcessor(repo, &fakeGateway{})

	p := seedPayment(repo, "pay-1", models.PaymentStatusPending, 1500, 0)

	ev := &Event{ID: "evt_u", Type: "customer.created", Payload: []byte(`{}`)}
	if err := proc.Process(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.payment(p.ID); got.Status != models.PaymentStatusPending {
		t.Fatalf("unhandled event mutated payment: %s", got.Status)
	}
}
