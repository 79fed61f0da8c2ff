package payment

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/valetdesk/ValetDesk/app/models"
	"github.com/valetdesk/ValetDesk/internal/pkg/apperrors"
)

// Processor drives the payment state machine from verified gateway events.
//
// Two idempotency guards run before any mutation: the processed-events
// ledger (unique provider event id) catches any duplicate delivery, and the
// payment row's last_event_id equality check catches replays of the most
// recent event. Every status write is a guarded conditional update, so a
// late or repeated event can never move a terminal payment backward.
type Processor struct {
	repo    Repository
	gateway Gateway
}

// NewProcessor creates a webhook processor from injected collaborators.
func NewProcessor(repo Repository, gateway Gateway) *Processor {
	return &Processor{repo: repo, gateway: gateway}
}

// NewProcessorFromDB creates a webhook processor from a GORM DB handle.
func NewProcessorFromDB(db *gorm.DB, gateway Gateway) *Processor {
	return NewProcessor(NewRepository(db), gateway)
}

// Process applies one verified gateway event. It returns an error only for
// conditions that may succeed on redelivery (infrastructure failures);
// everything else is acknowledged so the gateway stops retrying.
func (p *Processor) Process(ctx context.Context, ev *Event) error {
	created, stored, err := p.repo.RecordWebhookEvent(&models.PaymentWebhookEvent{
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		PayloadJSON:     string(ev.Payload),
		SignatureValid:  true,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "webhook ledger insert failed", err)
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		log.Printf("webhook: duplicate delivery of event %s (%s), ignoring", ev.ID, ev.Type)
		return nil
	}

	variant, err := ParseEvent(ev)
	if err != nil {
		// A malformed payload will not improve on redelivery.
		_ = p.repo.MarkWebhookProcessed(stored.ID, err.Error())
		log.Printf("webhook: discarding malformed event %s: %v", ev.ID, err)
		return nil
	}

	handleErr := p.dispatch(ctx, ev.ID, variant)
	processingError := ""
	if handleErr != nil {
		processingError = handleErr.Error()
	}
	_ = p.repo.MarkWebhookProcessed(stored.ID, processingError)

	if handleErr != nil && apperrors.Retryable(handleErr) {
		return handleErr
	}
	return nil
}

func (p *Processor) dispatch(ctx context.Context, eventID string, variant WebhookEvent) error {
	switch v := variant.(type) {
	case CheckoutCompleted:
		return p.handleCheckoutSucceeded(ctx, eventID, v.CheckoutSessionData)
	case CheckoutAsyncPaymentSucceeded:
		// Async settlement is a success, not a failure.
		return p.handleCheckoutSucceeded(ctx, eventID, v.CheckoutSessionData)
	case CheckoutAsyncPaymentFailed:
		return p.handleCheckoutTerminal(eventID, v.CheckoutSessionData, models.PaymentStatusFailed, "Async payment failed")
	case CheckoutExpired:
		return p.handleCheckoutTerminal(eventID, v.CheckoutSessionData, models.PaymentStatusCanceled, "Session expired")
	case ChargeSucceeded:
		return p.handleChargeSucceeded(v.ChargeData)
	case ChargeRefunded:
		return p.handleChargeRefunded(eventID, v.ChargeData)
	case PaymentIntentFailed:
		return p.handlePaymentIntentFailed(eventID, v.PaymentIntentData)
	case Unhandled:
		log.Printf("webhook: ignoring unhandled event type %s", v.EventType)
		return nil
	default:
		return nil
	}
}

// resolveByUUID maps session metadata to the local payment. A missing or
// unresolvable payment id yields (nil, nil): the gateway must never see a
// retryable failure for a condition that will never resolve.
func (p *Processor) resolveByUUID(paymentUUID string) (*models.Payment, error) {
	if paymentUUID == "" {
		log.Printf("webhook: event without payment id metadata, ignoring")
		return nil, nil
	}
	pay, err := p.repo.GetPaymentByUUID(paymentUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("webhook: no payment for id %s, ignoring", paymentUUID)
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "payment lookup failed", err)
	}
	return pay, nil
}

func (p *Processor) resolveByIntent(intentID string) (*models.Payment, error) {
	if intentID == "" {
		return nil, nil
	}
	pay, err := p.repo.GetPaymentByProviderIntent(intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("webhook: no payment for intent %s, ignoring", intentID)
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "payment lookup failed", err)
	}
	return pay, nil
}

func (p *Processor) handleCheckoutSucceeded(ctx context.Context, eventID string, data CheckoutSessionData) error {
	pay, err := p.resolveByUUID(data.PaymentID)
	if err != nil || pay == nil {
		return err
	}
	if pay.LastEventID == eventID {
		return nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"last_event_id": eventID,
		"paid_at":       &now,
	}
	if data.PaymentIntentID != "" {
		updates["provider_payment_intent_id"] = data.PaymentIntentID
		// Best effort: the receipt URL also arrives via charge.succeeded.
		if details, err := p.gateway.RetrievePaymentIntent(ctx, data.PaymentIntentID); err == nil && details.ReceiptURL != "" {
			updates["receipt_url"] = details.ReceiptURL
		}
	}

	moved, err := p.repo.TransitionStatus(pay.ID,
		[]string{models.PaymentStatusPending, models.PaymentStatusProcessing},
		models.PaymentStatusSucceeded, updates)
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "status transition failed", err)
	}
	if !moved {
		log.Printf("webhook: payment %s already settled, event %s is a no-op", pay.UUID, eventID)
	}
	return nil
}

func (p *Processor) handleCheckoutTerminal(eventID string, data CheckoutSessionData, status, note string) error {
	pay, err := p.resolveByUUID(data.PaymentID)
	if err != nil || pay == nil {
		return err
	}
	if pay.LastEventID == eventID {
		return nil
	}

	_, err = p.repo.TransitionStatus(pay.ID,
		[]string{models.PaymentStatusPending, models.PaymentStatusProcessing},
		status, map[string]interface{}{
			"last_event_id": eventID,
			"notes":         note,
		})
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "status transition failed", err)
	}
	return nil
}

// handleChargeSucceeded never changes status; it only backfills the receipt
// URL when the checkout event could not retrieve one.
func (p *Processor) handleChargeSucceeded(data ChargeData) error {
	pay, err := p.resolveByIntent(data.PaymentIntentID)
	if err != nil || pay == nil {
		return err
	}
	if pay.ReceiptURL != "" || data.ReceiptURL == "" {
		return nil
	}
	if err := p.repo.BackfillReceiptURL(pay.ID, data.ReceiptURL); err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "receipt backfill failed", err)
	}
	return nil
}

func (p *Processor) handleChargeRefunded(eventID string, data ChargeData) error {
	pay, err := p.resolveByIntent(data.PaymentIntentID)
	if err != nil || pay == nil {
		return err
	}
	if pay.LastEventID == eventID {
		return nil
	}

	status := models.PaymentStatusRefunded
	if data.AmountRefunded < pay.TotalAmount {
		status = models.PaymentStatusPartiallyRefunded
	}

	now := time.Now()
	_, err = p.repo.TransitionStatus(pay.ID,
		[]string{models.PaymentStatusSucceeded, models.PaymentStatusPartiallyRefunded},
		status, map[string]interface{}{
			"last_event_id": eventID,
			"refund_amount": data.AmountRefunded,
			"refunded_at":   &now,
		})
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "status transition failed", err)
	}
	return nil
}

func (p *Processor) handlePaymentIntentFailed(eventID string, data PaymentIntentData) error {
	pay, err := p.resolveByIntent(data.PaymentIntentID)
	if err != nil || pay == nil {
		return err
	}
	if pay.LastEventID == eventID {
		return nil
	}

	note := data.FailureMessage
	if note == "" {
		note = "Payment failed"
	}
	_, err = p.repo.TransitionStatus(pay.ID,
		[]string{models.PaymentStatusPending, models.PaymentStatusProcessing},
		models.PaymentStatusFailed, map[string]interface{}{
			"last_event_id": eventID,
			"notes":         note,
		})
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "status transition failed", err)
	}
	return nil
}
