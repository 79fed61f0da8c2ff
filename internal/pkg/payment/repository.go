package payment

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/valetdesk/ValetDesk/app/models"
)

// Repository provides DB operations used by the payment service and the
// webhook processor.
type Repository interface {
	CreatePayment(p *models.Payment) error
	GetPaymentByUUID(uuid string) (*models.Payment, error)
	GetPaymentByProviderIntent(intentID string) (*models.Payment, error)
	AttachProviderIDs(paymentID uint, sessionID, customerID string) error
	BackfillReceiptURL(paymentID uint, receiptURL string) error
	TransitionStatus(paymentID uint, from []string, to string, updates map[string]interface{}) (bool, error)

	RecordWebhookEvent(ev *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error

	IsEventMember(userID, eventID uint) (bool, error)
	RequestExists(requestID uint) (bool, error)
	LatestRequestIDForTicket(ticketID uint) (*uint, error)
	GetTicketByToken(token string) (*models.Ticket, error)
	GetUserByID(userID uint) (*models.User, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreatePayment(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *gormRepository) GetPaymentByUUID(uuid string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("uuid = ?", uuid).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPaymentByProviderIntent(intentID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("provider_payment_intent_id = ?", intentID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) AttachProviderIDs(paymentID uint, sessionID, customerID string) error {
	updates := map[string]interface{}{
		"provider_session_id": sessionID,
	}
	if customerID != "" {
		updates["provider_customer_id"] = customerID
	}
	return r.db.Model(&models.Payment{}).Where("id = ?", paymentID).Updates(updates).Error
}

func (r *gormRepository) BackfillReceiptURL(paymentID uint, receiptURL string) error {
	return r.db.Model(&models.Payment{}).
		Where("id = ? AND receipt_url = ''", paymentID).
		Update("receipt_url", receiptURL).Error
}

// TransitionStatus performs a single guarded conditional update: the row is
// moved to the target status only while its current status is in `from`.
// Returns false when the guard did not match, which keeps terminal states
// from regressing under out-of-order delivery.
func (r *gormRepository) TransitionStatus(paymentID uint, from []string, to string, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	tx := r.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", paymentID, from).
		Updates(values)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// RecordWebhookEvent inserts the ledger row if the provider event id is new.
// Returns created=false for duplicate deliveries.
func (r *gormRepository) RecordWebhookEvent(ev *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(ev)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("provider_event_id = ?", ev.ProviderEventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) IsEventMember(userID, eventID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserEvent{}).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) RequestExists(requestID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Request{}).Where("id = ?", requestID).Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) LatestRequestIDForTicket(ticketID uint) (*uint, error) {
	var req models.Request
	err := r.db.Where("ticket_id = ?", ticketID).
		Order("created_at DESC").
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	id := req.ID
	return &id, nil
}

func (r *gormRepository) GetTicketByToken(token string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.Where("token = ?", token).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *gormRepository) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
