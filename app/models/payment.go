package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment statuses. Transitions are monotonic: a terminal status never
// moves back to pending.
const (
	PaymentStatusPending           = "pending"
	PaymentStatusProcessing        = "processing"
	PaymentStatusSucceeded         = "succeeded"
	PaymentStatusFailed            = "failed"
	PaymentStatusCanceled          = "canceled"
	PaymentStatusRefunded          = "refunded"
	PaymentStatusPartiallyRefunded = "partially_refunded"
)

// Payment is one record per checkout attempt. Amounts are in currency minor
// units (cents). TotalAmount is always ServiceAmount + TipAmount and is
// recomputed on every save; it is never written independently. Rows are
// never physically deleted.
type Payment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UUID            string     `gorm:"type:char(36);uniqueIndex;not null" json:"uuid"`
	RequestID       *uint      `gorm:"default:null;index" json:"request_id,omitempty"`
	EventID         uint       `gorm:"not null;index" json:"event_id"`
	ValetID         *uint      `gorm:"default:null;index" json:"valet_id,omitempty"`
	Currency        string     `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`
	ServiceAmount   int64      `gorm:"not null" json:"service_amount"`
	TipAmount       int64      `gorm:"not null;default:0" json:"tip_amount"`
	TotalAmount     int64      `gorm:"not null" json:"total_amount"`
	Status          string     `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	ProviderSession string     `gorm:"column:provider_session_id;type:varchar(191);default:'';index" json:"provider_session_id"`
	ProviderCust    string     `gorm:"column:provider_customer_id;type:varchar(191);default:''" json:"provider_customer_id"`
	ProviderIntent  string     `gorm:"column:provider_payment_intent_id;type:varchar(191);default:'';index" json:"provider_payment_intent_id"`
	ReceiptURL      string     `gorm:"type:varchar(500);default:''" json:"receipt_url"`
	LastEventID     string     `gorm:"column:last_event_id;type:varchar(191);default:'';index" json:"last_event_id"`
	RefundAmount    int64      `gorm:"not null;default:0" json:"refund_amount"`
	RefundReason    string     `gorm:"type:varchar(100);default:''" json:"refund_reason"`
	Notes           string     `gorm:"type:text" json:"notes"`
	MetadataJSON    string     `gorm:"type:longtext" json:"metadata_json"`
	PaidAt          *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	RefundedAt      *time.Time `gorm:"type:timestamp;default:null" json:"refunded_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.New().String()
	}
	return nil
}

// BeforeSave keeps the total derived from its parts.
func (p *Payment) BeforeSave(tx *gorm.DB) error {
	p.TotalAmount = p.ServiceAmount + p.TipAmount
	return nil
}

// IsTerminal reports whether the status admits no further webhook-driven
// transition other than a refund on succeeded.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCanceled,
		PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

// PaymentWebhookEvent is the processed-events ledger for gateway webhooks.
// The unique provider event id makes duplicate delivery detection a single
// conditional insert, independent of how many events arrived in between.
type PaymentWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
