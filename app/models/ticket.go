package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TicketStatusOpen      = "open"
	TicketStatusRequested = "requested"
	TicketStatusClosed    = "closed"
)

// Ticket represents a parked vehicle. The short code is printed on the stub
// handed to the guest; the token is the long opaque secret embedded in the
// QR link that authorizes guest access without a session.
type Ticket struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UUID            string    `gorm:"type:char(36);uniqueIndex;not null" json:"uuid"`
	ShortCode       string    `gorm:"type:varchar(12);not null;index" json:"short_code"`
	Token           string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	EventID         uint      `gorm:"not null;index" json:"event_id"`
	Status          string    `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	VehicleBrand    string    `gorm:"type:varchar(100);default:''" json:"vehicle_brand"`
	VehicleModel    string    `gorm:"type:varchar(100);default:''" json:"vehicle_model"`
	VehicleColor    string    `gorm:"type:varchar(50);default:''" json:"vehicle_color"`
	LicensePlate    string    `gorm:"type:varchar(20);default:''" json:"license_plate"`
	ParkingLocation string    `gorm:"type:varchar(100);default:''" json:"parking_location"`
	Notes           string    `gorm:"type:text" json:"notes"`
	ViewCount       int64     `gorm:"default:0" json:"view_count"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == "" {
		t.UUID = uuid.New().String()
	}
	return nil
}
