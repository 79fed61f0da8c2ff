package models

import "time"

const (
	RequestTypePickup = "pickup"
	RequestTypeKeys   = "keys"
	RequestTypeOther  = "other"
)

// Request is a guest's service request against a ticket. AssignedValetID is
// set by the load balancer at intake and may be reassigned by an explicit
// take action; once HandledAt is set the request is immutable.
type Request struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	TicketID         uint       `gorm:"not null;index" json:"ticket_id"`
	Type             string     `gorm:"type:varchar(20);not null" json:"type" validate:"oneof=pickup keys other"`
	PickupETAMinutes *int       `gorm:"default:null" json:"pickup_eta_minutes,omitempty"`
	PickupAt         *time.Time `gorm:"type:timestamp;default:null" json:"pickup_at,omitempty"`
	Comment          string     `gorm:"type:text" json:"comment"`
	AssignedValetID  *uint      `gorm:"default:null;index" json:"assigned_valet_id,omitempty"`
	HandledAt        *time.Time `gorm:"type:timestamp;default:null;index" json:"handled_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Ticket *Ticket `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
}

// IsHandled reports whether the request has been completed.
func (r *Request) IsHandled() bool {
	return r.HandledAt != nil
}
