package models

import "time"

// Event is a venue engagement that valets are staffed on. Tickets, requests
// and payments all hang off an event.
type Event struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Location  string     `gorm:"type:varchar(255);default:''" json:"location"`
	StartsAt  *time.Time `gorm:"type:timestamp;default:null" json:"starts_at,omitempty"`
	EndsAt    *time.Time `gorm:"type:timestamp;default:null" json:"ends_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// UserEvent links a valet to an event they are staffed on. Membership
// determines both request assignment eligibility and who may start
// payments for the event.
type UserEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_user_events_user_event,unique,priority:1" json:"user_id"`
	EventID   uint      `gorm:"not null;index:ux_user_events_user_event,unique,priority:2;index" json:"event_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
