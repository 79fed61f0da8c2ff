package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/valetdesk/ValetDesk/app/models"
)

// eventRepository implements the EventRepository interface
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository instance
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Create creates a new event in the database
func (r *eventRepository) Create(event *models.Event) error {
	return r.db.Create(event).Error
}

// GetByID retrieves an event by its ID
func (r *eventRepository) GetByID(id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetDefault returns the oldest event, used when a ticket is created
// without an explicit event reference.
func (r *eventRepository) GetDefault() (*models.Event, error) {
	var event models.Event
	err := r.db.Order("id ASC").First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetAll retrieves all events
func (r *eventRepository) GetAll() ([]models.Event, error) {
	var events []models.Event
	err := r.db.Order("created_at DESC").Find(&events).Error
	return events, err
}

// Update updates an existing event
func (r *eventRepository) Update(event *models.Event) error {
	return r.db.Save(event).Error
}

// AddMember staffs a user on an event. Adding an existing member is a no-op.
func (r *eventRepository) AddMember(userID, eventID uint) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserEvent{UserID: userID, EventID: eventID}).Error
}

// RemoveMember removes a user from an event
func (r *eventRepository) RemoveMember(userID, eventID uint) error {
	return r.db.Where("user_id = ? AND event_id = ?", userID, eventID).
		Delete(&models.UserEvent{}).Error
}

// IsMember reports whether the user is staffed on the event
func (r *eventRepository) IsMember(userID, eventID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserEvent{}).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Count(&count).Error
	return count > 0, err
}

// MemberIDs returns the ids of all users staffed on the event
func (r *eventRepository) MemberIDs(eventID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.UserEvent{}).
		Where("event_id = ?", eventID).
		Pluck("user_id", &ids).Error
	return ids, err
}
