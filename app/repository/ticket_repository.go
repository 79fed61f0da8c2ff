package repository

import (
	"gorm.io/gorm"

	"github.com/valetdesk/ValetDesk/app/models"
)

// ticketRepository implements the TicketRepository interface
type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ticket repository instance
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

// Create creates a new ticket in the database
func (r *ticketRepository) Create(ticket *models.Ticket) error {
	return r.db.Create(ticket).Error
}

// GetByID retrieves a ticket by its ID
func (r *ticketRepository) GetByID(id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.First(&ticket, id).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetByUUID retrieves a ticket by its UUID
func (r *ticketRepository) GetByUUID(uuid string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.Where("uuid = ?", uuid).First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetByToken retrieves a ticket by its guest access token
func (r *ticketRepository) GetByToken(token string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.Where("token = ?", token).First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetByShortCode retrieves a ticket by the code printed on the stub. Short
// codes are only unique within an event.
func (r *ticketRepository) GetByShortCode(eventID uint, shortCode string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.Where("event_id = ? AND short_code = ?", eventID, shortCode).First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Update updates an existing ticket
func (r *ticketRepository) Update(ticket *models.Ticket) error {
	return r.db.Save(ticket).Error
}

// UpdateStatus updates only the status column
func (r *ticketRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Ticket{}).Where("id = ?", id).Update("status", status).Error
}

// ListByEvent retrieves tickets of an event with pagination
func (r *ticketRepository) ListByEvent(eventID uint, offset, limit int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.Where("event_id = ?", eventID).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}

// CountByEvent returns the number of tickets of an event
func (r *ticketRepository) CountByEvent(eventID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Ticket{}).Where("event_id = ?", eventID).Count(&count).Error
	return count, err
}
