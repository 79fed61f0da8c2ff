package repository

import (
	"gorm.io/gorm"

	"github.com/valetdesk/ValetDesk/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// TicketRepository defines the interface for ticket-related database operations
type TicketRepository interface {
	Create(ticket *models.Ticket) error
	GetByID(id uint) (*models.Ticket, error)
	GetByUUID(uuid string) (*models.Ticket, error)
	GetByToken(token string) (*models.Ticket, error)
	GetByShortCode(eventID uint, shortCode string) (*models.Ticket, error)
	Update(ticket *models.Ticket) error
	UpdateStatus(id uint, status string) error
	ListByEvent(eventID uint, offset, limit int) ([]models.Ticket, error)
	CountByEvent(eventID uint) (int64, error)
}

// EventRepository defines the interface for event and membership operations
type EventRepository interface {
	Create(event *models.Event) error
	GetByID(id uint) (*models.Event, error)
	GetDefault() (*models.Event, error)
	GetAll() ([]models.Event, error)
	Update(event *models.Event) error
	AddMember(userID, eventID uint) error
	RemoveMember(userID, eventID uint) error
	IsMember(userID, eventID uint) (bool, error)
	MemberIDs(eventID uint) ([]uint, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User   UserRepository
	Ticket TicketRepository
	Event  EventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		Ticket: NewTicketRepository(db),
		Event:  NewEventRepository(db),
	}
}
