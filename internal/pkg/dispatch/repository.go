package dispatch

import (
	"time"

	"gorm.io/gorm"

	"github.com/valetdesk/ValetDesk/app/models"
)

// Repository is the datastore surface of the request intake and the load
// balancer. Implemented by gormRepository; tests inject an in-memory fake.
type Repository interface {
	// EligibleValetIDs returns the active valets assigned to the event,
	// ordered by ascending user id.
	EligibleValetIDs(eventID uint) ([]uint, error)
	// CountUnhandledByValet counts currently unhandled requests per valet
	// across all events. Valets without assignments are absent from the map.
	CountUnhandledByValet(valetIDs []uint) (map[uint]int64, error)

	CreateRequest(r *models.Request) error
	GetRequestByID(id uint) (*models.Request, error)
	// MarkHandled stamps handled_at once. Returns false when the request was
	// already handled; the row is immutable from then on.
	MarkHandled(requestID uint, at time.Time) (bool, error)
	// AssignValet reassigns an unhandled request. Returns false when the
	// request was already handled.
	AssignValet(requestID, valetID uint) (bool, error)

	ListRequestsForEvents(eventIDs []uint) ([]models.Request, error)
	ListAllRequests() ([]models.Request, error)

	GetTicketByID(id uint) (*models.Ticket, error)
	GetTicketByToken(token string) (*models.Ticket, error)
	SetTicketStatus(ticketID uint, status string) error

	EventIDsForUser(userID uint) ([]uint, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates the GORM-backed repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) EligibleValetIDs(eventID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.User{}).
		Joins("JOIN user_events ON user_events.user_id = users.id").
		Where("user_events.event_id = ? AND users.status = ?", eventID, models.STATUS_ACTIVE).
		Order("users.id ASC").
		Pluck("users.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *gormRepository) CountUnhandledByValet(valetIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(valetIDs))
	if len(valetIDs) == 0 {
		return counts, nil
	}

	type row struct {
		ValetID uint
		N       int64
	}
	var rows []row
	err := r.db.Model(&models.Request{}).
		Select("assigned_valet_id AS valet_id, COUNT(*) AS n").
		Where("assigned_valet_id IN ? AND handled_at IS NULL", valetIDs).
		Group("assigned_valet_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rw := range rows {
		counts[rw.ValetID] = rw.N
	}
	return counts, nil
}

func (r *gormRepository) CreateRequest(req *models.Request) error {
	return r.db.Create(req).Error
}

func (r *gormRepository) GetRequestByID(id uint) (*models.Request, error) {
	var req models.Request
	if err := r.db.Preload("Ticket").First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *gormRepository) MarkHandled(requestID uint, at time.Time) (bool, error) {
	res := r.db.Model(&models.Request{}).
		Where("id = ? AND handled_at IS NULL", requestID).
		Update("handled_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) AssignValet(requestID, valetID uint) (bool, error) {
	res := r.db.Model(&models.Request{}).
		Where("id = ? AND handled_at IS NULL", requestID).
		Update("assigned_valet_id", valetID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) ListRequestsForEvents(eventIDs []uint) ([]models.Request, error) {
	var reqs []models.Request
	if len(eventIDs) == 0 {
		return reqs, nil
	}
	err := r.db.Preload("Ticket").
		Joins("JOIN tickets ON tickets.id = requests.ticket_id").
		Where("tickets.event_id IN ?", eventIDs).
		Order("requests.created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *gormRepository) ListAllRequests() ([]models.Request, error) {
	var reqs []models.Request
	err := r.db.Preload("Ticket").Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

func (r *gormRepository) GetTicketByID(id uint) (*models.Ticket, error) {
	var t models.Ticket
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) GetTicketByToken(token string) (*models.Ticket, error) {
	var t models.Ticket
	if err := r.db.Where("token = ?", token).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) SetTicketStatus(ticketID uint, status string) error {
	return r.db.Model(&models.Ticket{}).
		Where("id = ?", ticketID).
		Update("status", status).Error
}

func (r *gormRepository) EventIDsForUser(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.UserEvent{}).
		Where("user_id = ?", userID).
		Pluck("event_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
