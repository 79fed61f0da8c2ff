package dispatch

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/valetdesk/ValetDesk/app/models"
	"github.com/valetdesk/ValetDesk/internal/pkg/apperrors"
)

// SubmitInput describes a new service request against a ticket. Exactly one
// of TicketID or Token identifies the ticket: authenticated valets submit by
// id, guests submit by the ticket token from their QR link.
type SubmitInput struct {
	TicketID         uint
	Token            string
	Type             string
	PickupETAMinutes *int
	PickupAt         *time.Time
	Comment          string
}

// Service is the request intake: it resolves the ticket, runs the load
// balancer and persists the request.
type Service struct {
	repo     Repository
	balancer *Balancer
}

// NewService creates a request intake service from injected collaborators.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, balancer: NewBalancer(repo)}
}

// NewServiceFromDB creates a request intake service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Submit creates a request for the ticket, assigns the least-loaded eligible
// valet (or none) and moves the ticket to requested.
func (s *Service) Submit(in SubmitInput) (*models.Request, error) {
	ticket, err := s.resolveTicket(in)
	if err != nil {
		return nil, err
	}
	if !validRequestType(in.Type) {
		return nil, apperrors.New(apperrors.KindValidation, "unknown request type")
	}

	valetID, err := s.balancer.PickValet(ticket.EventID)
	if err != nil {
		return nil, err
	}

	req := &models.Request{
		TicketID:         ticket.ID,
		Type:             in.Type,
		PickupETAMinutes: in.PickupETAMinutes,
		PickupAt:         in.PickupAt,
		Comment:          in.Comment,
		AssignedValetID:  valetID,
	}
	if err := s.repo.CreateRequest(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "request insert failed", err)
	}

	if ticket.Status != models.TicketStatusRequested {
		if err := s.repo.SetTicketStatus(ticket.ID, models.TicketStatusRequested); err != nil {
			return nil, apperrors.Wrap(apperrors.KindStorage, "ticket update failed", err)
		}
	}

	req.Ticket = ticket
	return req, nil
}

// MarkHandled stamps the request as completed. Handled requests are
// immutable, so a second call is an invalid operation.
func (s *Service) MarkHandled(requestID uint) (*models.Request, error) {
	if _, err := s.getRequest(requestID); err != nil {
		return nil, err
	}

	done, err := s.repo.MarkHandled(requestID, time.Now())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "request update failed", err)
	}
	if !done {
		return nil, apperrors.New(apperrors.KindInvalidOperation, "request already handled")
	}
	return s.getRequest(requestID)
}

// Take lets a valet claim or reassign an unhandled request to themselves.
func (s *Service) Take(requestID, valetID uint) (*models.Request, error) {
	if _, err := s.getRequest(requestID); err != nil {
		return nil, err
	}

	ok, err := s.repo.AssignValet(requestID, valetID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "request update failed", err)
	}
	if !ok {
		return nil, apperrors.New(apperrors.KindInvalidOperation, "request already handled")
	}
	return s.getRequest(requestID)
}

// ListForUser returns requests newest first. Managers and admins see every
// request; valets see the requests of their assigned events.
func (s *Service) ListForUser(user *models.User) ([]models.Request, error) {
	if user.CanManage() {
		reqs, err := s.repo.ListAllRequests()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindStorage, "request listing failed", err)
		}
		return reqs, nil
	}

	eventIDs, err := s.repo.EventIDsForUser(user.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "membership lookup failed", err)
	}
	reqs, err := s.repo.ListRequestsForEvents(eventIDs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "request listing failed", err)
	}
	return reqs, nil
}

func (s *Service) resolveTicket(in SubmitInput) (*models.Ticket, error) {
	var (
		ticket *models.Ticket
		err    error
	)
	switch {
	case in.Token != "":
		ticket, err = s.repo.GetTicketByToken(in.Token)
	case in.TicketID != 0:
		ticket, err = s.repo.GetTicketByID(in.TicketID)
	default:
		return nil, apperrors.New(apperrors.KindValidation, "missing ticket reference")
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "ticket not found")
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "ticket lookup failed", err)
	}
	return ticket, nil
}

func (s *Service) getRequest(requestID uint) (*models.Request, error) {
	req, err := s.repo.GetRequestByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "request not found")
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "request lookup failed", err)
	}
	return req, nil
}

func validRequestType(t string) bool {
	switch t {
	case models.RequestTypePickup, models.RequestTypeKeys, models.RequestTypeOther:
		return true
	}
	return false
}
