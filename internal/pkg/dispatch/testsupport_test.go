package dispatch

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/valetdesk/ValetDesk/app/models"
)

// fakeRepo is an in-memory Repository mirroring the GORM guard semantics.
type fakeRepo struct {
	nextID   uint
	requests map[uint]*models.Request
	tickets  map[uint]*models.Ticket

	// valets eligible per event, and the events each user belongs to
	eligible map[uint][]uint
	userEv   map[uint][]uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		requests: make(map[uint]*models.Request),
		tickets:  make(map[uint]*models.Ticket),
		eligible: make(map[uint][]uint),
		userEv:   make(map[uint][]uint),
	}
}

func (f *fakeRepo) addTicket(id, eventID uint, token string) *models.Ticket {
	t := &models.Ticket{EventID: eventID, Token: token, Status: models.TicketStatusOpen}
	t.ID = id
	f.tickets[id] = t
	return t
}

func (f *fakeRepo) EligibleValetIDs(eventID uint) ([]uint, error) {
	ids := append([]uint(nil), f.eligible[eventID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeRepo) CountUnhandledByValet(valetIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64)
	for _, r := range f.requests {
		if r.HandledAt != nil || r.AssignedValetID == nil {
			continue
		}
		for _, id := range valetIDs {
			if *r.AssignedValetID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (f *fakeRepo) CreateRequest(r *models.Request) error {
	f.nextID++
	r.ID = f.nextID
	r.CreatedAt = time.Now()
	cp := *r
	f.requests[r.ID] = &cp
	return nil
}

func (f *fakeRepo) GetRequestByID(id uint) (*models.Request, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) MarkHandled(requestID uint, at time.Time) (bool, error) {
	r, ok := f.requests[requestID]
	if !ok || r.HandledAt != nil {
		return false, nil
	}
	r.HandledAt = &at
	return true, nil
}

func (f *fakeRepo) AssignValet(requestID, valetID uint) (bool, error) {
	r, ok := f.requests[requestID]
	if !ok || r.HandledAt != nil {
		return false, nil
	}
	r.AssignedValetID = &valetID
	return true, nil
}

func (f *fakeRepo) ListRequestsForEvents(eventIDs []uint) ([]models.Request, error) {
	var out []models.Request
	for _, r := range f.requests {
		t, ok := f.tickets[r.TicketID]
		if !ok {
			continue
		}
		for _, ev := range eventIDs {
			if t.EventID == ev {
				out = append(out, *r)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) ListAllRequests() ([]models.Request, error) {
	var out []models.Request
	for _, r := range f.requests {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) GetTicketByID(id uint) (*models.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRepo) GetTicketByToken(token string) (*models.Ticket, error) {
	for _, t := range f.tickets {
		if t.Token == token && token != "" {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) SetTicketStatus(ticketID uint, status string) error {
	t, ok := f.tickets[ticketID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeRepo) EventIDsForUser(userID uint) ([]uint, error) {
	return append([]uint(nil), f.userEv[userID]...), nil
}
