package dispatch

import (
	"log"

	"github.com/valetdesk/ValetDesk/internal/pkg/apperrors"
)

// Balancer picks the least-loaded valet for an incoming request. It is
// advisory: the count-then-assign sequence takes no lock, so concurrent
// submissions may transiently imbalance by the number of in-flight requests.
type Balancer struct {
	repo Repository
}

// NewBalancer creates a balancer over the given repository.
func NewBalancer(repo Repository) *Balancer {
	return &Balancer{repo: repo}
}

// PickValet returns the eligible valet with the fewest unhandled requests,
// or nil when the event has no eligible valets. Ties break toward the lowest
// valet id so repeated runs over the same state are deterministic.
func (b *Balancer) PickValet(eventID uint) (*uint, error) {
	eligible, err := b.repo.EligibleValetIDs(eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "valet lookup failed", err)
	}
	if len(eligible) == 0 {
		log.Printf("dispatch: no eligible valets for event %d, leaving request unassigned", eventID)
		return nil, nil
	}

	counts, err := b.repo.CountUnhandledByValet(eligible)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "load count failed", err)
	}

	return pickLeastLoaded(eligible, counts), nil
}

// pickLeastLoaded is the pure core of the balancer. eligible must be sorted
// ascending; valets absent from counts carry zero load.
func pickLeastLoaded(eligible []uint, counts map[uint]int64) *uint {
	if len(eligible) == 0 {
		return nil
	}
	best := eligible[0]
	bestLoad := counts[best]
	for _, id := range eligible[1:] {
		if load := counts[id]; load < bestLoad {
			best = id
			bestLoad = load
		}
	}
	return &best
}
