package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrIDNotAllocated is returned by Put for ids beyond the next unused id.
var ErrIDNotAllocated = errors.New("offer id not allocated")

// OfferStore is the authoritative id -> Offer mapping. Ids start at 0 and
// grow by one per created offer.
type OfferStore interface {
	// NextID returns the next unused id.
	NextID(ctx context.Context) (uint64, error)

	// Get returns the offer for id, or the zero Offer if id was never
	// allocated.
	Get(ctx context.Context, id uint64) (Offer, error)

	// Put stores offer under id. Writing id == NextID allocates it; writing
	// any larger id fails with ErrIDNotAllocated.
	Put(ctx context.Context, id uint64, offer Offer) error
}

// OfferScanner is implemented by stores that can enumerate their offers.
type OfferScanner interface {
	// Scan calls fn for every offer with id >= from, in id order, until fn
	// returns false.
	Scan(ctx context.Context, from uint64, fn func(id uint64, o Offer) bool) error
}

// MemoryStore is an OfferStore held in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	offers []Offer
}

var (
	_ OfferStore   = (*MemoryStore)(nil)
	_ OfferScanner = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) NextID(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.offers)), nil
}

func (s *MemoryStore) Get(_ context.Context, id uint64) (Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= uint64(len(s.offers)) {
		return Offer{}, nil
	}
	return s.offers[id].Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, id uint64, offer Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := uint64(len(s.offers))
	switch {
	case id < next:
		s.offers[id] = offer.Clone()
	case id == next:
		s.offers = append(s.offers, offer.Clone())
	default:
		return fmt.Errorf("%w: %d (next %d)", ErrIDNotAllocated, id, next)
	}
	return nil
}

func (s *MemoryStore) Scan(_ context.Context, from uint64, fn func(id uint64, o Offer) bool) error {
	s.mu.RLock()
	var offers []Offer
	if from < uint64(len(s.offers)) {
		offers = make([]Offer, 0, uint64(len(s.offers))-from)
		for _, o := range s.offers[from:] {
			offers = append(offers, o.Clone())
		}
	}
	s.mu.RUnlock()

	for i, o := range offers {
		if !fn(from+uint64(i), o) {
			break
		}
	}
	return nil
}
