package market

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/account"
)

// EventKind names an event type.
type EventKind string

const (
	KindOfferCreated     EventKind = "OfferCreated"
	KindOfferCancelled   EventKind = "OfferCancelled"
	KindOfferBought      EventKind = "OfferBought"
	KindOfferExpired     EventKind = "OfferExpired"
	KindFeeRateChanged   EventKind = "FeeRateChanged"
	KindRecipientChanged EventKind = "RecipientChanged"
)

// Event is a domain event emitted after a state change is committed.
type Event interface {
	Kind() EventKind

	// OfferRef returns the offer the event concerns, if any.
	OfferRef() (id uint64, ok bool)
}

type OfferCreatedEvent struct {
	ID            uint64          `json:"id"`
	Seller        account.Address `json:"seller"`
	TokenContract account.Address `json:"token_contract"`
	TokenID       *big.Int        `json:"token_id"`
	Amount        *big.Int        `json:"amount"`
	Deadline      time.Time       `json:"deadline"`
	Price         *big.Int        `json:"price"`
}

type OfferCancelledEvent struct {
	ID     uint64          `json:"id"`
	Seller account.Address `json:"seller"`
}

// OfferBoughtEvent records a completed sale. PaidAmount is the required
// payment in base units of Asset, excluding any refunded overpayment.
type OfferBoughtEvent struct {
	ID         uint64          `json:"id"`
	Buyer      account.Address `json:"buyer"`
	Asset      string          `json:"asset"`
	PaidAmount *big.Int        `json:"paid_amount"`
}

// OfferExpiredEvent records the lazy ACTIVE -> EXPIRED transition.
type OfferExpiredEvent struct {
	ID uint64 `json:"id"`
}

type FeeRateChangedEvent struct {
	Old uint32 `json:"old"`
	New uint32 `json:"new"`
}

type RecipientChangedEvent struct {
	Old account.Address `json:"old"`
	New account.Address `json:"new"`
}

func (OfferCreatedEvent) Kind() EventKind     { return KindOfferCreated }
func (OfferCancelledEvent) Kind() EventKind   { return KindOfferCancelled }
func (OfferBoughtEvent) Kind() EventKind      { return KindOfferBought }
func (OfferExpiredEvent) Kind() EventKind     { return KindOfferExpired }
func (FeeRateChangedEvent) Kind() EventKind   { return KindFeeRateChanged }
func (RecipientChangedEvent) Kind() EventKind { return KindRecipientChanged }

func (e OfferCreatedEvent) OfferRef() (uint64, bool)   { return e.ID, true }
func (e OfferCancelledEvent) OfferRef() (uint64, bool) { return e.ID, true }
func (e OfferBoughtEvent) OfferRef() (uint64, bool)    { return e.ID, true }
func (e OfferExpiredEvent) OfferRef() (uint64, bool)   { return e.ID, true }
func (FeeRateChangedEvent) OfferRef() (uint64, bool)   { return 0, false }
func (RecipientChangedEvent) OfferRef() (uint64, bool) { return 0, false }

// EventSink receives committed events.
type EventSink interface {
	Emit(ctx context.Context, ev Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, ev Event) error

func (f EventSinkFunc) Emit(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// MultiSink fans an event out to every sink, joining their errors.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder is an EventSink keeping every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
