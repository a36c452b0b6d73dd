package market

import (
	"context"
	"fmt"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"go.uber.org/zap"
)

// purchase is the state a purchase attempt carries through its guards.
type purchase struct {
	id    uint64
	buyer account.Address
	offer Offer
}

// guard checks one purchase precondition and returns a Result on violation.
type guard func(ctx context.Context, p *purchase) error

// purchaseGuards returns the purchase preconditions in evaluation order.
func (e *Engine) purchaseGuards() []guard {
	return []guard{
		e.offerAvailable,
		e.tokensAvailable,
	}
}

// offerAvailable requires an ACTIVE offer. An ACTIVE offer past its deadline
// is moved to EXPIRED before the guard fails; that write persists even though
// the purchase fails.
func (e *Engine) offerAvailable(ctx context.Context, p *purchase) error {
	if p.offer.Status != StatusActive {
		return OfferNotAvailable
	}
	if !p.offer.ExpiredAt(e.now()) {
		return nil
	}

	expired := p.offer.Clone()
	expired.Status = StatusExpired
	if err := e.store.Put(ctx, p.id, expired); err != nil {
		return fmt.Errorf("expire offer %d: %w", p.id, err)
	}
	p.offer = expired

	e.logger.Info("offer expired", zap.Uint64("offer_id", p.id), zap.Time("deadline", expired.Deadline))
	e.emit(ctx, OfferExpiredEvent{ID: p.id})
	return OfferExpired
}

// tokensAvailable re-reads the seller's live token balance; custody is
// external and may have changed since listing.
func (e *Engine) tokensAvailable(ctx context.Context, p *purchase) error {
	o := p.offer
	held, err := e.gateway.MultiTokenBalance(ctx, o.TokenContract, o.Seller, o.TokenID)
	if err != nil {
		return fmt.Errorf("query seller balance: %w", err)
	}
	if held.Cmp(o.Amount) < 0 {
		return SellerTokensUnavailable
	}
	return nil
}
