// Package market implements the offer state machine and the settlement engine
// of the marketplace.
package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/core/ledger"
	"github.com/LeJamon/goMarketd/internal/core/oracle"
	"go.uber.org/zap"
)

// Quoter converts unit-of-account prices into settlement-asset amounts.
type Quoter interface {
	RequiredPayment(ctx context.Context, asset string, price *big.Int) (*big.Int, error)
}

// Config is the engine's initial configuration.
type Config struct {
	// Owner may change the fee configuration.
	Owner account.Address

	// Escrow is the engine's own account: the spender of buyer allowances,
	// the approved operator of seller tokens and the transit account of
	// native payments.
	Escrow account.Address

	Fee FeeConfig

	// NativeAsset is the symbol of the native settlement asset.
	NativeAsset string

	// Tokens maps each allowlisted settlement token symbol to its contract.
	Tokens map[string]account.Address
}

// Validate checks that cfg can back an engine.
func (c Config) Validate() error {
	if c.Owner.IsZero() {
		return errors.New("market: owner is required")
	}
	if c.Escrow.IsZero() {
		return errors.New("market: escrow account is required")
	}
	if err := c.Fee.Validate(); err != nil {
		return fmt.Errorf("market: fee: %w", err)
	}
	if c.NativeAsset == "" {
		return errors.New("market: native asset symbol is required")
	}
	for symbol, contract := range c.Tokens {
		if symbol == "" || symbol == c.NativeAsset {
			return fmt.Errorf("market: invalid settlement token symbol %q", symbol)
		}
		if contract.IsZero() {
			return fmt.Errorf("market: settlement token %s has no contract", symbol)
		}
	}
	return nil
}

// CreateOfferRequest holds the listing parameters of CreateOffer.
type CreateOfferRequest struct {
	TokenContract account.Address
	TokenID       *big.Int
	Amount        *big.Int
	Deadline      time.Time
	Price         *big.Int
}

// Receipt describes a completed purchase.
type Receipt struct {
	OfferID     uint64
	Buyer       account.Address
	Asset       string
	Paid        *big.Int
	Fee         *big.Int
	SellerShare *big.Int
	Refund      *big.Int
}

// Engine runs the marketplace operations. Mutating operations are serialized
// by one lock held for the whole operation.
type Engine struct {
	mu      sync.RWMutex
	cfg     Config
	store   OfferStore
	gateway ledger.Gateway
	quoter  Quoter
	sink    EventSink
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger. A nil logger keeps the no-op default.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEventSink sets where committed events are delivered.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// NewEngine builds an engine over its collaborators.
func NewEngine(cfg Config, store OfferStore, gateway ledger.Gateway, quoter Quoter, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || gateway == nil || quoter == nil {
		return nil, errors.New("market: store, gateway and quoter are required")
	}

	tokens := make(map[string]account.Address, len(cfg.Tokens))
	for k, v := range cfg.Tokens {
		tokens[k] = v
	}
	cfg.Tokens = tokens

	e := &Engine{
		cfg:     cfg,
		store:   store,
		gateway: gateway,
		quoter:  quoter,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Owner returns the account allowed to change the fee configuration.
func (e *Engine) Owner() account.Address {
	return e.cfg.Owner
}

// Escrow returns the engine's own account.
func (e *Engine) Escrow() account.Address {
	return e.cfg.Escrow
}

// NativeAsset returns the native settlement asset symbol.
func (e *Engine) NativeAsset() string {
	return e.cfg.NativeAsset
}

// SettlementTokens returns the allowlisted token symbols, sorted.
func (e *Engine) SettlementTokens() []string {
	out := make([]string, 0, len(e.cfg.Tokens))
	for symbol := range e.cfg.Tokens {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// TokenContract returns the contract of an allowlisted settlement token.
func (e *Engine) TokenContract(symbol string) (account.Address, bool) {
	c, ok := e.cfg.Tokens[symbol]
	return c, ok
}

// FeeConfig returns the current fee configuration.
func (e *Engine) FeeConfig() FeeConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.Fee
}

// GetOffer returns the offer for id, or the zero Offer for ids that were
// never created. Errors only come from the store.
func (e *Engine) GetOffer(ctx context.Context, id uint64) (Offer, error) {
	return e.store.Get(ctx, id)
}

// CreateOffer lists req for sale by seller and returns the new offer id.
// Tokens stay with the seller until a purchase.
func (e *Engine) CreateOffer(ctx context.Context, seller account.Address, req CreateOfferRequest) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokenID := orZero(req.TokenID)
	price := orZero(req.Price)

	if req.TokenContract.IsZero() || tokenID.Sign() < 0 {
		return 0, e.reject("create", InvalidAsset, zap.Stringer("seller", seller))
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 || price.Sign() < 0 {
		return 0, e.reject("create", InvalidAmount, zap.Stringer("seller", seller))
	}

	held, err := e.gateway.MultiTokenBalance(ctx, req.TokenContract, seller, tokenID)
	if err != nil {
		return 0, fmt.Errorf("query seller balance: %w", err)
	}
	if held.Cmp(req.Amount) < 0 {
		return 0, e.reject("create", InsufficientBalance,
			zap.Stringer("seller", seller), zap.Stringer("held", held), zap.Stringer("amount", req.Amount))
	}

	if !req.Deadline.After(e.now()) {
		return 0, e.reject("create", InvalidDeadline, zap.Stringer("seller", seller), zap.Time("deadline", req.Deadline))
	}

	id, err := e.store.NextID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate offer id: %w", err)
	}
	offer := Offer{
		Seller:        seller,
		TokenContract: req.TokenContract,
		TokenID:       new(big.Int).Set(tokenID),
		Amount:        new(big.Int).Set(req.Amount),
		Deadline:      req.Deadline,
		Price:         new(big.Int).Set(price),
		Status:        StatusActive,
	}
	if err := e.store.Put(ctx, id, offer); err != nil {
		return 0, fmt.Errorf("store offer %d: %w", id, err)
	}

	e.logger.Info("offer created",
		zap.Uint64("offer_id", id),
		zap.Stringer("seller", seller),
		zap.Stringer("token_contract", offer.TokenContract),
		zap.Stringer("token_id", offer.TokenID),
		zap.Stringer("amount", offer.Amount),
		zap.Stringer("price", offer.Price),
		zap.Time("deadline", offer.Deadline))

	e.emit(ctx, OfferCreatedEvent{
		ID:            id,
		Seller:        seller,
		TokenContract: offer.TokenContract,
		TokenID:       cloneInt(offer.TokenID),
		Amount:        cloneInt(offer.Amount),
		Deadline:      offer.Deadline,
		Price:         cloneInt(offer.Price),
	})
	return id, nil
}

// CancelOffer withdraws an offer. Only its seller may cancel; unknown ids have
// the null seller and fail the same way.
func (e *Engine) CancelOffer(ctx context.Context, caller account.Address, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, err := e.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load offer %d: %w", id, err)
	}
	if caller.IsZero() || caller != offer.Seller {
		return e.reject("cancel", NotSeller, zap.Uint64("offer_id", id), zap.Stringer("caller", caller))
	}
	if !CanTransition(offer.Status, StatusCancelled) {
		return e.reject("cancel", OfferNotAvailable, zap.Uint64("offer_id", id), zap.Stringer("status", offer.Status))
	}

	offer.Status = StatusCancelled
	if err := e.store.Put(ctx, id, offer); err != nil {
		return fmt.Errorf("store offer %d: %w", id, err)
	}

	e.logger.Info("offer cancelled", zap.Uint64("offer_id", id), zap.Stringer("seller", caller))
	e.emit(ctx, OfferCancelledEvent{ID: id, Seller: caller})
	return nil
}

// BuyWithNativeAsset buys offer id paying with attached native units. Any
// excess over the required payment is refunded to the buyer.
func (e *Engine) BuyWithNativeAsset(ctx context.Context, buyer account.Address, id uint64, attached *big.Int) (*Receipt, error) {
	if attached == nil || attached.Sign() < 0 {
		return nil, e.reject("buy", InvalidAmount, zap.Uint64("offer_id", id))
	}
	return e.buy(ctx, buyer, id, nativeSettlement{symbol: e.cfg.NativeAsset, attached: attached})
}

// BuyWithSettlementToken buys offer id paying with an allowlisted token the
// buyer has approved the engine to spend.
func (e *Engine) BuyWithSettlementToken(ctx context.Context, buyer account.Address, symbol string, id uint64) (*Receipt, error) {
	contract, ok := e.cfg.Tokens[symbol]
	if !ok {
		return nil, e.reject("buy", UnsupportedAsset, zap.Uint64("offer_id", id), zap.String("asset", symbol))
	}
	return e.buy(ctx, buyer, id, tokenSettlement{symbol: symbol, contract: contract})
}

// Quote returns the amount of asset that buys offer id right now.
func (e *Engine) Quote(ctx context.Context, asset string, id uint64) (*big.Int, error) {
	if asset != e.cfg.NativeAsset {
		if _, ok := e.cfg.Tokens[asset]; !ok {
			return nil, UnsupportedAsset
		}
	}
	offer, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load offer %d: %w", id, err)
	}
	if offer.Status != StatusActive || offer.ExpiredAt(e.now()) {
		return nil, OfferNotAvailable
	}
	return e.requiredPayment(ctx, asset, offer.Price)
}

// SetFeeRate changes the fee rate, in percent.
func (e *Engine) SetFeeRate(ctx context.Context, caller account.Address, rate uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.cfg.Owner {
		return e.reject("set_fee_rate", NotOwner, zap.Stringer("caller", caller))
	}
	if rate > MaxFeeRate {
		return e.reject("set_fee_rate", InvalidFeeRate, zap.Uint32("rate", rate))
	}

	old := e.cfg.Fee.Rate
	e.cfg.Fee.Rate = rate
	e.logger.Info("fee rate changed", zap.Uint32("old", old), zap.Uint32("new", rate))
	e.emit(ctx, FeeRateChangedEvent{Old: old, New: rate})
	return nil
}

// SetRecipient changes the fee recipient.
func (e *Engine) SetRecipient(ctx context.Context, caller, recipient account.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.cfg.Owner {
		return e.reject("set_recipient", NotOwner, zap.Stringer("caller", caller))
	}
	if recipient.IsZero() {
		return e.reject("set_recipient", InvalidRecipient)
	}

	old := e.cfg.Fee.Recipient
	e.cfg.Fee.Recipient = recipient
	e.logger.Info("fee recipient changed", zap.Stringer("old", old), zap.Stringer("new", recipient))
	e.emit(ctx, RecipientChangedEvent{Old: old, New: recipient})
	return nil
}

// buy is the purchase routine shared by both settlement paths.
func (e *Engine) buy(ctx context.Context, buyer account.Address, id uint64, s settlement) (*Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load offer %d: %w", id, err)
	}
	p := &purchase{id: id, buyer: buyer, offer: offer}

	for _, g := range e.purchaseGuards() {
		if err := g(ctx, p); err != nil {
			if r, ok := ResultOf(err); ok {
				e.logger.Debug("purchase rejected",
					zap.Uint64("offer_id", id), zap.Stringer("buyer", buyer), zap.Stringer("result", r))
			}
			return nil, err
		}
	}

	required, err := e.requiredPayment(ctx, s.asset(), offer.Price)
	if err != nil {
		return nil, err
	}
	if err := s.fund(ctx, e, buyer, required); err != nil {
		return nil, err
	}

	fee, share := e.cfg.Fee.Split(required)
	legs := s.legs(e, p, required, fee, share)

	sold := offer.Clone()
	sold.Status = StatusSold
	err = e.gateway.Settle(ctx, legs, func() error {
		return e.store.Put(ctx, id, sold)
	})
	if err != nil {
		return nil, settlementFailure(err)
	}

	receipt := &Receipt{
		OfferID:     id,
		Buyer:       buyer,
		Asset:       s.asset(),
		Paid:        required,
		Fee:         fee,
		SellerShare: share,
		Refund:      s.refund(required),
	}

	e.logger.Info("offer bought",
		zap.Uint64("offer_id", id),
		zap.Stringer("buyer", buyer),
		zap.Stringer("seller", offer.Seller),
		zap.String("asset", receipt.Asset),
		zap.Stringer("paid", required),
		zap.Stringer("fee", fee),
		zap.Stringer("refund", receipt.Refund))

	e.emit(ctx, OfferBoughtEvent{ID: id, Buyer: buyer, Asset: receipt.Asset, PaidAmount: new(big.Int).Set(required)})
	return receipt, nil
}

func (e *Engine) requiredPayment(ctx context.Context, asset string, price *big.Int) (*big.Int, error) {
	required, err := e.quoter.RequiredPayment(ctx, asset, orZero(price))
	if err != nil {
		if errors.Is(err, oracle.ErrUnsupportedAsset) {
			return nil, fail(UnsupportedAsset, err)
		}
		e.logger.Warn("price conversion failed", zap.String("asset", asset), zap.Error(err))
		return nil, fail(OracleUnavailable, err)
	}
	return required, nil
}

func (e *Engine) reject(op string, r Result, fields ...zap.Field) error {
	e.logger.Debug(op+" rejected", append(fields, zap.Stringer("result", r))...)
	return r
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Emit(ctx, ev); err != nil {
		e.logger.Error("event delivery failed", zap.String("event", string(ev.Kind())), zap.Error(err))
	}
}
