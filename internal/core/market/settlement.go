package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/core/ledger"
)

// settlement is one way of paying for an offer. Both variants share the
// purchase routine in Engine.buy and differ only in funding checks and legs.
type settlement interface {
	asset() string

	// fund checks the buyer can cover required before any leg is built.
	fund(ctx context.Context, e *Engine, buyer account.Address, required *big.Int) error

	// legs returns the transfers of the purchase in execution order.
	legs(e *Engine, p *purchase, required, fee, share *big.Int) []ledger.Transfer

	refund(required *big.Int) *big.Int
}

// nativeSettlement pays with native units attached to the call. The attached
// value moves into escrow and is disbursed from there.
type nativeSettlement struct {
	symbol   string
	attached *big.Int
}

func (s nativeSettlement) asset() string { return s.symbol }

func (s nativeSettlement) fund(_ context.Context, _ *Engine, _ account.Address, required *big.Int) error {
	if s.attached.Cmp(required) < 0 {
		return InsufficientFunds
	}
	return nil
}

func (s nativeSettlement) legs(e *Engine, p *purchase, required, fee, share *big.Int) []ledger.Transfer {
	escrow := e.cfg.Escrow
	legs := []ledger.Transfer{
		{Kind: ledger.KindNative, From: p.buyer, To: escrow, Amount: s.attached},
		tokenDelivery(escrow, p),
		{Kind: ledger.KindNative, From: escrow, To: e.cfg.Fee.Recipient, Amount: fee},
		{Kind: ledger.KindNative, From: escrow, To: p.offer.Seller, Amount: share},
		{Kind: ledger.KindNative, From: escrow, To: p.buyer, Amount: s.refund(required)},
	}
	return compact(legs)
}

func (s nativeSettlement) refund(required *big.Int) *big.Int {
	return new(big.Int).Sub(s.attached, required)
}

// tokenSettlement pulls an allowlisted fungible token straight from the buyer
// to the fee recipient and the seller; the engine never holds it.
type tokenSettlement struct {
	symbol   string
	contract account.Address
}

func (s tokenSettlement) asset() string { return s.symbol }

func (s tokenSettlement) fund(ctx context.Context, e *Engine, buyer account.Address, required *big.Int) error {
	allowance, err := e.gateway.Allowance(ctx, s.contract, buyer, e.cfg.Escrow)
	if err != nil {
		return fmt.Errorf("query allowance: %w", err)
	}
	if allowance.Cmp(required) < 0 {
		return InsufficientAllowance
	}
	balance, err := e.gateway.FungibleBalance(ctx, s.contract, buyer)
	if err != nil {
		return fmt.Errorf("query balance: %w", err)
	}
	if balance.Cmp(required) < 0 {
		return InsufficientFunds
	}
	return nil
}

func (s tokenSettlement) legs(e *Engine, p *purchase, _, fee, share *big.Int) []ledger.Transfer {
	escrow := e.cfg.Escrow
	legs := []ledger.Transfer{
		{Kind: ledger.KindFungible, Contract: s.contract, From: p.buyer, To: e.cfg.Fee.Recipient, Amount: fee, Operator: escrow},
		{Kind: ledger.KindFungible, Contract: s.contract, From: p.buyer, To: p.offer.Seller, Amount: share, Operator: escrow},
		tokenDelivery(escrow, p),
	}
	return compact(legs)
}

func (tokenSettlement) refund(*big.Int) *big.Int { return new(big.Int) }

// tokenDelivery moves the offered lot from seller to buyer with the engine as
// operator.
func tokenDelivery(operator account.Address, p *purchase) ledger.Transfer {
	return ledger.Transfer{
		Kind:     ledger.KindMultiToken,
		Contract: p.offer.TokenContract,
		TokenID:  p.offer.TokenID,
		From:     p.offer.Seller,
		To:       p.buyer,
		Amount:   p.offer.Amount,
		Operator: operator,
	}
}

// compact drops zero-amount legs.
func compact(legs []ledger.Transfer) []ledger.Transfer {
	out := legs[:0]
	for _, l := range legs {
		if l.Amount != nil && l.Amount.Sign() != 0 {
			out = append(out, l)
		}
	}
	return out
}

// settlementFailure maps a failed settlement to the Result a caller sees.
// Errors that are not leg failures (store writes, context) pass through.
func settlementFailure(err error) error {
	var leg *ledger.LegError
	if !errors.As(err, &leg) {
		return err
	}
	switch leg.Leg.Kind {
	case ledger.KindMultiToken:
		if errors.Is(err, ledger.ErrNotAuthorized) {
			return fail(TransferNotAuthorized, err)
		}
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return fail(SellerTokensUnavailable, err)
		}
	case ledger.KindFungible:
		if errors.Is(err, ledger.ErrInsufficientAllowance) {
			return fail(InsufficientAllowance, err)
		}
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return fail(InsufficientFunds, err)
		}
	case ledger.KindNative:
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return fail(InsufficientFunds, err)
		}
	}
	return err
}
