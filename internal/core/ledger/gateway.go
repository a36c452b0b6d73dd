// Package ledger is the engine's view of the external asset ledgers: the
// native value-transfer asset, fungible settlement tokens and multi-unit
// tokens. The engine never holds balances of its own outside a settlement.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/LeJamon/goMarketd/internal/core/account"
)

var (
	// ErrInsufficientBalance is returned when a leg debits more than the holder owns.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when a transfer-from exceeds the spender's allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrNotAuthorized is returned when a multi-unit transfer is attempted by an
	// operator the holder has not approved.
	ErrNotAuthorized = errors.New("caller is not owner nor approved")

	// ErrInvalidTransfer is returned for malformed legs (negative amounts, unknown kinds).
	ErrInvalidTransfer = errors.New("invalid transfer")
)

// Kind selects which ledger a transfer leg touches.
type Kind uint8

const (
	// KindNative moves the native value-transfer asset.
	KindNative Kind = iota + 1
	// KindFungible moves a fungible settlement token via transfer-from.
	KindFungible
	// KindMultiToken moves units of one multi-unit token id via safe transfer.
	KindMultiToken
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindFungible:
		return "fungible"
	case KindMultiToken:
		return "multi-token"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Transfer is one leg of a settlement.
type Transfer struct {
	Kind Kind

	// Contract is the token contract; unused for native legs.
	Contract account.Address

	// TokenID is the multi-unit token id; only for KindMultiToken.
	TokenID *big.Int

	From   account.Address
	To     account.Address
	Amount *big.Int

	// Operator is the account executing a fungible transfer-from (the spender)
	// or a multi-unit safe transfer. A zero operator means From acts for itself.
	Operator account.Address
}

// LegError reports which leg of a settlement failed.
type LegError struct {
	Index int
	Leg   Transfer
	Err   error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("settlement leg %d (%s %s -> %s): %v", e.Index, e.Leg.Kind, e.Leg.From, e.Leg.To, e.Err)
}

func (e *LegError) Unwrap() error {
	return e.Err
}

// Gateway is the collaborator contract the engine consumes. Implementations
// must make Settle all-or-nothing: either every leg and the finalize callback
// take effect, or none of the legs do.
type Gateway interface {
	NativeBalance(ctx context.Context, owner account.Address) (*big.Int, error)
	FungibleBalance(ctx context.Context, token, owner account.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender account.Address) (*big.Int, error)
	MultiTokenBalance(ctx context.Context, contract, owner account.Address, id *big.Int) (*big.Int, error)
	IsApprovedForAll(ctx context.Context, contract, owner, operator account.Address) (bool, error)

	// Settle applies legs in order. finalize runs after every leg has been
	// validated and staged but before anything is published; if it returns an
	// error the staged legs are discarded and that error is returned.
	Settle(ctx context.Context, legs []Transfer, finalize func() error) error
}
