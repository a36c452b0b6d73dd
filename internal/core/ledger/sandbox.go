package ledger

import (
	"fmt"
	"math/big"

	"github.com/LeJamon/goMarketd/internal/core/account"
)

type balanceKey struct {
	kind     Kind
	contract account.Address
	id       string
	owner    account.Address
}

type allowanceKey struct {
	token   account.Address
	owner   account.Address
	spender account.Address
}

type operatorKey struct {
	contract account.Address
	owner    account.Address
	operator account.Address
}

func nativeKey(owner account.Address) balanceKey {
	return balanceKey{kind: KindNative, owner: owner}
}

func fungibleKey(token, owner account.Address) balanceKey {
	return balanceKey{kind: KindFungible, contract: token, owner: owner}
}

func multiTokenKey(contract, owner account.Address, id *big.Int) balanceKey {
	return balanceKey{kind: KindMultiToken, contract: contract, id: tokenIDKey(id), owner: owner}
}

func tokenIDKey(id *big.Int) string {
	if id == nil {
		return "0"
	}
	return id.Text(16)
}

// view is the read side shared by the committed state and sandboxes.
type view interface {
	balance(k balanceKey) *big.Int
	allowance(k allowanceKey) *big.Int
	approved(k operatorKey) bool
}

// state is committed ledger state. Values are never mutated in place; a
// sandbox commit swaps in fresh big.Int values.
type state struct {
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
	operators  map[operatorKey]bool
}

func newState() *state {
	return &state{
		balances:   make(map[balanceKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
		operators:  make(map[operatorKey]bool),
	}
}

func (s *state) balance(k balanceKey) *big.Int {
	if v, ok := s.balances[k]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (s *state) allowance(k allowanceKey) *big.Int {
	if v, ok := s.allowances[k]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (s *state) approved(k operatorKey) bool {
	return s.operators[k]
}

// Sandbox stages balance and allowance changes on top of a parent view.
// Nothing reaches the parent until commit; dropping the sandbox discards
// every staged change.
type Sandbox struct {
	parent     view
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
}

func newSandbox(parent view) *Sandbox {
	return &Sandbox{
		parent:     parent,
		balances:   make(map[balanceKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

func (s *Sandbox) balance(k balanceKey) *big.Int {
	if v, ok := s.balances[k]; ok {
		return new(big.Int).Set(v)
	}
	return s.parent.balance(k)
}

func (s *Sandbox) allowance(k allowanceKey) *big.Int {
	if v, ok := s.allowances[k]; ok {
		return new(big.Int).Set(v)
	}
	return s.parent.allowance(k)
}

func (s *Sandbox) approved(k operatorKey) bool {
	return s.parent.approved(k)
}

// apply stages one leg.
func (s *Sandbox) apply(t Transfer) error {
	if t.Amount == nil || t.Amount.Sign() < 0 {
		return fmt.Errorf("%w: amount must be non-negative", ErrInvalidTransfer)
	}
	if t.Amount.Sign() == 0 {
		return nil
	}

	var from, to balanceKey
	switch t.Kind {
	case KindNative:
		from, to = nativeKey(t.From), nativeKey(t.To)

	case KindFungible:
		if !t.Operator.IsZero() && t.Operator != t.From {
			ak := allowanceKey{token: t.Contract, owner: t.From, spender: t.Operator}
			remaining := s.allowance(ak)
			if remaining.Cmp(t.Amount) < 0 {
				return ErrInsufficientAllowance
			}
			s.allowances[ak] = remaining.Sub(remaining, t.Amount)
		}
		from, to = fungibleKey(t.Contract, t.From), fungibleKey(t.Contract, t.To)

	case KindMultiToken:
		if !t.Operator.IsZero() && t.Operator != t.From {
			if !s.approved(operatorKey{contract: t.Contract, owner: t.From, operator: t.Operator}) {
				return ErrNotAuthorized
			}
		}
		from, to = multiTokenKey(t.Contract, t.From, t.TokenID), multiTokenKey(t.Contract, t.To, t.TokenID)

	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidTransfer, t.Kind)
	}

	debit := s.balance(from)
	if debit.Cmp(t.Amount) < 0 {
		return ErrInsufficientBalance
	}
	s.balances[from] = debit.Sub(debit, t.Amount)

	credit := s.balance(to)
	s.balances[to] = credit.Add(credit, t.Amount)
	return nil
}

// commit publishes staged changes into st.
func (s *Sandbox) commit(st *state) {
	for k, v := range s.balances {
		st.balances[k] = v
	}
	for k, v := range s.allowances {
		st.allowances[k] = v
	}
}
