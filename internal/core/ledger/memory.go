package ledger

import (
	"context"
	"math/big"
	"sync"

	"github.com/LeJamon/goMarketd/internal/core/account"
)

// Memory is an in-process Gateway holding every ledger the engine talks to.
// It backs standalone mode and tests; production deployments put a client of
// the real ledgers behind the same interface.
type Memory struct {
	mu sync.RWMutex
	st *state
}

var _ Gateway = (*Memory)(nil)

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{st: newState()}
}

func (m *Memory) NativeBalance(_ context.Context, owner account.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.balance(nativeKey(owner)), nil
}

func (m *Memory) FungibleBalance(_ context.Context, token, owner account.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.balance(fungibleKey(token, owner)), nil
}

func (m *Memory) Allowance(_ context.Context, token, owner, spender account.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.allowance(allowanceKey{token: token, owner: owner, spender: spender}), nil
}

func (m *Memory) MultiTokenBalance(_ context.Context, contract, owner account.Address, id *big.Int) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.balance(multiTokenKey(contract, owner, id)), nil
}

func (m *Memory) IsApprovedForAll(_ context.Context, contract, owner, operator account.Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.approved(operatorKey{contract: contract, owner: owner, operator: operator}), nil
}

// Settle stages every leg in a sandbox, runs finalize, and commits the
// sandbox only if both succeed. The ledger lock is held throughout so no
// other settlement can observe a half-applied batch.
func (m *Memory) Settle(ctx context.Context, legs []Transfer, finalize func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sb := newSandbox(m.st)
	for i, leg := range legs {
		if err := sb.apply(leg); err != nil {
			return &LegError{Index: i, Leg: leg, Err: err}
		}
	}

	if finalize != nil {
		if err := finalize(); err != nil {
			return err
		}
	}

	sb.commit(m.st)
	return nil
}

// Fund credits native units to owner.
func (m *Memory) Fund(owner account.Address, amount *big.Int) {
	m.credit(nativeKey(owner), amount)
}

// MintFungible credits fungible token units to owner.
func (m *Memory) MintFungible(token, owner account.Address, amount *big.Int) {
	m.credit(fungibleKey(token, owner), amount)
}

// MintMultiToken credits units of token id to owner.
func (m *Memory) MintMultiToken(contract, owner account.Address, id, amount *big.Int) {
	m.credit(multiTokenKey(contract, owner, id), amount)
}

// Approve sets the fungible allowance owner grants to spender.
func (m *Memory) Approve(token, owner, spender account.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.allowances[allowanceKey{token: token, owner: owner, spender: spender}] = new(big.Int).Set(amount)
}

// SetApprovalForAll grants or revokes operator rights over all of owner's
// units in a multi-unit token contract.
func (m *Memory) SetApprovalForAll(contract, owner, operator account.Address, approved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := operatorKey{contract: contract, owner: owner, operator: operator}
	if approved {
		m.st.operators[k] = true
		return
	}
	delete(m.st.operators, k)
}

// TransferMultiToken moves units on behalf of their holder, outside any
// marketplace settlement.
func (m *Memory) TransferMultiToken(ctx context.Context, contract, from, to account.Address, id, amount *big.Int) error {
	return m.Settle(ctx, []Transfer{{
		Kind:     KindMultiToken,
		Contract: contract,
		TokenID:  id,
		From:     from,
		To:       to,
		Amount:   amount,
	}}, nil)
}

func (m *Memory) credit(k balanceKey, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.st.balance(k)
	m.st.balances[k] = cur.Add(cur, amount)
}
