package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice    = account.MustParse("0x00000000000000000000000000000000000a11ce")
	bob      = account.MustParse("0x0000000000000000000000000000000000000b0b")
	market   = account.MustParse("0x000000000000000000000000000000000000aa00")
	dai      = account.MustParse("0x00000000000000000000000000000000000000da")
	erc1155  = account.MustParse("0x0000000000000000000000000000000000001155")
	tokenID1 = big.NewInt(1)
)

func balanceOf(t *testing.T, m *Memory, owner account.Address) int64 {
	t.Helper()
	b, err := m.NativeBalance(context.Background(), owner)
	require.NoError(t, err)
	return b.Int64()
}

func TestSettleNative(t *testing.T) {
	m := NewMemory()
	m.Fund(alice, big.NewInt(100))

	err := m.Settle(context.Background(), []Transfer{
		{Kind: KindNative, From: alice, To: bob, Amount: big.NewInt(40)},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(60), balanceOf(t, m, alice))
	assert.Equal(t, int64(40), balanceOf(t, m, bob))
}

func TestSettleIsAllOrNothing(t *testing.T) {
	m := NewMemory()
	m.Fund(alice, big.NewInt(100))
	m.MintMultiToken(erc1155, bob, tokenID1, big.NewInt(5))

	// Second leg fails: market is not an approved operator for bob.
	err := m.Settle(context.Background(), []Transfer{
		{Kind: KindNative, From: alice, To: bob, Amount: big.NewInt(40)},
		{Kind: KindMultiToken, Contract: erc1155, TokenID: tokenID1, From: bob, To: alice, Amount: big.NewInt(1), Operator: market},
	}, nil)

	var legErr *LegError
	require.ErrorAs(t, err, &legErr)
	assert.Equal(t, 1, legErr.Index)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	assert.Equal(t, int64(100), balanceOf(t, m, alice), "first leg must not be applied")
	assert.Equal(t, int64(0), balanceOf(t, m, bob))
}

func TestSettleFinalizeFailureDiscardsLegs(t *testing.T) {
	m := NewMemory()
	m.Fund(alice, big.NewInt(100))
	boom := errors.New("store unavailable")

	err := m.Settle(context.Background(), []Transfer{
		{Kind: KindNative, From: alice, To: bob, Amount: big.NewInt(10)},
	}, func() error { return boom })

	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(100), balanceOf(t, m, alice))
}

func TestSettleFinalizeSeesNoPartialState(t *testing.T) {
	m := NewMemory()
	m.Fund(alice, big.NewInt(100))

	called := false
	err := m.Settle(context.Background(), []Transfer{
		{Kind: KindNative, From: alice, To: bob, Amount: big.NewInt(10)},
	}, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, int64(10), balanceOf(t, m, bob))
}

func TestFungibleTransferFrom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.MintFungible(dai, alice, big.NewInt(50))

	t.Run("without allowance", func(t *testing.T) {
		err := m.Settle(ctx, []Transfer{
			{Kind: KindFungible, Contract: dai, From: alice, To: bob, Amount: big.NewInt(10), Operator: market},
		}, nil)
		require.ErrorIs(t, err, ErrInsufficientAllowance)
	})

	t.Run("with allowance", func(t *testing.T) {
		m.Approve(dai, alice, market, big.NewInt(30))
		err := m.Settle(ctx, []Transfer{
			{Kind: KindFungible, Contract: dai, From: alice, To: bob, Amount: big.NewInt(10), Operator: market},
			{Kind: KindFungible, Contract: dai, From: alice, To: market, Amount: big.NewInt(5), Operator: market},
		}, nil)
		require.NoError(t, err)

		remaining, err := m.Allowance(ctx, dai, alice, market)
		require.NoError(t, err)
		assert.Equal(t, int64(15), remaining.Int64())

		bal, err := m.FungibleBalance(ctx, dai, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(35), bal.Int64())
	})

	t.Run("allowance above balance", func(t *testing.T) {
		m.Approve(dai, alice, market, big.NewInt(1000))
		err := m.Settle(ctx, []Transfer{
			{Kind: KindFungible, Contract: dai, From: alice, To: bob, Amount: big.NewInt(500), Operator: market},
		}, nil)
		require.ErrorIs(t, err, ErrInsufficientBalance)

		remaining, err := m.Allowance(ctx, dai, alice, market)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), remaining.Int64(), "failed settlement must not consume allowance")
	})
}

func TestMultiTokenOperator(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.MintMultiToken(erc1155, alice, tokenID1, big.NewInt(4))
	m.SetApprovalForAll(erc1155, alice, market, true)

	approved, err := m.IsApprovedForAll(ctx, erc1155, alice, market)
	require.NoError(t, err)
	assert.True(t, approved)

	err = m.Settle(ctx, []Transfer{
		{Kind: KindMultiToken, Contract: erc1155, TokenID: tokenID1, From: alice, To: bob, Amount: big.NewInt(3), Operator: market},
	}, nil)
	require.NoError(t, err)

	bal, err := m.MultiTokenBalance(ctx, erc1155, bob, tokenID1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), bal.Int64())

	other, err := m.MultiTokenBalance(ctx, erc1155, bob, big.NewInt(2))
	require.NoError(t, err)
	assert.Zero(t, other.Sign(), "balances are tracked per token id")

	m.SetApprovalForAll(erc1155, alice, market, false)
	err = m.Settle(ctx, []Transfer{
		{Kind: KindMultiToken, Contract: erc1155, TokenID: tokenID1, From: alice, To: bob, Amount: big.NewInt(1), Operator: market},
	}, nil)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestTransferMultiTokenByHolder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.MintMultiToken(erc1155, alice, tokenID1, big.NewInt(4))

	require.NoError(t, m.TransferMultiToken(ctx, erc1155, alice, bob, tokenID1, big.NewInt(2)))
	err := m.TransferMultiToken(ctx, erc1155, alice, bob, tokenID1, big.NewInt(3))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestSettleRejectsNegativeAmount(t *testing.T) {
	m := NewMemory()
	err := m.Settle(context.Background(), []Transfer{
		{Kind: KindNative, From: alice, To: bob, Amount: big.NewInt(-1)},
	}, nil)
	require.ErrorIs(t, err, ErrInvalidTransfer)
}
