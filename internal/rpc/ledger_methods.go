package rpc

import (
	"encoding/json"

	"github.com/LeJamon/goMarketd/internal/core/account"
)

// Standalone-only administration of the in-process ledger. These methods
// stand in for the external token ledgers when running without them.

type ledgerAssetParams struct {
	Asset    string           `json:"asset,omitempty"`
	Contract *account.Address `json:"contract,omitempty"`
}

// contract resolves a settlement token symbol or an explicit contract.
func (s *Server) contract(p ledgerAssetParams) (account.Address, *RpcError) {
	if p.Contract != nil && !p.Contract.IsZero() {
		return *p.Contract, nil
	}
	if p.Asset == "" {
		return account.Address{}, RpcErrorMissingField("contract")
	}
	c, ok := s.services.Engine.TokenContract(p.Asset)
	if !ok {
		return account.Address{}, RpcErrorInvalidField("asset")
	}
	return c, nil
}

func requirePositive(field string, a *Amount) *RpcError {
	if a == nil {
		return RpcErrorMissingField(field)
	}
	if a.Int().Sign() < 0 {
		return RpcErrorInvalidField(field)
	}
	return nil
}

func requireAccount(field string, a account.Address) *RpcError {
	if a.IsZero() {
		return RpcErrorMissingField(field)
	}
	return nil
}

func (s *Server) ledgerFund(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		Account account.Address `json:"account"`
		Amount  *Amount         `json:"amount"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireAccount("account", p.Account); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requirePositive("amount", p.Amount); rpcErr != nil {
		return nil, rpcErr
	}

	s.services.Ledger.Fund(p.Account, p.Amount.Int())
	balance, err := s.services.Ledger.NativeBalance(ctx.Context, p.Account)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{"account": p.Account, "balance": NewAmount(balance)}, nil
}

// ledgerMint credits fungible tokens, or multi-token units when token_id is
// present.
func (s *Server) ledgerMint(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		ledgerAssetParams
		Account account.Address `json:"account"`
		TokenID *Amount         `json:"token_id,omitempty"`
		Amount  *Amount         `json:"amount"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	contract, rpcErr := s.contract(p.ledgerAssetParams)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireAccount("account", p.Account); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requirePositive("amount", p.Amount); rpcErr != nil {
		return nil, rpcErr
	}

	if p.TokenID != nil {
		if p.TokenID.Int().Sign() < 0 {
			return nil, RpcErrorInvalidField("token_id")
		}
		s.services.Ledger.MintMultiToken(contract, p.Account, p.TokenID.Int(), p.Amount.Int())
		balance, err := s.services.Ledger.MultiTokenBalance(ctx.Context, contract, p.Account, p.TokenID.Int())
		if err != nil {
			return nil, RpcErrorInternal(err.Error())
		}
		return map[string]interface{}{
			"account":  p.Account,
			"contract": contract,
			"token_id": p.TokenID,
			"balance":  NewAmount(balance),
		}, nil
	}

	s.services.Ledger.MintFungible(contract, p.Account, p.Amount.Int())
	balance, err := s.services.Ledger.FungibleBalance(ctx.Context, contract, p.Account)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"account":  p.Account,
		"contract": contract,
		"balance":  NewAmount(balance),
	}, nil
}

// ledgerApprove sets a fungible allowance, to the marketplace by default.
func (s *Server) ledgerApprove(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		ledgerAssetParams
		Owner   account.Address `json:"owner"`
		Spender account.Address `json:"spender,omitempty"`
		Amount  *Amount         `json:"amount"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	contract, rpcErr := s.contract(p.ledgerAssetParams)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireAccount("owner", p.Owner); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requirePositive("amount", p.Amount); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Spender.IsZero() {
		p.Spender = s.services.Engine.Escrow()
	}

	s.services.Ledger.Approve(contract, p.Owner, p.Spender, p.Amount.Int())
	allowance, err := s.services.Ledger.Allowance(ctx.Context, contract, p.Owner, p.Spender)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"contract":  contract,
		"owner":     p.Owner,
		"spender":   p.Spender,
		"allowance": NewAmount(allowance),
	}, nil
}

// ledgerSetOperator grants or revokes a multi-token operator, the
// marketplace by default.
func (s *Server) ledgerSetOperator(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		Contract account.Address `json:"contract"`
		Owner    account.Address `json:"owner"`
		Operator account.Address `json:"operator,omitempty"`
		Approved *bool           `json:"approved,omitempty"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireAccount("contract", p.Contract); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireAccount("owner", p.Owner); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Operator.IsZero() {
		p.Operator = s.services.Engine.Escrow()
	}
	approved := p.Approved == nil || *p.Approved

	s.services.Ledger.SetApprovalForAll(p.Contract, p.Owner, p.Operator, approved)
	got, err := s.services.Ledger.IsApprovedForAll(ctx.Context, p.Contract, p.Owner, p.Operator)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"contract": p.Contract,
		"owner":    p.Owner,
		"operator": p.Operator,
		"approved": got,
	}, nil
}

type itemRef struct {
	Contract account.Address `json:"contract"`
	TokenID  *Amount         `json:"token_id"`
}

// ledgerBalances reports native and settlement token balances plus the
// requested multi-token items.
func (s *Server) ledgerBalances(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		Account account.Address `json:"account"`
		Items   []itemRef       `json:"items,omitempty"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := requireAccount("account", p.Account); rpcErr != nil {
		return nil, rpcErr
	}

	l := s.services.Ledger
	native, err := l.NativeBalance(ctx.Context, p.Account)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}

	tokens := make(map[string]*Amount)
	for _, symbol := range s.services.Engine.SettlementTokens() {
		contract, _ := s.services.Engine.TokenContract(symbol)
		b, err := l.FungibleBalance(ctx.Context, contract, p.Account)
		if err != nil {
			return nil, RpcErrorInternal(err.Error())
		}
		tokens[symbol] = NewAmount(b)
	}

	items := make([]map[string]interface{}, 0, len(p.Items))
	for _, it := range p.Items {
		if it.TokenID == nil {
			return nil, RpcErrorMissingField("items.token_id")
		}
		b, err := l.MultiTokenBalance(ctx.Context, it.Contract, p.Account, it.TokenID.Int())
		if err != nil {
			return nil, RpcErrorInternal(err.Error())
		}
		items = append(items, map[string]interface{}{
			"contract": it.Contract,
			"token_id": it.TokenID,
			"balance":  NewAmount(b),
		})
	}

	return map[string]interface{}{
		"account": p.Account,
		"native":  NewAmount(native),
		"tokens":  tokens,
		"items":   items,
	}, nil
}
