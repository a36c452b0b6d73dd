package rpc

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/core/market"
	"github.com/LeJamon/goMarketd/internal/core/oracle"
	"github.com/LeJamon/goMarketd/internal/storage/eventdb"
)

type offerIDParams struct {
	OfferID *uint64 `json:"offer_id"`
}

func (p offerIDParams) id() (uint64, *RpcError) {
	if p.OfferID == nil {
		return 0, RpcErrorMissingField("offer_id")
	}
	return *p.OfferID, nil
}

func (s *Server) getOffer(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p offerIDParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := p.id()
	if rpcErr != nil {
		return nil, rpcErr
	}

	o, err := s.services.Engine.GetOffer(ctx.Context, id)
	if err != nil {
		return nil, rpcErrorFrom(err)
	}
	return map[string]interface{}{"offer": offerJSON(id, o)}, nil
}

type quoteParams struct {
	Asset   string  `json:"asset"`
	OfferID *uint64 `json:"offer_id,omitempty"`
	Price   *Amount `json:"price,omitempty"`
}

// quote prices an offer, or a bare unit-of-account price, in one asset.
func (s *Server) quote(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p quoteParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Asset == "" {
		return nil, RpcErrorMissingField("asset")
	}

	switch {
	case p.OfferID != nil:
		required, err := s.services.Engine.Quote(ctx.Context, p.Asset, *p.OfferID)
		if err != nil {
			return nil, rpcErrorFrom(err)
		}
		return map[string]interface{}{
			"asset":    p.Asset,
			"offer_id": *p.OfferID,
			"required": NewAmount(required),
		}, nil

	case p.Price != nil:
		if s.services.Oracle == nil {
			return nil, RpcErrorNotEnabled("Price quotes")
		}
		q, err := s.services.Oracle.Quote(ctx.Context, p.Asset, p.Price.Int())
		if err != nil {
			return nil, oracleError(err)
		}
		return map[string]interface{}{
			"asset":         q.Asset,
			"price":         NewAmount(q.Price),
			"required":      NewAmount(q.Required),
			"rate":          NewAmount(q.Rate.Value),
			"rate_decimals": q.Rate.Decimals,
			"rate_time":     q.Rate.UpdatedAt.Unix(),
		}, nil
	}
	return nil, RpcErrorMissingField("offer_id")
}

func oracleError(err error) *RpcError {
	switch {
	case errors.Is(err, oracle.ErrUnsupportedAsset):
		return RpcErrorFromResult(market.UnsupportedAsset)
	case errors.Is(err, oracle.ErrUnavailable):
		return RpcErrorFromResult(market.OracleUnavailable)
	}
	return RpcErrorFromResult(market.InvalidAmount)
}

func (s *Server) offerHistory(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if s.services.History == nil {
		return nil, RpcErrorNotEnabled("Event journal")
	}
	var p offerIDParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := p.id()
	if rpcErr != nil {
		return nil, rpcErr
	}

	entries, err := s.services.History.History(ctx.Context, id)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	if entries == nil {
		entries = []eventdb.Entry{}
	}
	return map[string]interface{}{"offer_id": id, "events": entries}, nil
}

// Page sizes of list_offers and recent_events.
const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

func pageLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageLimit
	case limit > maxPageLimit:
		return maxPageLimit
	}
	return limit
}

type listOffersParams struct {
	Status *market.Status   `json:"status,omitempty"`
	Seller *account.Address `json:"seller,omitempty"`
	Marker uint64           `json:"marker,omitempty"`
	Limit  int              `json:"limit,omitempty"`
}

// listOffers pages through stored offers from marker, optionally filtered by
// status and seller. marker in the result resumes the listing.
func (s *Server) listOffers(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	scanner, ok := s.services.Store.(market.OfferScanner)
	if !ok {
		return nil, RpcErrorNotEnabled("Offer listing")
	}
	var p listOffersParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	limit := pageLimit(p.Limit)

	offers := make([]OfferJSON, 0)
	var next *uint64
	err := scanner.Scan(ctx.Context, p.Marker, func(id uint64, o market.Offer) bool {
		if p.Status != nil && o.Status != *p.Status {
			return true
		}
		if p.Seller != nil && o.Seller != *p.Seller {
			return true
		}
		if len(offers) == limit {
			next = &id
			return false
		}
		offers = append(offers, offerJSON(id, o))
		return true
	})
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}

	result := map[string]interface{}{"offers": offers, "limit": limit}
	if next != nil {
		result["marker"] = *next
	}
	return result, nil
}

func (s *Server) recentEvents(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if s.services.History == nil {
		return nil, RpcErrorNotEnabled("Event journal")
	}
	var p struct {
		Limit int `json:"limit,omitempty"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	entries, err := s.services.History.Recent(ctx.Context, pageLimit(p.Limit))
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	if entries == nil {
		entries = []eventdb.Entry{}
	}
	return map[string]interface{}{"events": entries}, nil
}

func (s *Server) feeConfig(ctx *RpcContext, _ json.RawMessage) (interface{}, *RpcError) {
	fee := s.services.Engine.FeeConfig()
	return map[string]interface{}{
		"fee_rate":  fee.Rate,
		"recipient": fee.Recipient,
		"owner":     s.services.Engine.Owner(),
	}, nil
}

type createOfferTx struct {
	TokenContract account.Address `json:"token_contract"`
	TokenID       *Amount         `json:"token_id"`
	Amount        *Amount         `json:"amount"`
	Deadline      int64           `json:"deadline"`
	Price         *Amount         `json:"price"`
}

func (s *Server) createOffer(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var tx createOfferTx
	if rpcErr := decodeParams(params, &tx); rpcErr != nil {
		return nil, rpcErr
	}
	if tx.Deadline == 0 {
		return nil, RpcErrorMissingField("deadline")
	}

	id, err := s.services.Engine.CreateOffer(ctx.Context, ctx.Caller, market.CreateOfferRequest{
		TokenContract: tx.TokenContract,
		TokenID:       tx.TokenID.Int(),
		Amount:        tx.Amount.Int(),
		Deadline:      time.Unix(tx.Deadline, 0).UTC(),
		Price:         tx.Price.Int(),
	})
	if err != nil {
		return nil, rpcErrorFrom(err)
	}

	o, err := s.services.Engine.GetOffer(ctx.Context, id)
	if err != nil {
		return nil, rpcErrorFrom(err)
	}
	return map[string]interface{}{"offer_id": id, "offer": offerJSON(id, o)}, nil
}

func (s *Server) cancelOffer(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p offerIDParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := p.id()
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.services.Engine.CancelOffer(ctx.Context, ctx.Caller, id); err != nil {
		return nil, rpcErrorFrom(err)
	}
	return map[string]interface{}{"offer_id": id, "cancelled": true}, nil
}

type buyNativeTx struct {
	OfferID *uint64 `json:"offer_id"`
	Value   *Amount `json:"value"`
}

func (s *Server) buyWithNative(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var tx buyNativeTx
	if rpcErr := decodeParams(params, &tx); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := offerIDParams{tx.OfferID}.id()
	if rpcErr != nil {
		return nil, rpcErr
	}
	if tx.Value == nil {
		return nil, RpcErrorMissingField("value")
	}

	receipt, err := s.services.Engine.BuyWithNativeAsset(ctx.Context, ctx.Caller, id, tx.Value.Int())
	if err != nil {
		return nil, rpcErrorFrom(err)
	}
	return map[string]interface{}{"receipt": receiptJSON(receipt)}, nil
}

type buyTokenTx struct {
	OfferID *uint64 `json:"offer_id"`
	Asset   string  `json:"asset"`
}

func (s *Server) buyWithToken(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var tx buyTokenTx
	if rpcErr := decodeParams(params, &tx); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := offerIDParams{tx.OfferID}.id()
	if rpcErr != nil {
		return nil, rpcErr
	}

	receipt, err := s.services.Engine.BuyWithSettlementToken(ctx.Context, ctx.Caller, tx.Asset, id)
	if err != nil {
		return nil, rpcErrorFrom(err)
	}
	return map[string]interface{}{"receipt": receiptJSON(receipt)}, nil
}

func (s *Server) setFeeRate(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var tx struct {
		FeeRate *uint32 `json:"fee_rate"`
	}
	if rpcErr := decodeParams(params, &tx); rpcErr != nil {
		return nil, rpcErr
	}
	if tx.FeeRate == nil {
		return nil, RpcErrorMissingField("fee_rate")
	}
	if err := s.services.Engine.SetFeeRate(ctx.Context, ctx.Caller, *tx.FeeRate); err != nil {
		return nil, rpcErrorFrom(err)
	}
	return s.feeConfig(ctx, nil)
}

func (s *Server) setRecipient(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var tx struct {
		Recipient account.Address `json:"recipient"`
	}
	if rpcErr := decodeParams(params, &tx); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.services.Engine.SetRecipient(ctx.Context, ctx.Caller, tx.Recipient); err != nil {
		return nil, rpcErrorFrom(err)
	}
	return s.feeConfig(ctx, nil)
}
