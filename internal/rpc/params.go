package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/core/market"
)

// Amount is an integer carried as a decimal string. Plain JSON integers are
// accepted on input.
type Amount big.Int

func NewAmount(v *big.Int) *Amount {
	if v == nil {
		return nil
	}
	return (*Amount)(new(big.Int).Set(v))
}

// Int returns a copy of the value, or nil.
func (a *Amount) Int() *big.Int {
	if a == nil {
		return nil
	}
	return new(big.Int).Set((*big.Int)(a))
}

func (a *Amount) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	return strconv.AppendQuote(nil, (*big.Int)(a).String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("invalid integer %q", s)
	}
	*a = Amount(*v)
	return nil
}

// decodeParams unmarshals params into v; empty params leave v unchanged.
func decodeParams(params json.RawMessage, v interface{}) *RpcError {
	if len(bytes.TrimSpace(params)) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	return nil
}

// OfferJSON is the wire form of an offer.
type OfferJSON struct {
	ID            uint64          `json:"offer_id"`
	Seller        account.Address `json:"seller"`
	TokenContract account.Address `json:"token_contract"`
	TokenID       *Amount         `json:"token_id"`
	Amount        *Amount         `json:"amount"`
	Deadline      int64           `json:"deadline"`
	DeadlineISO   string          `json:"deadline_iso,omitempty"`
	Price         *Amount         `json:"price"`
	Status        market.Status   `json:"status"`
}

func offerJSON(id uint64, o market.Offer) OfferJSON {
	out := OfferJSON{
		ID:     id,
		Status: o.Status,
	}
	if !o.Exists() {
		return out
	}
	out.Seller = o.Seller
	out.TokenContract = o.TokenContract
	out.TokenID = NewAmount(o.TokenID)
	out.Amount = NewAmount(o.Amount)
	out.Deadline = o.Deadline.Unix()
	out.DeadlineISO = o.Deadline.UTC().Format(time.RFC3339)
	out.Price = NewAmount(o.Price)
	return out
}

// ReceiptJSON is the wire form of a purchase receipt.
type ReceiptJSON struct {
	OfferID     uint64          `json:"offer_id"`
	Buyer       account.Address `json:"buyer"`
	Asset       string          `json:"asset"`
	Paid        *Amount         `json:"paid"`
	Fee         *Amount         `json:"fee"`
	SellerShare *Amount         `json:"seller_share"`
	Refund      *Amount         `json:"refund"`
}

func receiptJSON(r *market.Receipt) ReceiptJSON {
	return ReceiptJSON{
		OfferID:     r.OfferID,
		Buyer:       r.Buyer,
		Asset:       r.Asset,
		Paid:        NewAmount(r.Paid),
		Fee:         NewAmount(r.Fee),
		SellerShare: NewAmount(r.SellerShare),
		Refund:      NewAmount(r.Refund),
	}
}

// toMap round-trips v through JSON so the response writer can add status.
func toMap(v interface{}) (map[string]interface{}, *RpcError) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return m, nil
}
