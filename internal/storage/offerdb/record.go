package offerdb

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/core/market"
	"github.com/ugorji/go/codec"
)

const recordVersion = 1

// ErrBadRecord is returned for stored bytes that do not decode to an offer.
var ErrBadRecord = errors.New("offerdb: bad record")

var msgpack = &codec.MsgpackHandle{}

// record is the msgpack layout of a stored offer. Integers are decimal
// strings so the encoding is independent of their size.
type record struct {
	Version  uint8  `codec:"v"`
	Seller   []byte `codec:"s"`
	Contract []byte `codec:"c"`
	TokenID  string `codec:"t"`
	Amount   string `codec:"a"`
	Price    string `codec:"p"`
	Secs     int64  `codec:"ds"`
	Nanos    int64  `codec:"dn"`
	Status   uint8  `codec:"st"`
}

func encodeOffer(o market.Offer) ([]byte, error) {
	r := record{
		Version:  recordVersion,
		Seller:   o.Seller.Bytes(),
		Contract: o.TokenContract.Bytes(),
		TokenID:  intString(o.TokenID),
		Amount:   intString(o.Amount),
		Price:    intString(o.Price),
		Secs:     o.Deadline.Unix(),
		Nanos:    int64(o.Deadline.Nanosecond()),
		Status:   uint8(o.Status),
	}

	var out []byte
	if err := codec.NewEncoderBytes(&out, msgpack).Encode(&r); err != nil {
		return nil, fmt.Errorf("encode offer: %w", err)
	}
	return out, nil
}

func decodeOffer(data []byte) (market.Offer, error) {
	var r record
	if err := codec.NewDecoderBytes(data, msgpack).Decode(&r); err != nil {
		return market.Offer{}, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	if r.Version != recordVersion {
		return market.Offer{}, fmt.Errorf("%w: version %d", ErrBadRecord, r.Version)
	}
	if r.Status > uint8(market.StatusExpired) {
		return market.Offer{}, fmt.Errorf("%w: status %d", ErrBadRecord, r.Status)
	}

	o := market.Offer{
		Deadline: time.Unix(r.Secs, r.Nanos).UTC(),
		Status:   market.Status(r.Status),
	}
	var err error
	if o.Seller, err = addressOf(r.Seller); err != nil {
		return market.Offer{}, err
	}
	if o.TokenContract, err = addressOf(r.Contract); err != nil {
		return market.Offer{}, err
	}
	if o.TokenID, err = parseInt(r.TokenID); err != nil {
		return market.Offer{}, err
	}
	if o.Amount, err = parseInt(r.Amount); err != nil {
		return market.Offer{}, err
	}
	if o.Price, err = parseInt(r.Price); err != nil {
		return market.Offer{}, err
	}
	return o, nil
}

func intString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseInt(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: integer %q", ErrBadRecord, s)
	}
	return v, nil
}

func addressOf(b []byte) (account.Address, error) {
	var a account.Address
	if len(b) != len(a) {
		return a, fmt.Errorf("%w: address length %d", ErrBadRecord, len(b))
	}
	copy(a[:], b)
	return a, nil
}
