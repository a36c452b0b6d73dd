package market

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/account"
)

// Status is the lifecycle state of an offer.
type Status uint8

const (
	// StatusNone is the status of ids that were never created.
	StatusNone Status = iota
	StatusActive
	StatusSold
	StatusCancelled
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "NONE"
	case StatusActive:
		return "ACTIVE"
	case StatusSold:
		return "SOLD"
	case StatusCancelled:
		return "CANCELLED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// IsTerminal reports whether no transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusSold || s == StatusCancelled || s == StatusExpired
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusNone:
		return to == StatusActive
	case StatusActive:
		return to.IsTerminal()
	default:
		return false
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(name string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "NONE":
		return StatusNone, nil
	case "ACTIVE":
		return StatusActive, nil
	case "SOLD":
		return StatusSold, nil
	case "CANCELLED":
		return StatusCancelled, nil
	case "EXPIRED":
		return StatusExpired, nil
	}
	return StatusNone, fmt.Errorf("unknown offer status %q", name)
}

// Offer is a fixed-price listing of Amount units of (TokenContract, TokenID).
// The zero Offer is the record of every id that was never created.
type Offer struct {
	Seller        account.Address
	TokenContract account.Address
	TokenID       *big.Int
	Amount        *big.Int
	Deadline      time.Time

	// Price is denominated in the unit of account, scaled by its decimals.
	Price *big.Int

	Status Status
}

// Exists reports whether the offer was ever created.
func (o Offer) Exists() bool {
	return o.Status != StatusNone
}

// ExpiredAt reports whether the deadline has passed at now.
func (o Offer) ExpiredAt(now time.Time) bool {
	return now.After(o.Deadline)
}

// Clone returns a deep copy of o.
func (o Offer) Clone() Offer {
	o.TokenID = cloneInt(o.TokenID)
	o.Amount = cloneInt(o.Amount)
	o.Price = cloneInt(o.Price)
	return o
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// orZero returns v, or a fresh zero for nil.
func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
