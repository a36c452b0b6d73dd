package market

import (
	"errors"
	"fmt"
)

// Result is an operation outcome code. Every failure the engine reports to a
// caller carries exactly one Result, reachable through errors.Is/errors.As.
type Result int

// Result codes, grouped by class:
//
//	100-199 malformed request
//	200-299 retry later (oracle, funding)
//	300-399 offer gone
//	400-499 not permitted
//	500-599 seller inventory
const (
	ResultOK Result = 0

	InvalidAsset     Result = 100
	InvalidAmount    Result = 101
	InvalidDeadline  Result = 102
	UnsupportedAsset Result = 103
	InvalidFeeRate   Result = 104
	InvalidRecipient Result = 105

	OracleUnavailable     Result = 200
	InsufficientFunds     Result = 201
	InsufficientAllowance Result = 202

	OfferNotAvailable Result = 300
	OfferExpired      Result = 301

	NotSeller             Result = 400
	NotOwner              Result = 401
	TransferNotAuthorized Result = 402

	InsufficientBalance     Result = 500
	SellerTokensUnavailable Result = 501
)

// Class groups results by what a caller can do about them.
type Class int

const (
	ClassSuccess Class = iota
	ClassMalformed
	ClassRetry
	ClassGone
	ClassForbidden
	ClassUnfunded
	ClassUnknown
)

func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassMalformed:
		return "malformed"
	case ClassRetry:
		return "retry"
	case ClassGone:
		return "gone"
	case ClassForbidden:
		return "forbidden"
	case ClassUnfunded:
		return "unfunded"
	default:
		return "unknown"
	}
}

// Class returns the class of r.
func (r Result) Class() Class {
	switch {
	case r == ResultOK:
		return ClassSuccess
	case r >= 100 && r < 200:
		return ClassMalformed
	case r >= 200 && r < 300:
		return ClassRetry
	case r >= 300 && r < 400:
		return ClassGone
	case r >= 400 && r < 500:
		return ClassForbidden
	case r >= 500 && r < 600:
		return ClassUnfunded
	default:
		return ClassUnknown
	}
}

// ShouldRetry reports whether the same call may succeed later without the
// caller changing anything but funding or waiting.
func (r Result) ShouldRetry() bool {
	return r.Class() == ClassRetry
}

// String returns the code name of the result.
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case InvalidAsset:
		return "InvalidAsset"
	case InvalidAmount:
		return "InvalidAmount"
	case InvalidDeadline:
		return "InvalidDeadline"
	case UnsupportedAsset:
		return "UnsupportedAsset"
	case InvalidFeeRate:
		return "InvalidFeeRate"
	case InvalidRecipient:
		return "InvalidRecipient"
	case OracleUnavailable:
		return "OracleUnavailable"
	case InsufficientFunds:
		return "InsufficientFunds"
	case InsufficientAllowance:
		return "InsufficientAllowance"
	case OfferNotAvailable:
		return "OfferNotAvailable"
	case OfferExpired:
		return "OfferExpired"
	case NotSeller:
		return "NotSeller"
	case NotOwner:
		return "NotOwner"
	case TransferNotAuthorized:
		return "TransferNotAuthorized"
	case InsufficientBalance:
		return "InsufficientBalance"
	case SellerTokensUnavailable:
		return "SellerTokensUnavailable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}

// Message returns a human-readable description of the result.
func (r Result) Message() string {
	switch r {
	case ResultOK:
		return "The operation was applied."
	case InvalidAsset:
		return "The token contract must not be the null address."
	case InvalidAmount:
		return "The amount must be positive."
	case InvalidDeadline:
		return "The deadline must be in the future."
	case UnsupportedAsset:
		return "The settlement asset is not supported."
	case InvalidFeeRate:
		return "The fee rate must be between 0 and 100."
	case InvalidRecipient:
		return "The fee recipient must not be the null address."
	case OracleUnavailable:
		return "The price oracle is unavailable."
	case InsufficientFunds:
		return "The payment does not cover the offer price."
	case InsufficientAllowance:
		return "The allowance granted to the marketplace does not cover the offer price."
	case OfferNotAvailable:
		return "The offer is not available."
	case OfferExpired:
		return "The offer has expired."
	case NotSeller:
		return "Only the seller can cancel the offer."
	case NotOwner:
		return "Only the marketplace owner can change the fee configuration."
	case TransferNotAuthorized:
		return "The marketplace is not authorized to transfer the seller's tokens."
	case InsufficientBalance:
		return "The seller does not hold enough tokens to list."
	case SellerTokensUnavailable:
		return "The seller no longer holds the offered tokens."
	default:
		return "Unknown result."
	}
}

// Error implements error.
func (r Result) Error() string {
	return r.String() + ": " + r.Message()
}

// Failure attaches an underlying cause to a Result.
type Failure struct {
	Result Result
	Err    error
}

func (f *Failure) Error() string {
	return f.Result.String() + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() []error {
	return []error{f.Result, f.Err}
}

func fail(r Result, cause error) error {
	if cause == nil {
		return r
	}
	return &Failure{Result: r, Err: cause}
}

// ResultOf extracts the Result carried by err. It reports false for nil and
// for errors that did not originate from a marketplace rule, such as storage
// failures.
func ResultOf(err error) (Result, bool) {
	var r Result
	if errors.As(err, &r) {
		return r, true
	}
	return ResultOK, false
}
