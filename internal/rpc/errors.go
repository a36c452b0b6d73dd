package rpc

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goMarketd/internal/core/market"
)

// RpcError is the error half of a response. Marketplace results keep their
// code, name and class so clients can branch on them.
type RpcError struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Class       string `json:"error_class,omitempty"`
	Message     string `json:"error_message,omitempty"`

	// Retry is set for results the same call may clear later.
	Retry bool `json:"retry,omitempty"`
}

func (e *RpcError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.ErrorString, e.Message)
	}
	return e.ErrorString
}

// Protocol error codes. Marketplace results use their own positive codes
// starting at 100.
const (
	RpcUNKNOWN          = -1
	RpcINVALID_REQUEST  = -32600
	RpcMETHOD_NOT_FOUND = -32601
	RpcINVALID_PARAMS   = -32602
	RpcINTERNAL         = -32603
	RpcPARSE_ERROR      = -32700

	RpcMISSING_COMMAND  = 2
	RpcSLOW_DOWN        = 7
	RpcNOT_STANDALONE   = 10
	RpcSTREAM_MALFORMED = 26
	RpcNOT_ENABLED      = 31
	RpcBAD_SIGNATURE    = 60
	RpcPUBLIC_MALFORMED = 62
	RpcBAD_SEQUENCE     = 63
)

func NewRpcError(code int, errorString, message string) *RpcError {
	return &RpcError{Code: code, ErrorString: errorString, Message: message}
}

func RpcErrorInvalidParams(message string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", message)
}

func RpcErrorMissingField(field string) *RpcError {
	return RpcErrorInvalidParams(fmt.Sprintf("Missing field '%s'.", field))
}

func RpcErrorInvalidField(field string) *RpcError {
	return RpcErrorInvalidParams(fmt.Sprintf("Invalid field '%s'.", field))
}

func RpcErrorMethodNotFound(method string) *RpcError {
	return NewRpcError(RpcMETHOD_NOT_FOUND, "unknownCmd", fmt.Sprintf("Unknown method '%s'.", method))
}

func RpcErrorInternal(message string) *RpcError {
	return NewRpcError(RpcINTERNAL, "internal", message)
}

func RpcErrorSlowDown() *RpcError {
	return NewRpcError(RpcSLOW_DOWN, "slowDown", "You are placing too much load on the server.")
}

func RpcErrorNotStandalone(method string) *RpcError {
	return NewRpcError(RpcNOT_STANDALONE, "notStandAlone", fmt.Sprintf("Method '%s' requires standalone mode.", method))
}

func RpcErrorNotEnabled(feature string) *RpcError {
	return NewRpcError(RpcNOT_ENABLED, "notEnabled", fmt.Sprintf("%s is not enabled on this server.", feature))
}

func RpcErrorBadSignature(message string) *RpcError {
	return NewRpcError(RpcBAD_SIGNATURE, "badSignature", message)
}

func RpcErrorPublicMalformed() *RpcError {
	return NewRpcError(RpcPUBLIC_MALFORMED, "publicMalformed", "Public key is malformed.")
}

func RpcErrorBadSequence(last uint64) *RpcError {
	return NewRpcError(RpcBAD_SEQUENCE, "badSequence",
		fmt.Sprintf("Sequence must be greater than %d.", last))
}

// RpcErrorFromResult converts a marketplace Result.
func RpcErrorFromResult(r market.Result) *RpcError {
	return &RpcError{
		Code:        int(r),
		ErrorString: r.String(),
		Class:       r.Class().String(),
		Message:     r.Message(),
		Retry:       r.ShouldRetry(),
	}
}

// rpcErrorFrom maps an operation error. Errors without a marketplace Result
// are internal.
func rpcErrorFrom(err error) *RpcError {
	var rpcErr *RpcError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	if r, ok := market.ResultOf(err); ok {
		return RpcErrorFromResult(r)
	}
	return RpcErrorInternal(err.Error())
}
