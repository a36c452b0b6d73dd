// Package rpc serves the marketplace over HTTP JSON-RPC and WebSocket.
//
// Requests use the {"method": "...", "params": [{...}]} envelope. Methods that
// act on behalf of an account take a signed envelope as their single param:
//
//	{"tx": {...}, "public_key": "<hex>", "signature": "<hex DER>"}
//
// where the signature covers Sha512Half(method || 0x00 || compact(tx)). Every
// signed tx carries a "sequence" above the last one accepted from its account;
// account_info reports the next one.
package rpc

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/LeJamon/goMarketd/internal/core/account"
)

// Role is the access level a method requires.
type Role int

const (
	// RoleGuest methods are read-only and unauthenticated.
	RoleGuest Role = iota

	// RoleSigned methods run as the account that signed the request.
	RoleSigned

	// RoleStandalone methods administer the in-process ledger and exist only
	// in standalone mode.
	RoleStandalone
)

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleSigned:
		return "signed"
	case RoleStandalone:
		return "standalone"
	}
	return "unknown"
}

// RpcContext carries request-scoped information to a handler.
type RpcContext struct {
	Context  context.Context
	Method   string
	ClientIP string

	// Caller is the authenticated account of RoleSigned methods.
	Caller account.Address
}

// MethodHandler is implemented by every RPC method.
type MethodHandler interface {
	Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
	RequiredRole() Role
}

// MethodRegistry maps method names to handlers.
type MethodRegistry struct {
	methods map[string]MethodHandler
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		methods: make(map[string]MethodHandler),
	}
}

func (r *MethodRegistry) Register(name string, handler MethodHandler) {
	r.methods[name] = handler
}

func (r *MethodRegistry) Get(name string) (MethodHandler, bool) {
	handler, exists := r.methods[name]
	return handler, exists
}

// List returns the registered names in sorted order.
func (r *MethodRegistry) List() []string {
	methods := make([]string, 0, len(r.methods))
	for name := range r.methods {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	return methods
}

// Request is the HTTP JSON-RPC request envelope.
type Request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
	ID     interface{}       `json:"id,omitempty"`
}

// SignedParams is the single param of a RoleSigned method.
type SignedParams struct {
	Tx        json.RawMessage `json:"tx"`
	PublicKey string          `json:"public_key,omitempty"`
	Signature string          `json:"signature,omitempty"`
}

// handlerFunc adapts a function to MethodHandler.
type handlerFunc struct {
	role Role
	fn   func(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
}

func (h handlerFunc) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return h.fn(ctx, params)
}

func (h handlerFunc) RequiredRole() Role { return h.role }
