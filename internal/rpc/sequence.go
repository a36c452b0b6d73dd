package rpc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/storage/offerdb"
)

// SequenceStore tracks the last sequence accepted from each account. A signed
// tx must carry a sequence above the last accepted one, so a captured envelope
// cannot be submitted twice.
type SequenceStore interface {
	// LastSequence returns the last accepted sequence of a, zero if none.
	LastSequence(ctx context.Context, a account.Address) (uint64, error)

	// AcceptSequence records seq for a if it is above the last accepted one.
	// It reports false, and records nothing, otherwise.
	AcceptSequence(ctx context.Context, a account.Address, seq uint64) (bool, error)
}

var (
	_ SequenceStore = (*MemorySequences)(nil)
	_ SequenceStore = (*offerdb.Store)(nil)
)

// MemorySequences is a SequenceStore that forgets everything on restart.
type MemorySequences struct {
	mu   sync.Mutex
	last map[account.Address]uint64
}

func NewMemorySequences() *MemorySequences {
	return &MemorySequences{last: make(map[account.Address]uint64)}
}

func (m *MemorySequences) LastSequence(_ context.Context, a account.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last[a], nil
}

func (m *MemorySequences) AcceptSequence(_ context.Context, a account.Address, seq uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq <= m.last[a] {
		return false, nil
	}
	m.last[a] = seq
	return true, nil
}

// accountInfo returns the sequence state of an account. sequence is the next
// value a signed tx from it must use.
func (s *Server) accountInfo(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p struct {
		Account *account.Address `json:"account"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Account == nil || p.Account.IsZero() {
		return nil, RpcErrorMissingField("account")
	}

	last, err := s.sequences.LastSequence(ctx.Context, *p.Account)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"account":       *p.Account,
		"last_sequence": last,
		"sequence":      last + 1,
	}, nil
}
