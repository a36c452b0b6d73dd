package rpc

import (
	"encoding/json"
	"time"

	"github.com/LeJamon/goMarketd/internal/storage/offerdb"
)

// storeStats is implemented by stores that keep a read cache.
type storeStats interface {
	Stats() offerdb.Stats
}

func (s *Server) ping(*RpcContext, json.RawMessage) (interface{}, *RpcError) {
	return map[string]interface{}{}, nil
}

func (s *Server) serverInfo(ctx *RpcContext, _ json.RawMessage) (interface{}, *RpcError) {
	e := s.services.Engine
	fee := e.FeeConfig()

	tokens := make(map[string]interface{})
	for _, symbol := range e.SettlementTokens() {
		c, _ := e.TokenContract(symbol)
		tokens[symbol] = c
	}

	info := map[string]interface{}{
		"version":      s.services.Version,
		"standalone":   s.services.Standalone,
		"uptime":       int64(time.Since(s.started).Seconds()),
		"owner":        e.Owner(),
		"escrow":       e.Escrow(),
		"native_asset": e.NativeAsset(),
		"tokens":       tokens,
		"fee_rate":     fee.Rate,
		"recipient":    fee.Recipient,
		"methods":      s.registry.List(),
		"subscribers":  s.publisher.SubscriberCount(),
	}
	if s.services.Store != nil {
		next, err := s.services.Store.NextID(ctx.Context)
		if err != nil {
			return nil, RpcErrorInternal(err.Error())
		}
		info["offer_count"] = next
	}
	if st, ok := s.services.Store.(storeStats); ok {
		stats := st.Stats()
		info["offer_cache"] = map[string]interface{}{
			"hits":     stats.Hits,
			"misses":   stats.Misses,
			"hit_rate": stats.HitRate,
			"size":     stats.CacheLen,
		}
	}
	info["journal"] = s.services.History != nil
	return map[string]interface{}{"info": info}, nil
}
