package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/LeJamon/goMarketd/internal/core/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func drain(ch chan []byte) []OfferEventMessage {
	var out []OfferEventMessage
	for {
		select {
		case data := <-ch:
			var msg OfferEventMessage
			var raw map[string]json.RawMessage
			if json.Unmarshal(data, &raw) == nil {
				_ = json.Unmarshal(raw["type"], &msg.Type)
				_ = json.Unmarshal(raw["event"], &msg.Event)
				_ = json.Unmarshal(raw["offer_id"], &msg.OfferID)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestPublisherFilters(t *testing.T) {
	p := NewPublisher(zaptest.NewLogger(t))
	ctx := context.Background()

	all := make(chan []byte, 8)
	some := make(chan []byte, 8)
	p.Subscribe("all", all, nil)
	p.Subscribe("some", some, []uint64{2})
	assert.Equal(t, 2, p.SubscriberCount())

	require.NoError(t, p.Emit(ctx, market.OfferExpiredEvent{ID: 1}))
	require.NoError(t, p.Emit(ctx, market.OfferExpiredEvent{ID: 2}))
	require.NoError(t, p.Emit(ctx, market.FeeRateChangedEvent{Old: 1, New: 2}))

	got := drain(all)
	require.Len(t, got, 3)
	assert.Equal(t, "offerEvent", got[0].Type)
	assert.Equal(t, "OfferExpired", got[0].Event)
	assert.Equal(t, uint64(1), *got[0].OfferID)
	assert.Equal(t, "FeeRateChanged", got[2].Event)
	assert.Nil(t, got[2].OfferID)

	got = drain(some)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), *got[0].OfferID)

	// Widening, then narrowing to nothing, removes the subscription.
	p.Subscribe("some", some, []uint64{3})
	p.Unsubscribe("some", []uint64{2})
	require.NoError(t, p.Emit(ctx, market.OfferExpiredEvent{ID: 3}))
	assert.Len(t, drain(some), 1)
	p.Unsubscribe("some", []uint64{3})
	assert.Equal(t, 1, p.SubscriberCount())

	p.Unsubscribe("all", nil)
	assert.Equal(t, 0, p.SubscriberCount())
}

func TestPublisherNeverBlocks(t *testing.T) {
	p := NewPublisher(zaptest.NewLogger(t))
	slow := make(chan []byte, 1)
	p.Subscribe("slow", slow, nil)

	for i := uint64(0); i < 5; i++ {
		require.NoError(t, p.Emit(context.Background(), market.OfferExpiredEvent{ID: i}))
	}
	assert.Len(t, slow, 1)
}
