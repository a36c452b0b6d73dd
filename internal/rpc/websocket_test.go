package rpc_test

import (
	"context"
	"strings"
	"testing"
	"time"

	mtest "github.com/LeJamon/goMarketd/internal/testing"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketOfferStream(t *testing.T) {
	s := newTestServer(t)
	conn := dialWS(t, s)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"id":      1,
		"command": "subscribe",
		"streams": []string{"offers"},
	}))
	resp := readWS(t, conn)
	assert.Equal(t, "response", resp["type"])
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, float64(1), resp["id"])
	assert.Equal(t, 1, s.server.Publisher().SubscriberCount())

	seller := s.env.Account("seller")
	s.env.MintItems(seller, 5, 2)
	s.env.ApproveMarket(seller)
	id := s.env.CreateOffer(seller, 5, 2, mtest.Units(10), time.Hour)

	ev := readWS(t, conn)
	assert.Equal(t, "offerEvent", ev["type"])
	assert.Equal(t, "OfferCreated", ev["event"])
	assert.Equal(t, float64(id), ev["offer_id"])

	require.NoError(t, s.env.Engine.CancelOffer(context.Background(), seller.Address, id))
	ev = readWS(t, conn)
	assert.Equal(t, "OfferCancelled", ev["event"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 2, "command": "unsubscribe", "streams": []string{"offers"}}))
	resp = readWS(t, conn)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, 0, s.server.Publisher().SubscriberCount())
}

func TestWebSocketFilteredSubscription(t *testing.T) {
	s := newTestServer(t)
	conn := dialWS(t, s)
	seller := s.env.Account("seller")
	s.env.MintItems(seller, 5, 10)
	s.env.ApproveMarket(seller)

	first := s.env.CreateOffer(seller, 5, 1, mtest.Units(10), time.Hour)
	second := s.env.CreateOffer(seller, 5, 1, mtest.Units(10), time.Hour)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"command":   "subscribe",
		"streams":   []string{"offers"},
		"offer_ids": []uint64{second},
	}))
	assert.Equal(t, "success", readWS(t, conn)["status"])

	ctx := context.Background()
	require.NoError(t, s.env.Engine.CancelOffer(ctx, seller.Address, first))
	require.NoError(t, s.env.Engine.CancelOffer(ctx, seller.Address, second))

	ev := readWS(t, conn)
	assert.Equal(t, float64(second), ev["offer_id"], "events for other offers are filtered")
}

func TestWebSocketCommands(t *testing.T) {
	s := newTestServer(t)
	conn := dialWS(t, s)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": "a", "command": "fee_config"}))
	resp := readWS(t, conn)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "a", resp["id"])
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(mtest.DefaultFee), result["fee_rate"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"command": "subscribe", "streams": []string{"ledger"}}))
	resp = readWS(t, conn)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "malformedStream", resp["error"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 3}))
	resp = readWS(t, conn)
	assert.Equal(t, "missingCommand", resp["error"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	resp = readWS(t, conn)
	assert.Equal(t, "jsonInvalid", resp["error"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"command": "get_offer", "offer_id": 42}))
	resp = readWS(t, conn)
	assert.Equal(t, "success", resp["status"])
}
