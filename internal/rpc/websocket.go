package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsReadLimit  = 512 * 1024
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsWriteWait  = 10 * time.Second
	wsSendBuffer = 256
)

// WebSocketServer serves RPC methods and the offers stream over WebSocket.
// Messages carry the method in "command" with params at the top level:
//
//	{"id": 1, "command": "subscribe", "streams": ["offers"], "offer_ids": [3]}
type WebSocketServer struct {
	upgrader  websocket.Upgrader
	server    *Server
	publisher *Publisher
	logger    *zap.Logger

	mu    sync.RWMutex
	conns map[string]*wsConnection
}

type wsConnection struct {
	id     string
	ip     string
	conn   *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newWebSocketServer(s *Server, publisher *Publisher) *WebSocketServer {
	return &WebSocketServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		server:    s,
		publisher: publisher,
		logger:    s.logger.Named("ws"),
		conns:     make(map[string]*wsConnection),
	}
}

func (ws *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &wsConnection{
		id:     uuid.NewString(),
		ip:     clientIP(r),
		conn:   conn,
		send:   make(chan []byte, wsSendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}

	ws.mu.Lock()
	ws.conns[c.id] = c
	ws.mu.Unlock()
	ws.logger.Debug("connection opened", zap.String("connection", c.id), zap.String("client", c.ip))

	go ws.writeLoop(c)
	ws.readLoop(c)
}

// ConnectionCount returns the number of open connections.
func (ws *WebSocketServer) ConnectionCount() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.conns)
}

// Close drops every connection.
func (ws *WebSocketServer) Close() {
	ws.mu.RLock()
	conns := make([]*wsConnection, 0, len(ws.conns))
	for _, c := range ws.conns {
		conns = append(conns, c)
	}
	ws.mu.RUnlock()

	for _, c := range conns {
		ws.closeConnection(c)
	}
}

func (ws *WebSocketServer) readLoop(c *wsConnection) {
	defer ws.closeConnection(c)

	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.Debug("read failed", zap.String("connection", c.id), zap.Error(err))
			}
			return
		}
		ws.handleMessage(c, message)
	}
}

func (ws *WebSocketServer) writeLoop(c *wsConnection) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				ws.closeConnection(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ws.closeConnection(c)
				return
			}
		}
	}
}

type subscribeParams struct {
	Streams  []string `json:"streams"`
	OfferIDs []uint64 `json:"offer_ids,omitempty"`
}

func (ws *WebSocketServer) handleMessage(c *wsConnection, message []byte) {
	var cmd map[string]json.RawMessage
	if err := json.Unmarshal(message, &cmd); err != nil {
		ws.sendError(c, nil, NewRpcError(RpcPARSE_ERROR, "jsonInvalid", "Invalid JSON: "+err.Error()))
		return
	}

	var id interface{}
	if raw, ok := cmd["id"]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	var command string
	if raw, ok := cmd["command"]; !ok || json.Unmarshal(raw, &command) != nil || command == "" {
		ws.sendError(c, id, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "Missing command field"))
		return
	}
	delete(cmd, "command")
	delete(cmd, "id")

	params, _ := json.Marshal(cmd)

	switch command {
	case "subscribe", "unsubscribe":
		var p subscribeParams
		if rpcErr := decodeParams(params, &p); rpcErr != nil {
			ws.sendError(c, id, rpcErr)
			return
		}
		if rpcErr := validStreams(p.Streams); rpcErr != nil {
			ws.sendError(c, id, rpcErr)
			return
		}
		if command == "subscribe" {
			ws.publisher.Subscribe(c.id, c.send, p.OfferIDs)
		} else {
			ws.publisher.Unsubscribe(c.id, p.OfferIDs)
		}
		ws.sendResult(c, id, map[string]interface{}{})
		return
	}

	result, rpcErr := ws.server.Execute(c.ctx, command, params, c.ip)
	if rpcErr != nil {
		ws.sendError(c, id, rpcErr)
		return
	}
	ws.sendResult(c, id, result)
}

func validStreams(streams []string) *RpcError {
	if len(streams) == 0 {
		return RpcErrorMissingField("streams")
	}
	for _, s := range streams {
		if s != StreamOffers {
			return NewRpcError(RpcSTREAM_MALFORMED, "malformedStream", "Unknown stream '"+s+"'.")
		}
	}
	return nil
}

func (ws *WebSocketServer) sendResult(c *wsConnection, id interface{}, result interface{}) {
	response := map[string]interface{}{
		"type":   "response",
		"status": "success",
		"result": result,
	}
	if id != nil {
		response["id"] = id
	}
	ws.send(c, response)
}

// sendError writes error fields at the top level of the response.
func (ws *WebSocketServer) sendError(c *wsConnection, id interface{}, rpcErr *RpcError) {
	response := map[string]interface{}{
		"type":          "response",
		"status":        "error",
		"error":         rpcErr.ErrorString,
		"error_code":    rpcErr.Code,
		"error_message": rpcErr.Message,
	}
	if rpcErr.Class != "" {
		response["error_class"] = rpcErr.Class
	}
	if id != nil {
		response["id"] = id
	}
	ws.send(c, response)
}

func (ws *WebSocketServer) send(c *wsConnection, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		ws.logger.Error("failed to marshal response", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		ws.logger.Warn("send buffer full, closing connection", zap.String("connection", c.id))
		ws.closeConnection(c)
	}
}

func (ws *WebSocketServer) closeConnection(c *wsConnection) {
	c.once.Do(func() {
		c.cancel()
		ws.publisher.Unsubscribe(c.id, nil)

		ws.mu.Lock()
		delete(ws.conns, c.id)
		ws.mu.Unlock()

		_ = c.conn.Close()
		ws.logger.Debug("connection closed", zap.String("connection", c.id))
	})
}
