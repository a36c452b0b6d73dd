package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/ledger"
	"github.com/LeJamon/goMarketd/internal/core/market"
	"github.com/LeJamon/goMarketd/internal/core/oracle"
	"github.com/LeJamon/goMarketd/internal/storage/eventdb"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HistorySource reads journaled events.
type HistorySource interface {
	History(ctx context.Context, offerID uint64) ([]eventdb.Entry, error)
	Recent(ctx context.Context, limit int) ([]eventdb.Entry, error)
}

// Services are the components RPC handlers operate on.
type Services struct {
	Engine *market.Engine
	Store  market.OfferStore
	Oracle *oracle.Adapter

	// History is nil when no event journal is configured.
	History HistorySource

	// Sequences tracks signed tx sequences. Nil selects MemorySequences.
	Sequences SequenceStore

	// Ledger is the in-process ledger administered by the ledger_* methods.
	// It is only consulted in standalone mode.
	Ledger *ledger.Memory

	Standalone                bool
	SkipSignatureVerification bool
	Version                   string
}

// Config holds transport settings.
type Config struct {
	// Timeout bounds each method execution.
	Timeout time.Duration

	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int

	MaxBodyBytes int64
}

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 1 << 20
	maxTrackedClients   = 4096
)

// Server handles HTTP JSON-RPC requests.
type Server struct {
	registry  *MethodRegistry
	services  *Services
	config    Config
	publisher *Publisher
	ws        *WebSocketServer
	limiters  *lru.Cache[string, *rate.Limiter]
	sequences SequenceStore
	logger    *zap.Logger
	started   time.Time
}

// NewServer registers every method against services. publisher may be nil
// when no event stream is wanted.
func NewServer(services *Services, publisher *Publisher, config Config, logger *zap.Logger) (*Server, error) {
	if services == nil || services.Engine == nil {
		return nil, errors.New("rpc: engine is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	if config.RateLimit > 0 && config.RateBurst <= 0 {
		config.RateBurst = int(config.RateLimit) + 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = NewPublisher(logger)
	}

	limiters, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		return nil, err
	}

	s := &Server{
		registry:  NewMethodRegistry(),
		services:  services,
		config:    config,
		publisher: publisher,
		limiters:  limiters,
		sequences: services.Sequences,
		logger:    logger,
		started:   time.Now(),
	}
	if s.sequences == nil {
		s.sequences = NewMemorySequences()
	}
	s.registerAllMethods()
	s.ws = newWebSocketServer(s, publisher)
	return s, nil
}

// Handler returns the HTTP routes: JSON-RPC on /, WebSocket on /ws and a
// liveness probe on /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.ws)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/", s)
	return mux
}

// Publisher returns the event publisher feeding WebSocket subscribers.
func (s *Server) Publisher() *Publisher { return s.publisher }

// Close drops every WebSocket connection.
func (s *Server) Close() { s.ws.Close() }

// Methods lists the registered method names.
func (s *Server) Methods() []string { return s.registry.List() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		// GET serves parameterless queries: /?command=server_info
		method := r.URL.Query().Get("command")
		if method == "" {
			method = "server_info"
		}
		result, rpcErr := s.Execute(r.Context(), method, nil, clientIP(r))
		s.writeResponse(w, nil, result, rpcErr)
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		s.writeResponse(w, nil, nil, NewRpcError(RpcINVALID_REQUEST, "invalidRequest", "Failed to read request body"))
		return
	}
	defer r.Body.Close()

	var request Request
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeResponse(w, nil, nil, NewRpcError(RpcPARSE_ERROR, "jsonInvalid", "Invalid JSON: "+err.Error()))
		return
	}
	if request.Method == "" {
		s.writeResponse(w, request.ID, nil, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "Missing method field"))
		return
	}

	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	result, rpcErr := s.Execute(r.Context(), request.Method, params, clientIP(r))
	s.writeResponse(w, request.ID, result, rpcErr)
}

// Execute runs one method call. It is shared by the HTTP and WebSocket
// transports.
func (s *Server) Execute(ctx context.Context, method string, params json.RawMessage, ip string) (interface{}, *RpcError) {
	if !s.allow(ip) {
		return nil, RpcErrorSlowDown()
	}

	handler, exists := s.registry.Get(method)
	if !exists {
		return nil, RpcErrorMethodNotFound(method)
	}

	rpcCtx := &RpcContext{Method: method, ClientIP: ip}
	switch handler.RequiredRole() {
	case RoleStandalone:
		if !s.services.Standalone || s.services.Ledger == nil {
			return nil, RpcErrorNotStandalone(method)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	rpcCtx.Context = ctx

	if handler.RequiredRole() == RoleSigned {
		caller, tx, rpcErr := s.authenticate(ctx, method, params)
		if rpcErr != nil {
			return nil, rpcErr
		}
		rpcCtx.Caller = caller
		params = tx
	}

	start := time.Now()
	result, rpcErr := handler.Handle(rpcCtx, params)
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("client", ip),
		zap.Duration("elapsed", time.Since(start)),
	}
	if !rpcCtx.Caller.IsZero() {
		fields = append(fields, zap.Stringer("caller", rpcCtx.Caller))
	}
	if rpcErr != nil {
		if rpcErr.Code == RpcINTERNAL {
			s.logger.Error("rpc call failed", append(fields, zap.String("error", rpcErr.Message))...)
		} else {
			s.logger.Debug("rpc call rejected", append(fields, zap.String("error", rpcErr.ErrorString))...)
		}
	} else {
		s.logger.Debug("rpc call", fields...)
	}
	return result, rpcErr
}

// allow applies the per-client token bucket.
func (s *Server) allow(ip string) bool {
	if s.config.RateLimit <= 0 {
		return true
	}
	limiter, ok := s.limiters.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit), s.config.RateBurst)
		if prev, found, _ := s.limiters.PeekOrAdd(ip, limiter); found {
			limiter = prev
		}
	}
	return limiter.Allow()
}

// writeResponse writes {"result": {..., "status": "success"|"error"}}.
func (s *Server) writeResponse(w http.ResponseWriter, id interface{}, result interface{}, rpcErr *RpcError) {
	response := map[string]interface{}{
		"result": responseResult(result, rpcErr),
	}
	if id != nil {
		response["id"] = id
	}

	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("failed to marshal response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func responseResult(result interface{}, rpcErr *RpcError) map[string]interface{} {
	if rpcErr != nil {
		out := map[string]interface{}{
			"status":        "error",
			"error":         rpcErr.ErrorString,
			"error_code":    rpcErr.Code,
			"error_message": rpcErr.Message,
		}
		if rpcErr.Class != "" {
			out["error_class"] = rpcErr.Class
		}
		return out
	}

	if m, ok := result.(map[string]interface{}); ok {
		m["status"] = "success"
		return m
	}
	m, rpcErr := toMap(result)
	if rpcErr != nil || m == nil {
		return map[string]interface{}{"status": "success", "data": result}
	}
	m["status"] = "success"
	return m
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"uptime": int64(time.Since(s.started).Seconds()),
	})
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
