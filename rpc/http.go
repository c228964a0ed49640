package rpc

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"htlcnet/core"
)

const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Server exposes the swap engine operations, admin methods and registry
// queries over JSON-RPC 2.0. Mutating methods require the configured bearer
// token and a declared caller address; the engine itself never sees HTTP.
type Server struct {
	node      *core.Node
	authToken string
	log       *slog.Logger
}

// NewServer wires an RPC server over the node.
func NewServer(node *core.Node, authToken string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{node: node, authToken: strings.TrimSpace(authToken), log: log}
}

// Start serves the RPC endpoint and the metrics handler until the listener
// fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("rpc listening", "addr", addr)
	return server.ListenAndServe()
}

// Handler returns the root handler for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return mux
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "rpc auth token not configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "missing bearer token"}
	}
	if strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")) != s.authToken {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid bearer token"}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "invalid_request", "POST required")
		return
	}
	var req RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "invalid_request", err.Error())
		return
	}

	started := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	switch req.Method {
	case "htlc_initiateSwap":
		s.handleInitiateSwap(recorder, r, &req)
	case "htlc_participate":
		s.handleParticipate(recorder, r, &req)
	case "htlc_claimWithSecret":
		s.handleClaimWithSecret(recorder, r, &req)
	case "htlc_claimInitiator":
		s.handleClaimInitiator(recorder, r, &req)
	case "htlc_refundTimeout":
		s.handleRefundTimeout(recorder, r, &req)
	case "htlc_cancelSwap":
		s.handleCancelSwap(recorder, r, &req)
	case "htlc_setTimelockBounds":
		s.handleSetTimelockBounds(recorder, r, &req)
	case "htlc_setProtocolFee":
		s.handleSetProtocolFee(recorder, r, &req)
	case "htlc_toggleEmergencyPause":
		s.handleToggleEmergencyPause(recorder, r, &req)
	case "htlc_withdrawFees":
		s.handleWithdrawFees(recorder, r, &req)
	case "htlc_getSwap":
		s.handleGetSwap(recorder, r, &req)
	case "htlc_getSwapParticipant":
		s.handleGetSwapParticipant(recorder, r, &req)
	case "htlc_getUserSwaps":
		s.handleGetUserSwaps(recorder, r, &req)
	case "htlc_getUserStats":
		s.handleGetUserStats(recorder, r, &req)
	case "htlc_getSecretHashInfo":
		s.handleGetSecretHashInfo(recorder, r, &req)
	case "htlc_getRouteStats":
		s.handleGetRouteStats(recorder, r, &req)
	case "htlc_verifySecretHash":
		s.handleVerifySecretHash(recorder, r, &req)
	case "htlc_isSwapExpired":
		s.handleIsSwapExpired(recorder, r, &req)
	case "htlc_getProtocolStats":
		s.handleGetProtocolStats(recorder, r, &req)
	case "htlc_getBalance":
		s.handleGetBalance(recorder, r, &req)
	case "htlc_getEvents":
		s.handleGetEvents(recorder, r, &req)
	default:
		writeError(recorder, http.StatusNotFound, req.ID, codeMethodNotFound, "method_not_found", req.Method)
	}
	observeRequest(req.Method, recorder.status, time.Since(started))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
