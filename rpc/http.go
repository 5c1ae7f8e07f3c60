package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"yakisoba/native/elb"
	"yakisoba/native/vault"
	"yakisoba/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Server exposes the vault and pool engines over JSON-RPC.
type Server struct {
	vault *vault.Engine
	pool  *elb.Engine
	log   *slog.Logger

	authToken string

	limitPerSecond rate.Limit
	burst          int
	mu             sync.Mutex
	visitors       map[string]*rate.Limiter
}

// Options tunes the server's admission control.
type Options struct {
	RequestsPerMinute float64
	Burst             int
	Logger            *slog.Logger
}

// NewServer builds a JSON-RPC server over the supplied engines. The mutation
// auth token is read from YAKISOBA_RPC_TOKEN; when unset every mutating method
// is rejected.
func NewServer(vaultEngine *vault.Engine, poolEngine *elb.Engine, opts Options) *Server {
	perSecond := opts.RequestsPerMinute / 60.0
	if perSecond <= 0 {
		perSecond = 10
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		vault:          vaultEngine,
		pool:           poolEngine,
		log:            logger,
		authToken:      strings.TrimSpace(os.Getenv("YAKISOBA_RPC_TOKEN")),
		limitPerSecond: rate.Limit(perSecond),
		burst:          burst,
		visitors:       make(map[string]*rate.Limiter),
	}
}

// Router assembles the HTTP surface: the JSON-RPC endpoint, a health probe and
// the Prometheus scrape endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/rpc", s.handle)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the router on addr and blocks until the listener fails.
func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
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
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) limiterFor(id string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.visitors[id]
	if !ok {
		limiter = rate.NewLimiter(s.limitPerSecond, s.burst)
		s.visitors[id] = limiter
	}
	return limiter
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1
}

// handle decodes one JSON-RPC envelope and dispatches it.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	if !s.limiterFor(clientID(r)).Allow() {
		observability.RPCMetrics().RecordThrottle("client")
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = "request body too large"
		}
		writeError(w, status, nil, codeInvalidRequest, message, nil)
		return
	}

	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON", nil)
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", nil)
		return
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found: "+req.Method, nil)
		return
	}
	if handler.mutates && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "unauthorized", nil)
		return
	}

	start := time.Now()
	result, rpcErr := handler.fn(req.Params)
	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
	}
	observability.RPCMetrics().Observe(req.Method, code, time.Since(start))

	if rpcErr != nil {
		s.log.Warn("rpc call failed", "method", req.Method, "code", rpcErr.Code, "reason", rpcErr.Message)
		writeError(w, http.StatusOK, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}

type methodHandler struct {
	fn      func(params []json.RawMessage) (interface{}, *RPCError)
	mutates bool
}

func (s *Server) methods() map[string]methodHandler {
	return map[string]methodHandler{
		"vault_getState":            {fn: s.handleGetState},
		"vault_getFees":             {fn: s.handleGetFees},
		"vault_getBalance":          {fn: s.handleGetBalance},
		"vault_getChains":           {fn: s.handleGetChains},
		"vault_getPool":             {fn: s.handleGetPool},
		"vault_previewDeposit":      {fn: s.handlePreviewDeposit},
		"vault_previewMint":         {fn: s.handlePreviewMint},
		"vault_previewWithdraw":     {fn: s.handlePreviewWithdraw},
		"vault_previewRedeem":       {fn: s.handlePreviewRedeem},
		"vault_balanceOfAt":         {fn: s.handleBalanceOfAt},
		"vault_totalSupplyAt":       {fn: s.handleTotalSupplyAt},
		"vault_estimateDispatch":    {fn: s.handleEstimateDispatch},
		"vault_deposit":             {fn: s.handleDeposit, mutates: true},
		"vault_mint":                {fn: s.handleMint, mutates: true},
		"vault_withdraw":            {fn: s.handleWithdraw, mutates: true},
		"vault_redeem":              {fn: s.handleRedeem, mutates: true},
		"vault_transfer":            {fn: s.handleTransfer, mutates: true},
		"vault_pause":               {fn: s.handlePause, mutates: true},
		"vault_unpause":             {fn: s.handleUnpause, mutates: true},
		"vault_setMaxTotalAssets":   {fn: s.handleSetMaxTotalAssets, mutates: true},
		"vault_setFees":             {fn: s.handleSetFees, mutates: true},
		"vault_takeFees":            {fn: s.handleTakeFees, mutates: true},
		"vault_snapshot":            {fn: s.handleSnapshot, mutates: true},
		"vault_addChain":            {fn: s.handleAddChain, mutates: true},
		"vault_setChainMaxDeposit":  {fn: s.handleSetChainMaxDeposit, mutates: true},
		"vault_dispatchAssets":      {fn: s.handleDispatchAssets, mutates: true},
		"vault_updateChainDebt":     {fn: s.handleUpdateChainDebt, mutates: true},
		"vault_receiveBridgedFunds": {fn: s.handleReceiveBridgedFunds, mutates: true},
		"vault_rebalancePool":       {fn: s.handleRebalancePool, mutates: true},
		"vault_enablePool":          {fn: s.handleEnablePool, mutates: true},
		"vault_increaseLiquidity":   {fn: s.handleIncreaseLiquidity, mutates: true},
		"vault_decreaseLiquidity":   {fn: s.handleDecreaseLiquidity, mutates: true},
		"vault_migratePool":         {fn: s.handleMigratePool, mutates: true},
		"vault_rescueToken":         {fn: s.handleRescueToken, mutates: true},
	}
}
