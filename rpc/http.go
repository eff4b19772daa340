package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"commune/core"
	"commune/native/common"
)

const (
	jsonRPCVersion         = "2.0"
	defaultMaxRequestBytes = 256 << 10
	authTokenEnv           = "COMMUNE_RPC_TOKEN"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeNotFound       = -32004
	codeAlreadyExists  = -32005
	codePrecondition   = -32006
	codeExhausted      = -32007
	codeRateLimited    = -32020
)

// Options tune the server. Zero values fall back to sane defaults.
type Options struct {
	RateLimit         rate.Limit
	RateBurst         int
	MaxRequestBytes   int64
	MetricsEnabled    bool
	ReadOnlyUnlimited bool
}

type Server struct {
	node  *core.Node
	log   *slog.Logger
	opts  Options
	token string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewServer builds a server over the node. The mutating-method bearer token
// comes from COMMUNE_RPC_TOKEN.
func NewServer(node *core.Node, log *slog.Logger, opts Options) *Server {
	if log == nil {
		log = slog.Default()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 50
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 100
	}
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = defaultMaxRequestBytes
	}
	return &Server{
		node:     node,
		log:      log,
		opts:     opts,
		token:    strings.TrimSpace(os.Getenv(authTokenEnv)),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Start serves JSON-RPC on addr until the listener fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	if s.opts.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	s.log.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, mux)
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

// writeEngineError maps the engine error taxonomy onto JSON-RPC codes.
// Everything except Fatal is the caller's fault.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	code := codeServerError
	status := http.StatusInternalServerError
	switch common.CategoryOf(err) {
	case common.ErrValidation:
		code, status = codeInvalidParams, http.StatusBadRequest
	case common.ErrNotFound:
		code, status = codeNotFound, http.StatusBadRequest
	case common.ErrAlreadyExists:
		code, status = codeAlreadyExists, http.StatusBadRequest
	case common.ErrPrecondition:
		code, status = codePrecondition, http.StatusBadRequest
	case common.ErrExhausted:
		code, status = codeExhausted, http.StatusBadRequest
	}
	writeError(w, status, id, code, err.Error(), nil)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

type methodSpec struct {
	handler  handlerFunc
	mutating bool
}

func (s *Server) methods() map[string]methodSpec {
	return map[string]methodSpec{
		"commune_createProfile":     {s.handleCreateProfile, true},
		"commune_updateProfile":     {s.handleUpdateProfile, true},
		"commune_completeTutorial":  {s.handleCompleteTutorial, true},
		"commune_setProfilePicture": {s.handleSetProfilePicture, true},
		"commune_createGroup":       {s.handleCreateGroup, true},
		"commune_joinGroup":         {s.handleJoinGroup, true},
		"commune_markRead":          {s.handleMarkRead, true},
		"commune_sendMessage":       {s.handleSendMessage, true},
		"commune_tipMessage":        {s.handleTipMessage, true},
		"commune_createInvite":      {s.handleCreateInvite, true},
		"commune_useInvite":         {s.handleUseInvite, true},
		"commune_createEscrow":      {s.handleCreateEscrow, true},
		"commune_acceptEscrow":      {s.handleAcceptEscrow, true},
		"commune_completeEscrow":    {s.handleCompleteEscrow, true},
		"commune_cancelEscrow":      {s.handleCancelEscrow, true},
		"commune_createChallenge":   {s.handleCreateChallenge, true},
		"commune_submitMeme":        {s.handleSubmitMeme, true},
		"commune_voteMeme":          {s.handleVoteMeme, true},
		"commune_endChallenge":      {s.handleEndChallenge, true},
		"commune_getProfile":        {s.handleGetProfile, false},
		"commune_getGroup":          {s.handleGetGroup, false},
		"commune_getMember":         {s.handleGetMember, false},
		"commune_getMessage":        {s.handleGetMessage, false},
		"commune_getInvite":         {s.handleGetInvite, false},
		"commune_getEscrow":         {s.handleGetEscrow, false},
		"commune_getChallenge":      {s.handleGetChallenge, false},
		"commune_getSubmission":     {s.handleGetSubmission, false},
		"commune_getBalance":        {s.handleGetBalance, false},
		"commune_deriveAddress":     {s.handleDeriveAddress, false},
	}
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	requestID := uuid.NewString()

	reader := http.MaxBytesReader(w, r.Body, s.opts.MaxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.opts.MaxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	spec, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}

	if spec.mutating || !s.opts.ReadOnlyUnlimited {
		if !s.allowSource(clientSource(r)) {
			rateLimitedTotal.Inc()
			writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
			return
		}
	}
	if spec.mutating {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	spec.handler(recorder, r, req)

	requestDuration.WithLabelValues(req.Method).Observe(time.Since(started).Seconds())
	requestsTotal.WithLabelValues(req.Method, fmt.Sprintf("%d", recorder.status)).Inc()
	s.log.Debug("rpc request",
		"method", req.Method,
		"status", recorder.status,
		"durationMs", time.Since(started).Milliseconds(),
		"requestId", requestID,
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) allowSource(source string) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	limiter, ok := s.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(s.opts.RateLimit, s.opts.RateBurst)
		s.limiters[source] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
