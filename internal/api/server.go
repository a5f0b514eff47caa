// Package api exposes the transfer engine over HTTP. Mutating endpoints take
// the caller identity from the X-Caller-Address header, set by the fronting
// auth proxy; the bridge router authenticates upstream the same way. The
// service shell supplies the per-call clock reading the engine uses for the
// antibot window.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/engine"
	"bridged-token-ledger/internal/events"
	"bridged-token-ledger/internal/observability"
	"bridged-token-ledger/internal/storage"
)

// callerHeader carries the authenticated caller address.
const callerHeader = "X-Caller-Address"

// Server routes HTTP requests to the engine and the event stores.
type Server struct {
	engine     *engine.Engine
	eventStore storage.EventStore
	hub        *events.Hub
	metrics    *observability.Metrics
	logger     *log.Logger
	now        func() int64
	mux        *http.ServeMux
}

// Options for creating a Server.
type Options struct {
	Engine     *engine.Engine
	EventStore storage.EventStore
	Hub        *events.Hub // optional; nil disables /v1/stream
	Metrics    *observability.Metrics
	Logger     *log.Logger
	// Now supplies the clock reading (unix ms) for each call. Defaults to
	// time.Now.
	Now func() int64
}

// NewServer builds the route table.
func NewServer(opts Options) *Server {
	s := &Server{
		engine:     opts.Engine,
		eventStore: opts.EventStore,
		hub:        opts.Hub,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if s.now == nil {
		s.now = func() int64 { return time.Now().UnixMilli() }
	}
	if s.logger == nil {
		s.logger = log.New(log.Writer(), "[api] ", log.LstdFlags)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/transfer", s.instrument("transfer", s.handleTransfer))
	mux.HandleFunc("POST /v1/transfer-from", s.instrument("transfer_from", s.handleTransferFrom))
	mux.HandleFunc("POST /v1/approve", s.instrument("approve", s.handleApprove))
	mux.HandleFunc("POST /v1/mint", s.instrument("mint", s.handleMint))
	mux.HandleFunc("POST /v1/burn", s.instrument("burn", s.handleBurn))
	mux.HandleFunc("POST /v1/whitelist", s.instrument("whitelist_add", s.handleWhitelistAdd))
	mux.HandleFunc("DELETE /v1/whitelist/{address}", s.instrument("whitelist_remove", s.handleWhitelistRemove))
	mux.HandleFunc("PUT /v1/threshold", s.instrument("threshold", s.handleThreshold))
	mux.HandleFunc("POST /v1/roles/grant", s.instrument("role_grant", s.handleRoleGrant))
	mux.HandleFunc("POST /v1/roles/revoke", s.instrument("role_revoke", s.handleRoleRevoke))
	mux.HandleFunc("GET /v1/accounts/{address}", s.instrument("account", s.handleAccount))
	mux.HandleFunc("GET /v1/supply", s.instrument("supply", s.handleSupply))
	mux.HandleFunc("GET /v1/allowance", s.instrument("allowance", s.handleAllowance))
	mux.HandleFunc("GET /v1/events", s.instrument("events", s.handleEvents))
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.hub != nil {
		mux.Handle("GET /v1/stream", s.hub)
	}
	s.mux = mux
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// instrument wraps a handler with request metrics.
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		s.metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// caller extracts and validates the authenticated caller address.
func (s *Server) caller(r *http.Request) (domain.Address, error) {
	raw := r.Header.Get(callerHeader)
	if raw == "" {
		return "", domain.ErrUnauthorized
	}
	return domain.ParseAddress(raw)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps the ledger error taxonomy to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		status = http.StatusInternalServerError
		code   = "internal"
	)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrSupplyCapExceeded):
		status, code = http.StatusConflict, "supply_cap_exceeded"
	case errors.Is(err, domain.ErrInsufficientBalance):
		status, code = http.StatusConflict, "insufficient_balance"
	case errors.Is(err, domain.ErrInsufficientAllowance):
		status, code = http.StatusConflict, "insufficient_allowance"
	case errors.Is(err, storage.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	}
	s.writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func (s *Server) decode(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return domain.ErrInvalidArgument
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
