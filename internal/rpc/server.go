// Package rpc implements a JSON-RPC 2.0 HTTP server with a method registry.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	klog "github.com/Klingon-tech/clawshield/internal/log"
	"github.com/rs/zerolog"
)

const (
	// maxBodySize is the maximum allowed request body size (1 MB).
	maxBodySize = 1 << 20
	// maxBatchSize caps the number of calls in one batch request.
	maxBatchSize = 100
)

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr        string
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowedNets []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a new RPC server. Methods are added with Handle before or
// after Start.
func New(addr string, opts Options) *Server {
	s := &Server{
		addr:        addr,
		logger:      klog.RPC,
		allowedNets: ParseAllowedIPs(opts.AllowedIPs),
		corsOrigins: opts.CORSOrigins,
		handlers:    make(map[string]Handler),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handle registers h for method, replacing any previous handler.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// ServeHTTP lets the server be mounted on another mux or an httptest
// server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handleRequest(w, r)
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// URL returns the http URL of the bound listener.
func (s *Server) URL() string {
	return "http://" + s.Addr() + "/"
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleRequest is the main HTTP handler for JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if !RemoteAllowed(s.allowedNets, r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	s.setCORSHeaders(w, r)

	// Handle CORS preflight.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		s.serveBatch(w, trimmed)
		return
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}
	writeJSON(w, s.serveOne(&req))
}

// serveBatch answers a JSON-RPC batch with an array of responses in
// request order.
func (s *Server) serveBatch(w http.ResponseWriter, body []byte) {
	var reqs []json.RawMessage
	if err := json.Unmarshal(body, &reqs); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}
	if len(reqs) == 0 {
		writeError(w, nil, CodeInvalidRequest, "empty batch")
		return
	}
	if len(reqs) > maxBatchSize {
		writeError(w, nil, CodeInvalidRequest, fmt.Sprintf("batch of %d exceeds limit %d", len(reqs), maxBatchSize))
		return
	}

	out := make([]Response, 0, len(reqs))
	for _, raw := range reqs {
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			out = append(out, Response{JSONRPC: "2.0", Error: &Error{Code: CodeInvalidRequest, Message: "invalid request"}})
			continue
		}
		out = append(out, s.serveOne(&req))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) serveOne(req *Request) Response {
	if req.JSONRPC != "2.0" {
		return Response{JSONRPC: "2.0", Error: &Error{Code: CodeInvalidRequest, Message: "jsonrpc must be \"2.0\""}, ID: req.ID}
	}
	result, rpcErr := s.dispatch(req)
	if rpcErr != nil {
		s.logger.Debug().Str("method", req.Method).Int("code", rpcErr.Code).Msg(rpcErr.Message)
		return Response{JSONRPC: "2.0", Error: rpcErr, ID: req.ID}
	}
	return Response{JSONRPC: "2.0", Result: result, ID: req.ID}
}

// dispatch routes a request to its registered handler.
func (s *Server) dispatch(req *Request) (interface{}, *Error) {
	s.mu.RLock()
	h, ok := s.handlers[req.Method]
	s.mu.RUnlock()
	if !ok {
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
	return h(req.Params)
}

// writeJSON writes a JSON-RPC response.
func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}
	value, ok := MatchOrigin(s.corsOrigins, r.Header.Get("Origin"))
	if !ok {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", value)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// ParseParams unmarshals the request params into the given target.
func ParseParams(params json.RawMessage, target interface{}) *Error {
	if len(params) == 0 || string(params) == "null" {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}
	if err := json.Unmarshal(params, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
