// Package api serves the gateway over HTTP/JSON.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Klingon-tech/clawshield/internal/asset"
	klog "github.com/Klingon-tech/clawshield/internal/log"
	"github.com/Klingon-tech/clawshield/internal/rpc"
	"github.com/Klingon-tech/clawshield/internal/shield"
	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Gateway is the set of operations the HTTP surface exposes.
// *shield.Service implements it.
type Gateway interface {
	Balance(ctx context.Context, owner types.PublicKey, a *asset.Config, key *shieldkey.Key) (float64, error)
	BuildShield(ctx context.Context, owner types.PublicKey, a *asset.Config, amount float64, key *shieldkey.Key) (*shield.CapturedTransaction, error)
	Withdraw(ctx context.Context, owner types.PublicKey, recipient string, a *asset.Config, amount float64, key *shieldkey.Key) (*shield.WithdrawalResult, error)
	Submit(ctx context.Context, signedTxBase64 string) (*shield.SubmissionResult, error)
	Health(ctx context.Context) shield.Health
}

// Options holds transport settings.
type Options struct {
	AllowedIPs  []string // IPs/CIDRs allowed to connect. Empty = allow all.
	CORSOrigins []string // Allowed CORS origins. Empty = no CORS headers.
}

// Server is the gateway HTTP server.
type Server struct {
	addr        string
	gw          Gateway
	router      chi.Router
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowedNets []*net.IPNet
	corsOrigins []string
}

// New creates a server for gw. Routes are served at the root and under
// /api.
func New(addr string, gw Gateway, opts Options) *Server {
	s := &Server{
		addr:        addr,
		gw:          gw,
		logger:      klog.API,
		allowedNets: rpc.ParseAllowedIPs(opts.AllowedIPs),
		corsOrigins: opts.CORSOrigins,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(s.logRequests)
	mux.Use(middleware.Recoverer)
	mux.Use(s.filterIPs)
	mux.Use(s.cors)
	mux.Use(limitBody)

	mux.Group(s.routes)
	mux.Route("/api", s.routes)
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router = mux

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Submit waits for confirmation, which can take the whole
		// blockhash validity window.
		WriteTimeout: 3 * time.Minute,
	}
	return s
}

func (s *Server) routes(r chi.Router) {
	r.Post("/balance", s.handleBalance)
	r.Post("/shield", s.handleShield)
	r.Post("/withdraw", s.handleWithdraw)
	r.Post("/submit", s.handleSubmit)
	r.Get("/status", s.handleStatus)
	r.Post("/status", s.handleStatus)
}

// ServeHTTP lets the server be mounted on another mux or an httptest
// server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("API server listening")
	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// URL returns the base http URL of the bound listener.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
