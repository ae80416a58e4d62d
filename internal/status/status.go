// Package status serves a read-only HTTP view of a running auctioneer:
// liveness, readiness, the current auction state and the metrics
// snapshot.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bidmaster/internal/auction"
	ncerr "bidmaster/internal/errors"
	"bidmaster/internal/metrics"
	"bidmaster/util"
)

// Source provides the auction state to report.
type Source interface {
	State() auction.State
}

// Handler holds the route handlers.
type Handler struct {
	source  Source
	metrics *metrics.Collector
	log     *util.Logger
}

// NewHandler creates a Handler.  metrics may be nil.
func NewHandler(src Source, m *metrics.Collector, logger *util.Logger) *Handler {
	return &Handler{source: src, metrics: m, log: logger}
}

// RegisterRoutes registers the status routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/livez", h.handleLive)
	r.Get("/readyz", h.handleReady)
	r.Get("/auction", h.handleAuction)
	r.Get("/metrics", h.handleMetrics)
}

// Router returns a chi router with every status route registered.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n")) //nolint:errcheck
}

// handleReady answers 200 while the auction admits bidders.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !h.source.State().Running {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("auction not running\n")) //nolint:errcheck
		return
	}
	w.Write([]byte("ok\n")) //nolint:errcheck
}

func (h *Handler) handleAuction(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.source.State())
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.metrics.Snapshot())
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("status: %s %s %d %s (%s)", r.Method, r.URL.Path, ww.Status(),
			time.Since(start).Truncate(time.Microsecond), middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v) //nolint:errcheck
}

// ── Server ───────────────────────────────────────────────────────────

// Server runs the status routes on their own listener.
type Server struct {
	Address string
	Handler *Handler
	Logger  *util.Logger

	mu   sync.Mutex
	srv  *http.Server
	addr net.Addr
	done chan struct{}
}

// Start binds Address and serves in the background.  Bind failures are
// returned as a NetworkError with Op "listen".
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Address)
	if err != nil {
		return ncerr.Wrap("listen", s.Address, err)
	}

	srv := &http.Server{
		Handler:           s.Handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})

	s.mu.Lock()
	s.srv, s.addr, s.done = srv, ln.Addr(), done
	s.mu.Unlock()

	s.Logger.Info("status API on http://%s", ln.Addr())
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("status API: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops the server, waiting for in-flight requests until ctx
// expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	<-done
	return err
}
