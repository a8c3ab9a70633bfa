// Package httpapi exposes the directory over JSON/HTTP. Reads are public;
// every mutation passes the admin gate first.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reseauechanges/annuaire/internal/common"
	"github.com/reseauechanges/annuaire/internal/logging"
	"github.com/reseauechanges/annuaire/internal/server/auth"
	"github.com/reseauechanges/annuaire/internal/server/metrics"
	"github.com/reseauechanges/annuaire/internal/server/repositories/entries"
)

const maxBodyBytes = 1 << 20

type Server struct {
	address      string
	repo         entries.Repository
	gate         *auth.Gate
	logger       logging.Logger
	metrics      *metrics.ServerMetrics
	registry     *prometheus.Registry
	storeTimeout time.Duration
}

func NewServer(
	address string,
	repo entries.Repository,
	gate *auth.Gate,
	logger logging.Logger,
	m *metrics.ServerMetrics,
	registry *prometheus.Registry,
	storeTimeout time.Duration,
) *Server {
	return &Server{
		address:      address,
		repo:         repo,
		gate:         gate,
		logger:       logger.With("module", "httpapi"),
		metrics:      m,
		registry:     registry,
		storeTimeout: storeTimeout,
	}
}

// Handler builds the route table. Kept separate from Run so tests can drive
// the server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/entries", s.instrument(s.handleEntries))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting http server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleList(w, r)
	case http.MethodPost:
		if r.URL.Query().Get("overwrite") == "1" {
			s.handleOverwrite(w, r)
		} else {
			s.handleCreate(w, r)
		}
	case http.MethodPatch:
		s.handleUpdate(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, PATCH, DELETE")
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// authorize runs the admin gate on the request. It writes the 401 itself
// and reports whether the caller may proceed.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	if !s.gate.Authorize(r.Header.Get(common.AdminTokenHeaderName)) {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

// opContext bounds every storage call with the configured timeout.
func (s *Server) opContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.storeTimeout)
}

// instrument counts requests by method and status class.
func (s *Server) instrument(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.metrics.Requests.WithLabelValues(r.Method, fmt.Sprintf("%dxx", rec.status/100)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeRepoError maps the error taxonomy onto HTTP statuses. Validation
// messages travel to the caller verbatim; store failures do not.
func (s *Server) writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrUnauthorized):
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		s.logger.Error(r.Context(), "store operation failed", "method", r.Method, "error", err)
		s.writeError(w, http.StatusInternalServerError, "store unavailable")
	}
}
