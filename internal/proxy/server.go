// Package proxy is the photo proxy the new-tab client talks to. It keeps one
// upstream answer per query for a while and limits each client's request rate.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lepinkainen/tabskin/pkg/api"
	"github.com/lepinkainen/tabskin/pkg/errs"
)

// Options configures the proxy
type Options struct {
	CacheTTL         time.Duration
	CacheSize        int
	RateLimitPerHour int
	ShutdownTimeout  time.Duration
}

// DefaultOptions mirrors the built-in configuration
func DefaultOptions() Options {
	return Options{
		CacheTTL:         12 * time.Hour,
		CacheSize:        256,
		RateLimitPerHour: 20,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Server serves /photos and /download in front of the photo service
type Server struct {
	upstream Upstream
	cache    *photoCache
	limiter  *clientLimiter
	opts     Options
	router   chi.Router
}

// New builds the proxy router
func New(upstream Upstream, opts Options) *Server {
	defaults := DefaultOptions()
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaults.CacheTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaults.CacheSize
	}
	if opts.RateLimitPerHour <= 0 {
		opts.RateLimitPerHour = defaults.RateLimitPerHour
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaults.ShutdownTimeout
	}

	s := &Server{
		upstream: upstream,
		cache:    newPhotoCache(opts.CacheSize, opts.CacheTTL),
		limiter:  newClientLimiter(opts.RateLimitPerHour),
		opts:     opts,
	}

	r := chi.NewRouter()
	r.Use(requestID, logRequests, allowAnyOrigin)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Get("/photos", s.handlePhotos)
		r.Post("/download", s.handleDownload)
	})

	s.router = r
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Photo proxy listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down photo proxy")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("proxy server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("proxy shutdown: %w", err)
	}
	slog.Info("Photo proxy stopped")
	return nil
}

// readiness is implemented by upstreams that track their own call budget
type readiness interface {
	Ready() bool
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	upstream := "ok"
	if r, ok := s.upstream.(readiness); ok && !r.Ready() {
		upstream = "throttled"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"upstream":       upstream,
		"cached_queries": s.cache.Len(),
	})
}

// handlePhotos answers from the cache unless refresh is present. A refresh
// still reaches the photo service but its answer is not stored.
func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request) {
	query := NormalizeQuery(r.URL.Query().Get("query"))
	key := CacheKey(query)
	refresh := r.URL.Query().Has("refresh")

	if !refresh {
		if body, ok := s.cache.Get(key); ok {
			slog.Debug("Photo cache hit", "query", key)
			writeRawJSON(w, body)
			return
		}
		slog.Debug("Photo cache miss", "query", key)
	}

	body, err := s.upstream.RandomPhoto(r.Context(), query)
	if err == nil && !json.Valid(body) {
		err = errs.Malformed("body")
	}
	if err != nil {
		upstreamErrorsTotal.WithLabelValues("photos").Inc()
		slog.Error("Failed to fetch photo", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if refresh {
		slog.Debug("Refresh served, cache not updated", "query", key)
	} else {
		s.cache.Set(key, body)
	}
	writeRawJSON(w, body)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req api.DownloadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil || req.DownloadLocation == "" {
		writeError(w, http.StatusBadRequest,
			platformerrors.New(platformerrors.CodeInvalidInput, "downloadLocation is required"))
		return
	}

	if err := s.upstream.TrackDownload(r.Context(), req.DownloadLocation); err != nil {
		status := http.StatusInternalServerError
		if platformerrors.GetCode(err) == platformerrors.CodeInvalidInput {
			status = http.StatusBadRequest
		} else {
			upstreamErrorsTotal.WithLabelValues("download").Inc()
		}
		slog.Warn("Failed to track download", "error", err)
		writeError(w, status, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeRawJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

// writeError renders err as {"error": {...}} without its wrapped chain
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": platformerrors.ToJSON(err)})
}
