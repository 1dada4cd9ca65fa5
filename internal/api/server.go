// Package api serves the dashboard data as read-only JSON.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"socdash/internal/alerts"
	"socdash/internal/dataset"
	"socdash/internal/logger"
	"socdash/internal/metrics"
	"socdash/internal/risk"
)

// Options controls the HTTP listener.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server exposes one loaded dataset. The dataset is shared across request
// goroutines and never mutated.
type Server struct {
	data   *dataset.Dataset
	scorer *risk.Scorer
	alerts alerts.Config
	opts   Options
}

// NewServer creates an API server over ds. scorer supplies the level
// ranges reported by /api/options; alertCfg is the default rule for
// /api/alerts.
func NewServer(ds *dataset.Dataset, scorer *risk.Scorer, alertCfg alerts.Config, opts Options) (*Server, error) {
	if ds == nil || scorer == nil {
		return nil, errors.New("dataset and scorer are required")
	}
	if _, err := alerts.NewDetector(alertCfg); err != nil {
		return nil, fmt.Errorf("invalid alert config: %w", err)
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	return &Server{data: ds, scorer: scorer, alerts: alertCfg, opts: opts}, nil
}

// Router builds the route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/summary", s.handleSummary)
		r.Get("/counts/{field}", s.handleCounts)
		r.Get("/geo", s.handleGeo)
		r.Get("/timeseries", s.handleTimeSeries)
		r.Get("/events", s.handleEvents)
		r.Get("/devices", s.handleDevices)
		r.Get("/devices/{device}", s.handleDevice)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/export.csv", s.handleExport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("API listening on %s", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	logger.Infof("API server stopped")
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	log := logger.Component("api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
