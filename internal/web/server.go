// internal/web/server.go
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plcview/internal/config"
	"plcview/internal/query"
)

// Server is the HTTP face of the engine: dashboard page, JSON API, SSE
// stream, exports and Prometheus metrics. All reads go through the
// query service; nothing here can write to the store.
type Server struct {
	view   *query.Service
	broker *Broker
	log    *log.Logger
	stream time.Duration

	srv *http.Server
}

func New(cfg *config.Config, view *query.Service, logger *log.Logger) *Server {
	s := &Server{
		view:   view,
		broker: NewBroker(),
		log:    logger,
		stream: time.Duration(cfg.Stream.IntervalMs) * time.Millisecond,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/api/v1/signals", s.handleSignals)
	mux.HandleFunc("/api/v1/signal", s.handleSignal)
	mux.HandleFunc("/api/v1/data", s.handleData)
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/stream", s.handleStream)
	mux.HandleFunc("/api/v1/export/history.csv", s.handleExportCSV)
	mux.HandleFunc("/api/v1/export/history.xlsx", s.handleExportXLSX)
	mux.HandleFunc("/api/v1/export/status.pdf", s.handleExportPDF)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:    cfg.Listen,
		Handler: loggingMiddleware(logger, mux),
	}
	return s
}

// Handler exposes the routing, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run serves until the context is canceled, then shuts down gracefully.
// The SSE feeder shares the same lifetime.
func (s *Server) Run(ctx context.Context) error {
	go s.feedLoop(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutCtx)
}

// statusWriter records the response code for the request log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Flush passes through so SSE keeps working behind the middleware.
func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func loggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, sw.status, time.Since(start))
	})
}
