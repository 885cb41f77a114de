// Package httpserver exposes the health and metrics endpoints over a
// single HTTP listener. Grounded on the teacher's main.go Server:
// http.Server + ReadHeaderTimeout + goroutine + error channel +
// Shutdown(ctx), generalized into a standalone component whose
// graceful shutdown is one synchronous Stop call.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownGrace     = 10 * time.Second
)

// Server serves /health and /metrics (paths configurable) for one
// generation's registry.
type Server struct {
	httpSrv *http.Server
	errCh   chan error
}

// New builds a Server bound to addr, exposing gatherer's exposition
// format at metricsPath and a bare 200 at healthPath. Anything else
// gets a 404. It does not start listening until Start is called.
func New(addr, healthPath, metricsPath string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		httpSrv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		errCh: make(chan error, 1),
	}
}

// Start binds the listener and begins serving. A bind error is
// returned synchronously; any error occurring after that point (other
// than a clean shutdown) is delivered on ErrorChan.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.httpSrv.Addr, err)
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	return nil
}

// ErrorChan surfaces asynchronous server errors encountered after Start returned.
func (s *Server) ErrorChan() <-chan error {
	return s.errCh
}

// Stop triggers a graceful shutdown: the server stops accepting new
// connections and drains in-flight requests for up to shutdownGrace.
// Stop does not return until that has happened, collapsing the
// stop_trigger/stopped_signal handshake into one synchronous call —
// the supervisor's shutdown sequence already calls Stop synchronously
// before moving to the next step.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		log.Errorf("http server shutdown: %v", err)
		return err
	}
	return nil
}
