package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// DiagnosticsServer exposes health and metrics endpoints for the running app.
type DiagnosticsServer struct {
	server *http.Server
}

// NewDiagnosticsServer builds the diagnostics HTTP server but does not start it.
func NewDiagnosticsServer(host string, port int, healthPath, metricsPath string, health *HealthManager, metrics *MetricsCollector) *DiagnosticsServer {
	router := mux.NewRouter()
	router.Handle(metricsPath, metrics.Handler()).Methods("GET")
	router.HandleFunc(healthPath, health.HTTPHandler()).Methods("GET")

	return &DiagnosticsServer{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start serves until Shutdown is called. It blocks, so run it in a goroutine.
func (s *DiagnosticsServer) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("diagnostics server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the diagnostics server
func (s *DiagnosticsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
