package metricsndmp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry *prometheus.Registry

// InitRegistry creates the process-wide metrics registry. Call once
// during startup before constructing a Prometheus-backed Metrics; callers
// that never call InitRegistry get IsEnabled()==false and every New*
// constructor returns nil.
func InitRegistry() *prometheus.Registry {
	registry = prometheus.NewRegistry()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// Serve runs a /metrics HTTP endpoint over the registry until ctx is
// cancelled. It is a no-op if metrics were never enabled.
func Serve(ctx context.Context, addr string) error {
	if !IsEnabled() {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metricsndmp: serve: %w", err)
		}
		return nil
	}
}
