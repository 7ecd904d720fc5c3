package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartPrometheusServer serves the default registry on /metrics. Engine
// operation metrics reach it through the OpenTelemetry Prometheus exporter.
func StartPrometheusServer(port int) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           withMiddleware(router),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		// Errors after startup (like port in use) are logged but not fatal
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "prometheus server error: %v\n", err)
		}
	}()
	return server
}
