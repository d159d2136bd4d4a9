package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the default Prometheus registry on /metrics.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server labelled with the service name. An empty address
// yields a server that is never started.
func New(name, addr string) (*MetricsServer, error) {
	if name == "" {
		return nil, errors.New("metrics server needs a service name")
	}

	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Name:        "service_info",
		Help:        "Constant 1, labelled with the service name",
		ConstLabels: prometheus.Labels{"service": name},
	})
	info.Set(1)

	registry := prometheus.NewRegistry()
	if err := registry.Register(info); err != nil {
		return nil, err
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.Gatherers{prometheus.DefaultGatherer, registry}, promhttp.HandlerOpts{}))

	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// Handler returns the HTTP handler, for tests and embedding.
func (m *MetricsServer) Handler() http.Handler {
	return m.srv.Handler
}
