// Package metrics exposes a running benchmark over HTTP: Prometheus metrics
// on /metrics and the latest controller snapshot on /status.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kvbench/internal/runner"
	"kvbench/internal/stats"
)

const namespace = "kvbench"

// Exporter collects per-operation metrics from iteration reports.
type Exporter struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	iterations *prometheus.CounterVec
	workers    *prometheus.GaugeVec

	mu     sync.RWMutex
	status runner.StatsSnapshot
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Counter of executed operations.",
			}, []string{"type", "status"}),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Bucketed histogram of operation latency (s).",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 6),
			}, []string{"type"}),
		iterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "iterations_total",
				Help:      "Counter of completed iterations.",
			}, []string{"worker"}),
		workers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workers",
				Help:      "Workers by controller-side state.",
			}, []string{"state"}),
	}
	e.registry.MustRegister(e.operations, e.latency, e.iterations, e.workers)
	return e
}

// Observe records a completed iteration.
func (e *Exporter) Observe(rep runner.IterationReport) {
	for _, op := range rep.Operations {
		typ := "read"
		if op.Write {
			typ = "write"
		}
		e.operations.WithLabelValues(typ, strconv.Itoa(op.Status)).Inc()
		e.latency.WithLabelValues(typ).Observe(op.Duration().Seconds())
	}
	e.iterations.WithLabelValues(strconv.Itoa(rep.Worker)).Inc()
}

// SetStatus stores the latest controller snapshot.
func (e *Exporter) SetStatus(s runner.StatsSnapshot) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()

	e.workers.WithLabelValues("online").Set(float64(s.Online - s.Exited))
	e.workers.WithLabelValues("exited").Set(float64(s.Exited))
}

type statusResponse struct {
	State   string         `json:"state"`
	Workers int            `json:"workers"`
	Online  int            `json:"online"`
	Exited  int            `json:"exited"`
	Stats   stats.Snapshot `json:"stats"`
}

func (e *Exporter) handleStatus(w http.ResponseWriter, _ *http.Request) {
	e.mu.RLock()
	s := e.status
	e.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(statusResponse{
		State:   s.State.String(),
		Workers: s.Workers,
		Online:  s.Online,
		Exited:  s.Exited,
		Stats:   s.Stats,
	})
}

// Router serves /metrics and /status.
func (e *Exporter) Router() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/status", e.handleStatus).Methods(http.MethodGet)
	return router
}

// Serve listens on addr until ctx is cancelled.
func (e *Exporter) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           e.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.Info("metrics endpoint listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return errors.Wrap(err, "metrics endpoint")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
