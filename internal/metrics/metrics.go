//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package metrics exposes Prometheus metrics for sync cycles and merges.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/pgEdge/pgedge-refsync/internal/logging"
)

// Collector holds the sync metrics. A nil *Collector is valid and records
// nothing.
type Collector struct {
	registry *prometheus.Registry

	cycles       *prometheus.CounterVec
	rowsStaged   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	lastSuccess  *prometheus.GaugeVec
	mergeDropped *prometheus.CounterVec
}

// NewCollector creates a collector on its own registry, including Go
// runtime metrics.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refsync_cycles_total",
			Help: "Upsert cycles by entity and outcome",
		}, []string{"entity", "outcome"}),

		rowsStaged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refsync_rows_staged_total",
			Help: "Rows written to staging tables by committed cycles",
		}, []string{"entity"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "refsync_cycle_duration_seconds",
			Help:    "Time taken by an upsert cycle",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~41s
		}, []string{"entity"}),

		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "refsync_last_success_timestamp_seconds",
			Help: "Unix time of the last committed cycle",
		}, []string{"entity"}),

		mergeDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refsync_merge_rows_dropped_total",
			Help: "Rows dropped by merged reads because of an unknown source tag",
		}, []string{"view"}),
	}

	registry.MustRegister(
		c.cycles,
		c.rowsStaged,
		c.duration,
		c.lastSuccess,
		c.mergeDropped,
		collectors.NewGoCollector(),
	)

	return c
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveCycle records the outcome of one upsert cycle.
func (c *Collector) ObserveCycle(entity, outcome string, rows int64, took time.Duration) {
	if c == nil {
		return
	}
	c.cycles.WithLabelValues(entity, outcome).Inc()
	c.duration.WithLabelValues(entity).Observe(took.Seconds())
	if outcome == OutcomeCommitted {
		c.rowsStaged.WithLabelValues(entity).Add(float64(rows))
		c.lastSuccess.WithLabelValues(entity).SetToCurrentTime()
	}
}

// ObserveMergeDropped records rows dropped by a merged read.
func (c *Collector) ObserveMergeDropped(view string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.mergeDropped.WithLabelValues(view).Add(float64(n))
}

// WriteTextfile writes the refsync_ metrics to filename in the text
// exposition format. Runtime and process metrics are left out.
func (c *Collector) WriteTextfile(filename string) error {
	own := prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		families, err := c.registry.Gather()
		var out []*dto.MetricFamily
		for _, mf := range families {
			if strings.HasPrefix(mf.GetName(), "refsync_") {
				out = append(out, mf)
			}
		}
		return out, err
	})
	return prometheus.WriteToTextfile(filename, own)
}

// Cycle outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
)

// Handler returns an HTTP handler serving /metrics and /health. The health
// check is optional.
func (c *Collector) Handler(health func(ctx context.Context) error) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health != nil {
			if err := health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "healthy"})
	})
	return mux
}

// Serve runs the metrics server until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, health func(ctx context.Context) error) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logging.Info().
		Str("listen", addr).
		Msg("Starting metrics server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Failed to shutdown metrics server")
		return err
	}
	return nil
}
