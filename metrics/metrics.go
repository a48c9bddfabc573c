// Package metrics exposes connector activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

const namespace = "vpnconnector"

// Recorder counts connect and disconnect results and tracks the last
// observed link state. It implements vpn.Observer.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	active     prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Connect and disconnect attempts by outcome",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time from helper launch to the end of polling",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"op"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active",
			Help:      "1 if the last probe saw the connection up, 0 otherwise",
		}),
	}

	r.registry.MustRegister(r.operations, r.duration, r.active)
	return r
}

// Registry returns the registry the metrics live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveResult records one connect or disconnect attempt.
func (r *Recorder) ObserveResult(res vpn.Result) {
	r.operations.WithLabelValues(string(res.Op), outcome(res)).Inc()
	r.duration.WithLabelValues(string(res.Op)).Observe(res.Elapsed.Seconds())
}

// ObserveActive records a probe sample.
func (r *Recorder) ObserveActive(active bool) {
	if active {
		r.active.Set(1)
		return
	}
	r.active.Set(0)
}

func outcome(res vpn.Result) string {
	switch {
	case res.Succeeded:
		return "success"
	case res.LaunchFailed():
		return "launch_error"
	case res.TimedOut():
		return "timeout"
	default:
		return "error"
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		common.LogInfo("Serving metrics on %s/metrics", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

var _ vpn.Observer = (*Recorder)(nil)
