// Package metrics expõe os vereditos do gate como métricas Prometheus.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JeanGrijp/request-gate/internal/core/domain"
	"github.com/JeanGrijp/request-gate/internal/core/ports"
)

type PrometheusRecorder struct {
	decisions   *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
}

var _ ports.DecisionRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registra os coletores em reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Gate verdicts by protected resource and outcome.",
		}, []string{"resource", "outcome"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_store_errors_total",
			Help: "Counter store failures seen by the gate.",
		}, []string{"resource"}),
	}

	for _, c := range []prometheus.Collector{r.decisions, r.storeErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Record não inclui o chamador nos labels para manter a cardinalidade baixa.
func (r *PrometheusRecorder) Record(_ context.Context, v domain.Verdict) {
	r.decisions.WithLabelValues(v.Resource, string(v.Outcome)).Inc()
	if v.Err != nil {
		r.storeErrors.WithLabelValues(v.Resource).Inc()
	}
}
