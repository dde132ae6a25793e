package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation status label values.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Backend holds per-operation metrics for search backend calls.
type Backend struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewBackend registers backend metrics on reg, reusing collectors that are
// already registered there.
func NewBackend(reg prometheus.Registerer) (*Backend, error) {
	m := &Backend{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchcheck",
			Subsystem: "backend",
			Name:      "operations_total",
			Help:      "Total backend operations by driver, operation and status.",
		}, []string{"driver", "operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "matchcheck",
			Subsystem: "backend",
			Name:      "operation_duration_seconds",
			Help:      "Backend operation duration in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"driver", "operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// Observe records one backend call.
func (m *Backend) Observe(driver, op string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(driver, op, statusOf(err)).Inc()
	m.duration.WithLabelValues(driver, op).Observe(dur.Seconds())
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	default:
		return StatusError
	}
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metrics: already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("metrics: register: %w", err)
	}
	return nil
}
