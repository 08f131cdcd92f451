package playsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics holds the client-side request metrics.
type sdkMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playsearch",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API calls made by the Go client, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "playsearch",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API call duration as seen by the client. Streams are measured to the last frame.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one, so several
// clients can share a registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("playsearch: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("playsearch: register metric: %w", err)
	}
	return nil
}

// outcome is a low-cardinality label for a call result.
func outcome(err error) string {
	var (
		apiErr    *APIError
		streamErr *StreamError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr):
		if apiErr.Code != "" {
			return apiErr.Code
		}
		return "http_" + strconv.Itoa(apiErr.Status)
	case errors.As(err, &streamErr):
		return "stream_error"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport_error"
	}
}

// observer logs and counts client calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	out := outcome(err)

	if o.metrics != nil {
		o.metrics.requests.WithLabelValues(op, out).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("playsearch call failed", "op", op, "outcome", out, "duration", dur, "error", err)
		return
	}
	o.logger.Debug("playsearch call completed", "op", op, "duration", dur)
}
