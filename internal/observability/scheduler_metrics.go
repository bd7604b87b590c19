package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/qos-dashboard/internal/sched"
)

// SchedulerCollector exposes per-timer Prometheus metrics for the panel
// timers running on the event scheduler.
type SchedulerCollector struct {
	TimerFires    *prometheus.CounterVec
	TimerDuration *prometheus.HistogramVec
}

// NewSchedulerCollector registers timer metrics against the provided registerer.
func NewSchedulerCollector(reg prometheus.Registerer) (*SchedulerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	fires, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_timer_fires_total",
		Help: "Panel timer firings, labeled by panel and timer.",
	}, []string{"panel", "timer"}), "dashboard_timer_fires_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_timer_duration_seconds",
		Help:    "Wall-clock time spent in a panel timer callback.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"panel", "timer"}), "dashboard_timer_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SchedulerCollector{TimerFires: fires, TimerDuration: durations}, nil
}

// Middleware counts and times every timer firing it wraps.
func (c *SchedulerCollector) Middleware() sched.Middleware {
	return func(panel, timer string, fire func()) {
		if c == nil {
			fire()
			return
		}
		start := time.Now()
		fire()
		if c.TimerFires != nil {
			c.TimerFires.WithLabelValues(panel, timer).Inc()
		}
		if c.TimerDuration != nil {
			c.TimerDuration.WithLabelValues(panel, timer).Observe(time.Since(start).Seconds())
		}
	}
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
