package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// DashboardCollector bundles Prometheus metrics for the simulated panels and
// the HTTP and gRPC surfaces that serve them. It satisfies every panel's
// metrics recorder interface.
type DashboardCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	Flows                 prometheus.Gauge
	Decisions             prometheus.Gauge
	ModelAccuracy         prometheus.Gauge
	PacketsLive           prometheus.Gauge
	PacketsSpawned        *prometheus.CounterVec
	PacketsDeliveredTotal prometheus.Counter
	ChatMessages          *prometheus.CounterVec

	Scheduler *SchedulerCollector
}

// NewDashboardCollector registers dashboard Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewDashboardCollector(reg prometheus.Registerer) (*DashboardCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	rpcRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_grpc_requests_total",
		Help: "Total number of handled gRPC calls, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "dashboard_grpc_requests_total")
	if err != nil {
		return nil, err
	}
	rpcDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_grpc_request_duration_seconds",
		Help:    "gRPC call latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "dashboard_grpc_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"}), "dashboard_http_requests_total")
	if err != nil {
		return nil, err
	}
	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"route", "method"}), "dashboard_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	flows, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_flows",
		Help: "Current number of traffic flows in the flow list.",
	}), "dashboard_flows")
	if err != nil {
		return nil, err
	}
	decisions, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_decisions",
		Help: "Current number of decisions in the classification feed.",
	}), "dashboard_decisions")
	if err != nil {
		return nil, err
	}
	accuracy, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_model_accuracy",
		Help: "Simulated classification model accuracy in percent.",
	}), "dashboard_model_accuracy")
	if err != nil {
		return nil, err
	}
	live, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_packets_live",
		Help: "Packets currently animating on the topology diagram.",
	}), "dashboard_packets_live")
	if err != nil {
		return nil, err
	}
	spawned, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_packets_spawned_total",
		Help: "Packets spawned on the topology diagram, labeled by application.",
	}, []string{"application"}), "dashboard_packets_spawned_total")
	if err != nil {
		return nil, err
	}
	delivered, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_packets_delivered_total",
		Help: "Packets that reached the end of their link.",
	}), "dashboard_packets_delivered_total")
	if err != nil {
		return nil, err
	}
	chatMessages, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_chat_messages_total",
		Help: "Chat transcript appends, labeled by role.",
	}, []string{"role"}), "dashboard_chat_messages_total")
	if err != nil {
		return nil, err
	}

	timers, err := NewSchedulerCollector(reg)
	if err != nil {
		return nil, err
	}

	return &DashboardCollector{
		gatherer:              gatherer,
		RPCRequests:           rpcRequests,
		RPCDurations:          rpcDurations,
		HTTPRequests:          httpRequests,
		HTTPDurations:         httpDurations,
		Flows:                 flows,
		Decisions:             decisions,
		ModelAccuracy:         accuracy,
		PacketsLive:           live,
		PacketsSpawned:        spawned,
		PacketsDeliveredTotal: delivered,
		ChatMessages:          chatMessages,
		Scheduler:             timers,
	}, nil
}

// SetFlowCount updates the flow list gauge.
func (c *DashboardCollector) SetFlowCount(n int) {
	if c == nil || c.Flows == nil {
		return
	}
	c.Flows.Set(float64(n))
}

// SetDecisionCount updates the decision feed gauge.
func (c *DashboardCollector) SetDecisionCount(n int) {
	if c == nil || c.Decisions == nil {
		return
	}
	c.Decisions.Set(float64(n))
}

// SetModelAccuracy updates the accuracy gauge.
func (c *DashboardCollector) SetModelAccuracy(v float64) {
	if c == nil || c.ModelAccuracy == nil {
		return
	}
	c.ModelAccuracy.Set(v)
}

// SetLivePackets updates the live packet gauge.
func (c *DashboardCollector) SetLivePackets(n int) {
	if c == nil || c.PacketsLive == nil {
		return
	}
	c.PacketsLive.Set(float64(n))
}

// PacketSpawned counts one spawned packet.
func (c *DashboardCollector) PacketSpawned(application string) {
	if c == nil || c.PacketsSpawned == nil {
		return
	}
	c.PacketsSpawned.WithLabelValues(application).Inc()
}

// PacketsDelivered counts packets dropped from the live set.
func (c *DashboardCollector) PacketsDelivered(n int) {
	if c == nil || c.PacketsDeliveredTotal == nil || n <= 0 {
		return
	}
	c.PacketsDeliveredTotal.Add(float64(n))
}

// ChatMessage counts one transcript append.
func (c *DashboardCollector) ChatMessage(role string) {
	if c == nil || c.ChatMessages == nil {
		return
	}
	c.ChatMessages.WithLabelValues(role).Inc()
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *DashboardCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// GinMiddleware records request counts and durations per matched route.
// Unmatched paths are labeled "unmatched" to keep cardinality bounded.
func (c *DashboardCollector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		if c == nil {
			return
		}
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(ctx.Writer.Status())).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		}
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *DashboardCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *DashboardCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
