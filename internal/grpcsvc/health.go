// Package grpcsvc serves the standard gRPC health protocol for the dashboard,
// with one service per panel.
package grpcsvc

import (
	"context"
	"sync"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/qos-dashboard/internal/dashboard"
	"github.com/signalsfoundry/qos-dashboard/internal/logging"
)

// Subscriber is the runtime hook Health listens on.
type Subscriber interface {
	Subscribe(fn func(dashboard.Event)) (cancel func())
}

// Health reports each panel SERVING once it has published a snapshot, and
// the overall "" service SERVING once every panel has.
type Health struct {
	srv *health.Server
	log logging.Logger

	mu      sync.Mutex
	serving map[string]bool
	cancel  func()
}

// NewHealth returns a health server with every service NOT_SERVING.
func NewHealth(log logging.Logger) *Health {
	if log == nil {
		log = logging.Noop()
	}
	h := &Health{
		srv:     health.NewServer(),
		log:     log,
		serving: make(map[string]bool, len(dashboard.Panels)),
	}
	h.srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	for _, p := range dashboard.Panels {
		h.srv.SetServingStatus(p, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return h
}

// Server exposes the underlying grpc health implementation for
// registration.
func (h *Health) Server() *health.Server { return h.srv }

// Track follows panel updates from sub. Call it before the runtime starts so
// the initial mount snapshots are seen.
func (h *Health) Track(sub Subscriber) {
	cancel := sub.Subscribe(h.observe)
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = cancel
	h.mu.Unlock()
}

func (h *Health) observe(ev dashboard.Event) {
	h.mu.Lock()
	if h.serving[ev.Panel] {
		h.mu.Unlock()
		return
	}
	h.serving[ev.Panel] = true
	all := len(h.serving) == len(dashboard.Panels)
	h.mu.Unlock()

	h.srv.SetServingStatus(ev.Panel, healthpb.HealthCheckResponse_SERVING)
	h.log.Debug(context.Background(), "panel serving", logging.Panel(ev.Panel))
	if all {
		h.srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		h.log.Info(context.Background(), "all panels serving")
	}
}

// Stop marks every service NOT_SERVING and stops tracking. Later updates
// do not flip services back.
func (h *Health) Stop() {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.srv.Shutdown()
}
