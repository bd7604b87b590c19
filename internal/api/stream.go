package api

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/qos-dashboard/internal/dashboard"
	"github.com/signalsfoundry/qos-dashboard/internal/logging"
)

const (
	streamBuffer      = 64
	streamHeartbeat   = 15 * time.Second
	snapshotEventName = "snapshot"
	heartbeatEvent    = "ping"
)

// Stream pushes panel updates as server-sent events. The first event is the
// full snapshot; each later event is named after its panel and carries that
// panel's snapshot. Repeated ?panel= parameters narrow the stream. Updates
// are dropped for a client whose buffer is full.
func (h *Handlers) Stream(c *gin.Context) {
	filter := map[string]bool{}
	for _, p := range c.QueryArray("panel") {
		if !dashboard.ValidPanel(p) {
			writeError(c, http.StatusBadRequest, fmt.Errorf("%w: %q", dashboard.ErrUnknownPanel, p))
			return
		}
		filter[p] = true
	}

	ctx := c.Request.Context()
	log := logging.FromContext(ctx, h.log)

	events := make(chan dashboard.Event, streamBuffer)
	var dropped atomic.Int64
	cancel := h.dash.Subscribe(func(ev dashboard.Event) {
		if len(filter) > 0 && !filter[ev.Panel] {
			return
		}
		select {
		case events <- ev:
		default:
			dropped.Add(1)
		}
	})
	defer cancel()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(snapshotEventName, h.dash.Snapshot())
	c.Writer.Flush()

	log.Debug(ctx, "stream opened", logging.Int("panels", len(filter)))
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-events:
			c.SSEvent(ev.Panel, ev.Data)
			return true
		case now := <-heartbeat.C:
			c.SSEvent(heartbeatEvent, now.UTC().Format(time.RFC3339))
			return true
		}
	})
	log.Debug(ctx, "stream closed", logging.Int("dropped", int(dropped.Load())))
}
