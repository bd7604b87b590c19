// Package api serves the dashboard panels over HTTP: JSON snapshots, user
// actions, a server-sent event stream and a GraphQL endpoint.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/qos-dashboard/internal/dashboard"
	"github.com/signalsfoundry/qos-dashboard/internal/logging"
)

var (
	// ErrEmptyMessage is returned when a chat request carries no text field.
	ErrEmptyMessage = errors.New("text is required")
	// ErrUnknownNode is returned when a selection names a node that is not
	// on the diagram.
	ErrUnknownNode = errors.New("unknown node")
)

// Dashboard is the slice of the runtime the HTTP surface needs.
type Dashboard interface {
	Snapshot() dashboard.Snapshot
	PanelSnapshot(panel string) (any, error)
	Subscribe(fn func(dashboard.Event)) (cancel func())
	SubmitChatText(text string) bool
	SelectTopologyNode(id string) bool
	ClearTopologySelection()
	Running() bool
}

// Handlers serves the JSON endpoints over a Dashboard.
type Handlers struct {
	dash Dashboard
	log  logging.Logger
}

// NewHandlers binds dash and log, defaulting to a no-op logger.
func NewHandlers(dash Dashboard, log logging.Logger) *Handlers {
	if log == nil {
		log = logging.Noop()
	}
	return &Handlers{dash: dash, log: log}
}

type chatRequest struct {
	Text *string `json:"text"`
}

type chatResponse struct {
	Accepted bool `json:"accepted"`
}

type selectRequest struct {
	NodeID string `json:"node_id"`
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) Readyz(c *gin.Context) {
	if !h.dash.Running() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopped"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handlers) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.dash.Snapshot())
}

// Panel serves one fixed panel's snapshot.
func (h *Handlers) Panel(panel string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.writePanel(c, panel)
	}
}

// PanelByName serves the panel named by the :panel path parameter.
func (h *Handlers) PanelByName(c *gin.Context) {
	h.writePanel(c, c.Param("panel"))
}

func (h *Handlers) writePanel(c *gin.Context, panel string) {
	v, err := h.dash.PanelSnapshot(panel)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// SubmitChat appends a user message. Blank text is accepted and ignored.
func (h *Handlers) SubmitChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if req.Text == nil {
		writeError(c, http.StatusBadRequest, ErrEmptyMessage)
		return
	}
	accepted := h.dash.SubmitChatText(*req.Text)
	logging.FromContext(c.Request.Context(), h.log).Debug(c.Request.Context(), "chat submitted",
		logging.Bool("accepted", accepted),
		logging.Int("length", len(*req.Text)),
	)
	c.JSON(http.StatusAccepted, chatResponse{Accepted: accepted})
}

// SelectNode highlights a topology node. An unknown id clears the current
// selection and reports 404.
func (h *Handlers) SelectNode(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if req.NodeID == "" {
		writeError(c, http.StatusBadRequest, errors.New("node_id is required"))
		return
	}
	if !h.dash.SelectTopologyNode(req.NodeID) {
		writeError(c, http.StatusNotFound, ErrUnknownNode)
		return
	}
	c.JSON(http.StatusOK, h.dash.Snapshot().Topology.Selected)
}

func (h *Handlers) ClearSelection(c *gin.Context) {
	h.dash.ClearTopologySelection()
	c.Status(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrUnknownPanel), errors.Is(err, ErrUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
