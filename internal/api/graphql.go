package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"

	"github.com/signalsfoundry/qos-dashboard/internal/sim/catalog"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/chat"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/decision"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/topology"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/traffic"
)

// GraphQLRequest is the POST body accepted on /graphql.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// packetView pairs a packet with its interpolated position on the diagram.
type packetView struct {
	packet topology.Packet
	at     topology.Point
}

func resolve[T any](get func(T) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		v, ok := p.Source.(T)
		if !ok {
			return nil, nil
		}
		return get(v), nil
	}
}

func field[T any](t graphql.Output, get func(T) any) *graphql.Field {
	return &graphql.Field{Type: t, Resolve: resolve(get)}
}

// NewSchema builds the read and action schema over dash.
func NewSchema(dash Dashboard) (graphql.Schema, error) {
	applicationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Application",
		Fields: graphql.Fields{
			"name":     field(graphql.String, func(a catalog.Application) any { return a.Name }),
			"priority": field(graphql.String, func(a catalog.Application) any { return string(a.Priority) }),
			"policy":   field(graphql.String, func(a catalog.Application) any { return a.Policy }),
			"qos":      field(graphql.String, func(a catalog.Application) any { return string(a.Class) }),
		},
	})

	flowType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Flow",
		Fields: graphql.Fields{
			"id":          field(graphql.ID, func(f traffic.Flow) any { return f.ID }),
			"application": field(graphql.String, func(f traffic.Flow) any { return f.Application }),
			"priority":    field(graphql.String, func(f traffic.Flow) any { return string(f.Priority) }),
			"direction":   field(graphql.String, func(f traffic.Flow) any { return string(f.Direction) }),
			"rate":        field(graphql.String, func(f traffic.Flow) any { return f.Rate }),
			"rateMbps":    field(graphql.Float, func(f traffic.Flow) any { return f.RateMbps }),
			"status":      field(graphql.String, func(f traffic.Flow) any { return string(f.Status) }),
		},
	})
	directionStatsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DirectionStats",
		Fields: graphql.Fields{
			"uplink":   field(graphql.Int, func(d traffic.DirectionStats) any { return d.Uplink }),
			"downlink": field(graphql.Int, func(d traffic.DirectionStats) any { return d.Downlink }),
			"balanced": field(graphql.Int, func(d traffic.DirectionStats) any { return d.Balanced }),
		},
	})
	priorityStatsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PriorityStats",
		Fields: graphql.Fields{
			"high":   field(graphql.Int, func(p traffic.PriorityStats) any { return p.High }),
			"medium": field(graphql.Int, func(p traffic.PriorityStats) any { return p.Medium }),
			"low":    field(graphql.Int, func(p traffic.PriorityStats) any { return p.Low }),
		},
	})
	flowPanelType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FlowPanel",
		Fields: graphql.Fields{
			"flows":      field(graphql.NewList(flowType), func(s traffic.Snapshot) any { return s.Flows }),
			"directions": field(directionStatsType, func(s traffic.Snapshot) any { return s.Directions }),
			"priorities": field(priorityStatsType, func(s traffic.Snapshot) any { return s.Priorities }),
			"tick":       field(graphql.Int, func(s traffic.Snapshot) any { return int(s.Tick) }),
			"updatedAt":  field(graphql.DateTime, func(s traffic.Snapshot) any { return s.UpdatedAt }),
		},
	})

	decisionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Decision",
		Fields: graphql.Fields{
			"id":          field(graphql.ID, func(d decision.Decision) any { return d.ID }),
			"kind":        field(graphql.String, func(d decision.Decision) any { return string(d.Kind) }),
			"application": field(graphql.String, func(d decision.Decision) any { return d.Application }),
			"confidence":  field(graphql.Float, func(d decision.Decision) any { return d.Confidence }),
			"priority":    field(graphql.String, func(d decision.Decision) any { return string(d.Priority) }),
			"direction":   field(graphql.String, func(d decision.Decision) any { return string(d.Direction) }),
			"timestamp":   field(graphql.String, func(d decision.Decision) any { return d.Timestamp }),
			"at":          field(graphql.DateTime, func(d decision.Decision) any { return d.At }),
			"trend":       field(graphql.NewList(graphql.Float), func(d decision.Decision) any { return d.Trend }),
			"status":      field(graphql.String, func(d decision.Decision) any { return string(d.Status) }),
		},
	})
	kindCountsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "KindCounts",
		Fields: graphql.Fields{
			"predictions": field(graphql.Int, func(k decision.KindCounts) any { return k.Predictions }),
			"enforced":    field(graphql.Int, func(k decision.KindCounts) any { return k.Enforced }),
			"alerts":      field(graphql.Int, func(k decision.KindCounts) any { return k.Alerts }),
		},
	})
	decisionPanelType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DecisionPanel",
		Fields: graphql.Fields{
			"decisions": field(graphql.NewList(decisionType), func(s decision.Snapshot) any { return s.Decisions }),
			"accuracy":  field(graphql.Float, func(s decision.Snapshot) any { return s.Accuracy }),
			"counts":    field(kindCountsType, func(s decision.Snapshot) any { return s.Counts }),
			"tick":      field(graphql.Int, func(s decision.Snapshot) any { return int(s.Tick) }),
			"updatedAt": field(graphql.DateTime, func(s decision.Snapshot) any { return s.UpdatedAt }),
		},
	})

	nodeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id":          field(graphql.ID, func(n topology.Node) any { return n.ID }),
			"type":        field(graphql.String, func(n topology.Node) any { return string(n.Type) }),
			"x":           field(graphql.Float, func(n topology.Node) any { return n.X }),
			"y":           field(graphql.Float, func(n topology.Node) any { return n.Y }),
			"status":      field(graphql.String, func(n topology.Node) any { return string(n.Status) }),
			"label":       field(graphql.String, func(n topology.Node) any { return n.Label }),
			"application": field(graphql.String, func(n topology.Node) any { return optional(n.Application) }),
		},
	})
	edgeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Edge",
		Fields: graphql.Fields{
			"from":        field(graphql.ID, func(e topology.Edge) any { return e.From }),
			"to":          field(graphql.ID, func(e topology.Edge) any { return e.To }),
			"qos":         field(graphql.String, func(e topology.Edge) any { return string(e.QoS) }),
			"active":      field(graphql.Boolean, func(e topology.Edge) any { return e.Active }),
			"application": field(graphql.String, func(e topology.Edge) any { return optional(e.Application) }),
			"direction":   field(graphql.String, func(e topology.Edge) any { return optional(string(e.Direction)) }),
		},
	})
	packetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Packet",
		Fields: graphql.Fields{
			"id":          field(graphql.ID, func(p packetView) any { return p.packet.ID }),
			"from":        field(graphql.ID, func(p packetView) any { return p.packet.From }),
			"to":          field(graphql.ID, func(p packetView) any { return p.packet.To }),
			"progress":    field(graphql.Int, func(p packetView) any { return p.packet.Progress }),
			"qos":         field(graphql.String, func(p packetView) any { return string(p.packet.QoS) }),
			"application": field(graphql.String, func(p packetView) any { return p.packet.Application }),
			"x":           field(graphql.Float, func(p packetView) any { return p.at.X }),
			"y":           field(graphql.Float, func(p packetView) any { return p.at.Y }),
		},
	})
	selectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Selection",
		Fields: graphql.Fields{
			"node":        field(nodeType, func(s topology.Selection) any { return s.Node }),
			"connections": field(graphql.Int, func(s topology.Selection) any { return s.Connections }),
		},
	})
	topologyPanelType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TopologyPanel",
		Fields: graphql.Fields{
			"nodes":       field(graphql.NewList(nodeType), func(s topology.Snapshot) any { return s.Nodes }),
			"edges":       field(graphql.NewList(edgeType), func(s topology.Snapshot) any { return s.Edges }),
			"packets":     field(graphql.NewList(packetType), func(s topology.Snapshot) any { return packetViews(s) }),
			"activeNodes": field(graphql.Int, func(s topology.Snapshot) any { return s.ActiveNodes }),
			"selected":    field(selectionType, func(s topology.Snapshot) any { return selection(s.Selected) }),
			"updatedAt":   field(graphql.DateTime, func(s topology.Snapshot) any { return s.UpdatedAt }),
		},
	})

	messageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Message",
		Fields: graphql.Fields{
			"id":        field(graphql.ID, func(m chat.Message) any { return m.ID }),
			"role":      field(graphql.String, func(m chat.Message) any { return string(m.Role) }),
			"content":   field(graphql.String, func(m chat.Message) any { return m.Content }),
			"timestamp": field(graphql.DateTime, func(m chat.Message) any { return m.Timestamp }),
		},
	})
	chatPanelType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ChatPanel",
		Fields: graphql.Fields{
			"messages":  field(graphql.NewList(messageType), func(s chat.Snapshot) any { return s.Messages }),
			"typing":    field(graphql.Boolean, func(s chat.Snapshot) any { return s.Typing }),
			"pending":   field(graphql.Int, func(s chat.Snapshot) any { return s.Pending }),
			"updatedAt": field(graphql.DateTime, func(s chat.Snapshot) any { return s.UpdatedAt }),
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"version": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return int(dash.Snapshot().Version), nil
				},
			},
			"flows": &graphql.Field{
				Type: flowPanelType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return dash.Snapshot().Flows, nil
				},
			},
			"decisions": &graphql.Field{
				Type: decisionPanelType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return dash.Snapshot().Decisions, nil
				},
			},
			"topology": &graphql.Field{
				Type: topologyPanelType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return dash.Snapshot().Topology, nil
				},
			},
			"chat": &graphql.Field{
				Type: chatPanelType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return dash.Snapshot().Chat, nil
				},
			},
			"applications": &graphql.Field{
				Type: graphql.NewList(applicationType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return catalog.Applications(), nil
				},
			},
			"quickActions": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return chat.QuickActions(), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"sendChat": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"text": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					text, _ := p.Args["text"].(string)
					return dash.SubmitChatText(text), nil
				},
			},
			"selectNode": &graphql.Field{
				Type: selectionType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["id"].(string)
					if !dash.SelectTopologyNode(id) {
						return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
					}
					return selection(dash.Snapshot().Topology.Selected), nil
				},
			},
			"clearSelection": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					dash.ClearTopologySelection()
					return true, nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

// GraphQL executes queries and mutations posted as JSON.
func GraphQL(schema graphql.Schema) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GraphQLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, err)
			return
		}
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Request.Context(),
		})
		c.JSON(http.StatusOK, result)
	}
}

func packetViews(s topology.Snapshot) []packetView {
	out := make([]packetView, len(s.Packets))
	for i, p := range s.Packets {
		out[i] = packetView{packet: p, at: topology.PacketPosition(s.Nodes, p)}
	}
	return out
}

// selection dereferences so the Selection resolvers see a value, and keeps
// a nil pointer as a GraphQL null.
func selection(s *topology.Selection) any {
	if s == nil {
		return nil
	}
	return *s
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
