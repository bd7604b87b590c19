package api

import (
	"context"
	"embed"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/qos-dashboard/internal/dashboard"
	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/observability"
)

const requestIDHeader = "X-Request-ID"

//go:embed web
var webFS embed.FS

// Options configures NewRouter.
type Options struct {
	Logger logging.Logger
	// Metrics enables per-route HTTP metrics and serves /metrics when set.
	Metrics *observability.DashboardCollector
}

// NewRouter registers every dashboard route on a fresh gin engine.
func NewRouter(dash Dashboard, opts Options) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	schema, err := NewSchema(dash)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.GinMiddleware())
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	h := NewHandlers(dash, log)
	router.GET("/healthz", h.Healthz)
	router.GET("/readyz", h.Readyz)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/snapshot", h.Snapshot)
		for _, panel := range dashboard.Panels {
			v1.GET("/"+panel, h.Panel(panel))
		}
		v1.GET("/panels/:panel", h.PanelByName)
		v1.POST("/chat", h.SubmitChat)
		v1.POST("/topology/select", h.SelectNode)
		v1.DELETE("/topology/select", h.ClearSelection)
		v1.GET("/stream", h.Stream)
	}
	router.POST("/graphql", GraphQL(schema))

	static, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, err
	}
	router.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(static))
	})

	return router, nil
}

// requestLogger tags each request with an id, echoes it back, and logs the
// outcome at debug level.
func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(requestIDHeader); id != "" {
			ctx = logging.ContextWithRequestID(ctx, id)
		}
		ctx, id := logging.EnsureRequestID(ctx)
		ctx = logging.ContextWithLogger(ctx, log)
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		log.Debug(ctx, "http request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(start)),
		)
	}
}

// Server owns the HTTP listener.
type Server struct {
	httpServer *http.Server
}

// NewServer wraps handler in an http.Server listening on addr.
func NewServer(addr string, handler http.Handler) *Server {
	if addr == "" {
		addr = ":8080"
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Addr() string { return s.httpServer.Addr }

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on lis, for callers that bind their own
// listener.
func (s *Server) Serve(lis net.Listener) error {
	return s.httpServer.Serve(lis)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
