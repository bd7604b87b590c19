package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/qos-dashboard/internal/api"
	"github.com/signalsfoundry/qos-dashboard/internal/config"
	"github.com/signalsfoundry/qos-dashboard/internal/dashboard"
	"github.com/signalsfoundry/qos-dashboard/internal/grpcsvc"
	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/observability"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/timectrl"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	httpAddr := flag.String("http-addr", "", "HTTP address for the REST, SSE and GraphQL API (overrides config)")
	grpcAddr := flag.String("grpc-addr", "", "TCP address for the gRPC health service (overrides config)")
	seed := flag.Uint64("seed", 0, "Simulation seed (overrides config; 0 keeps the configured value)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *grpcAddr != "" {
		cfg.GRPC.Addr = *grpcAddr
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	log := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpLis, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		log.Error(ctx, "failed to listen for HTTP", logging.String("addr", cfg.HTTP.Addr), logging.Err(err))
		os.Exit(1)
	}
	var grpcLis net.Listener
	if cfg.GRPC.Addr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPC.Addr), logging.Err(err))
			os.Exit(1)
		}
	}

	if err := run(ctx, cfg, log, prometheus.DefaultRegisterer, httpLis, grpcLis); err != nil {
		log.Error(ctx, "dashboard exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the dashboard on the given listeners until ctx is cancelled.
// A nil grpcLis disables the gRPC health service.
func run(ctx context.Context, cfg config.Config, log logging.Logger, reg prometheus.Registerer, httpLis, grpcLis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}
	gin.SetMode(gin.ReleaseMode)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	var collector *observability.DashboardCollector
	if cfg.Metrics.Enabled {
		collector, err = observability.NewDashboardCollector(reg)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
	}

	tc := timectrl.NewTimeController(time.Now(), cfg.Clock.Tick, cfg.Mode())
	s := sched.NewEventScheduler(tc)

	rtCfg := dashboard.Config{
		Seed:   cfg.ResolveSeed(time.Now()),
		Logger: log,
	}
	if collector != nil {
		rtCfg.Metrics = collector
		rtCfg.Middleware = append(rtCfg.Middleware, collector.Scheduler.Middleware())
	}
	if cfg.Tracing.Enabled {
		rtCfg.Middleware = append(rtCfg.Middleware, observability.TimerTracingMiddleware())
	}
	rt, err := dashboard.NewRuntime(s, rtCfg)
	if err != nil {
		return err
	}

	health := grpcsvc.NewHealth(log)
	health.Track(rt)

	router, err := api.NewRouter(rt, api.Options{Logger: log, Metrics: collector})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	httpSrv := api.NewServer(httpLis.Addr().String(), router)

	log.Info(ctx, "starting dashboard",
		logging.Any("seed", rtCfg.Seed),
		logging.String("clock_mode", cfg.Mode().String()),
		logging.String("http_addr", httpLis.Addr().String()),
		logging.Bool("metrics", collector != nil),
	)
	rt.Start()
	defer rt.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dashboard.NewRunner(tc, s, log).Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info(gctx, "HTTP server listening", logging.String("addr", httpLis.Addr().String()))
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		health.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if grpcLis != nil {
		server := grpcsvc.NewServer(health, grpcsvc.Options{Logger: log, Metrics: collector})
		g.Go(func() error {
			return grpcsvc.Serve(gctx, server, grpcLis, log)
		})
	}

	err = g.Wait()
	log.Info(context.Background(), "dashboard stopped")
	return err
}
