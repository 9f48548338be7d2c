// Package server provides the shared service lifecycle runner.
// cmd/ services delegate to server.Run for signal handling, config loading,
// observability init, gRPC + HTTP serving, health checks, and graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/aelexs/phone-verification-service/internal/config"
	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/observability"
)

// SetupDeps is handed to a service's Setup function. The service registers
// its gRPC handlers on GRPCServer and any HTTP routes on HTTPMux.
type SetupDeps struct {
	Config     *config.Config
	Logger     *slog.Logger
	GRPCServer *grpc.Server
	HTTPMux    *http.ServeMux
}

// SetupFunc wires a service's adapters and handlers. The returned cleanup
// function runs during graceful shutdown, after the listeners have drained;
// it must release clients and wait for service-owned goroutines.
type SetupFunc func(ctx context.Context, deps SetupDeps) (func(context.Context) error, error)

// Listeners optionally injects pre-bound listeners (enables port-0 testing).
// Nil fields mean "bind from config".
type Listeners struct {
	HTTP net.Listener
	GRPC net.Listener
}

// Params configures a service's lifecycle runner.
type Params struct {
	// Name identifies the service (e.g. "verification").
	Name string

	// PortFromConfig extracts the HTTP port for this service from config.
	PortFromConfig func(cfg *config.Config) int

	// GRPCPortFromConfig extracts the gRPC port. Nil disables the gRPC
	// listener (health-check-only services).
	GRPCPortFromConfig func(cfg *config.Config) int

	// Setup wires the service. May be nil for bare lifecycle tests.
	Setup SetupFunc
}

// Run executes the full service lifecycle: signal handling, config loading,
// observability initialization, service setup, gRPC + HTTP serving with
// health checks, and graceful shutdown in reverse startup order.
func Run(ctx context.Context, p Params, lns Listeners) error {
	// Signal-based cancellation: ctx.Done() closes on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize structured logging with secret redaction
	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: p.Name,
		Environment: cfg.Environment,
	})

	serviceName := cfg.OTEL.ServiceName
	if serviceName == "" {
		serviceName = p.Name
	}

	// --- Startup order: tracer -> metrics -> setup -> listeners ---

	tracerProvider, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}

	metricsProvider, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	// Health check shutdown coordination via atomic flag.
	var shuttingDown atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"shutting_down","service":%q}`, p.Name)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":%q}`, p.Name)
	})

	grpcServer := grpc.NewServer()

	// Service wiring runs before listeners open so no request observes a
	// partially built handler.
	cleanup := func(context.Context) error { return nil }
	if p.Setup != nil {
		c, setupErr := p.Setup(ctx, SetupDeps{
			Config:     cfg,
			Logger:     logger,
			GRPCServer: grpcServer,
			HTTPMux:    mux,
		})
		if setupErr != nil {
			return fmt.Errorf("setup %s: %w", p.Name, setupErr)
		}
		if c != nil {
			cleanup = c
		}
	}

	// Bind listeners (use injected listeners or create from config).
	httpLn := lns.HTTP
	if httpLn == nil {
		httpLn, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", p.PortFromConfig(cfg)))
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
	}

	grpcLn := lns.GRPC
	if grpcLn == nil && p.GRPCPortFromConfig != nil {
		grpcLn, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", p.GRPCPortFromConfig(cfg)))
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
	}

	httpServer := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Structured concurrency via errgroup ---
	g, ctx := errgroup.WithContext(ctx)

	// Goroutine 1: Serve HTTP (health checks + read mirror).
	g.Go(func() error {
		logger.Info("starting HTTP server",
			slog.String("addr", httpLn.Addr().String()),
			slog.String("environment", cfg.Environment),
		)
		if serveErr := httpServer.Serve(httpLn); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	// Goroutine 2: Serve gRPC.
	if grpcLn != nil {
		ln := grpcLn
		g.Go(func() error {
			logger.Info("starting gRPC server", slog.String("addr", ln.Addr().String()))
			if serveErr := grpcServer.Serve(ln); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
				return serveErr
			}
			return nil
		})
	}

	// Goroutine 3: Shutdown trigger — waits for context cancellation, then
	// drains in explicit reverse of startup: listeners -> service cleanup ->
	// metrics -> tracer.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("received shutdown signal, starting graceful shutdown")

		// 1. Mark shutting down — health checks return 503
		shuttingDown.Store(true)

		// 2. Drain delay — let load balancer propagate endpoint removal
		time.Sleep(domain.ShutdownDrainDelay)

		// 3. Drain HTTP server
		httpCtx, httpCancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
		defer httpCancel()
		if shutdownErr := httpServer.Shutdown(httpCtx); shutdownErr != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", shutdownErr.Error()))
		}

		// 4. Drain gRPC server. GracefulStop has no context form, so a
		// watchdog forces Stop when the budget expires.
		if grpcLn != nil {
			done := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(domain.ShutdownGRPCTimeout):
				logger.Error("gRPC graceful stop timed out, forcing stop")
				grpcServer.Stop()
				<-done
			}
		}

		// 5. Service cleanup — waits for background goroutines, closes clients.
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
		defer cleanupCancel()
		if cleanupErr := cleanup(cleanupCtx); cleanupErr != nil {
			logger.Error("service cleanup error", slog.String("error", cleanupErr.Error()))
		}

		// 6. Flush OTEL (reverse: metrics first, then tracer)
		otelCtx, otelCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer otelCancel()
		if shutdownErr := metricsProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown metrics", slog.String("error", shutdownErr.Error()))
		}
		if shutdownErr := tracerProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", shutdownErr.Error()))
		}

		logger.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}
