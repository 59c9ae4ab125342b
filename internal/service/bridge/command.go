package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/alarm-bridge/internal/api/grpc/bridge"
	"github.com/oshokin/alarm-bridge/internal/api/ws"
	"github.com/oshokin/alarm-bridge/internal/config"
	"github.com/oshokin/alarm-bridge/internal/device"
	"github.com/oshokin/alarm-bridge/internal/hub"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/metrics"
	"github.com/oshokin/alarm-bridge/internal/notify"
	"github.com/oshokin/alarm-bridge/internal/version"
)

const (
	// chunkQueueSize is the number of raw chunks buffered between the reader and the event loop.
	chunkQueueSize = 64
	// shutdownTimeout bounds the HTTP server shutdown.
	shutdownTimeout = 5 * time.Second
	// readHeaderTimeout protects the HTTP server from slow clients.
	readHeaderTimeout = 10 * time.Second
)

// Options controls the alarm-bridge process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// DevicePort overrides the serial device from config.
	DevicePort string
	// ListenAddress overrides the HTTP listen address from config.
	ListenAddress string
	// Opener opens the device port; nil uses the serial driver.
	Opener device.Opener
	// Sender delivers notifications; nil logs them.
	Sender notify.Sender
}

// Run starts the bridge and blocks until the context is canceled or a server fails.
// A device that cannot be opened is reported to subscribers and the bridge keeps serving.
//
//nolint:funlen // Startup wiring reads best top to bottom.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-bridge")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(cfg, opts)

	if err := logger.Setup(cfg.LogLevel); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	logger.InfoKV(ctx, "Starting alarm-bridge", version.Fields()...)

	pipelineCtx := logger.WithName(ctx, "pipeline")

	if cfg.PipelineLogLevel != "" {
		level, ok := logger.ParseLogLevel(cfg.PipelineLogLevel)
		if !ok {
			return fmt.Errorf("pipeline log level %q: %w", cfg.PipelineLogLevel, logger.ErrUnknownLevel)
		}

		pipelineCtx = logger.WithMinLevel(pipelineCtx, level)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	if err := m.Register(); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	h := hub.New(
		hub.WithBufferSize(cfg.SubscriberBuffer),
		hub.WithMetrics(m),
		hub.WithContext(logger.WithName(ctx, "hub")),
	)

	// The notifier subscribes first so it sees a failed device open.
	notifier := notify.New(opts.Sender, cfg.NotifyInterval)
	go notifier.Run(logger.WithName(ctx, "notify"), notifier.Subscribe(h))

	dev, err := device.Open(cfg.DevicePort, cfg.BaudRate, opts.Opener)
	if err != nil {
		logger.ErrorKV(ctx, "Device unavailable", "device", cfg.DevicePort, "error", err)
		h.PublishError(fmt.Errorf("device unavailable: %w", err))

		dev = device.New(cfg.DevicePort)
	} else {
		logger.InfoKV(ctx, "Device opened", "device", cfg.DevicePort, "baud_rate", cfg.BaudRate)
	}

	defer func() {
		if err := dev.Close(); err != nil {
			logger.WarnKV(ctx, "Close device failed", "error", err)
		}
	}()

	pipeline := NewPipeline(h, cfg.Threshold(), m)
	commander := NewCommander(dev, h, m)

	serveErr := make(chan error, 2)

	httpServer, err := startHTTP(ctx, cfg, h, commander, registry, serveErr)
	if err != nil {
		return err
	}

	grpcServer, err := startGRPC(ctx, cfg, h, commander, serveErr)
	if err != nil {
		shutdownHTTP(ctx, httpServer)

		return err
	}

	chunks := make(chan []byte, chunkQueueSize)
	readErr := make(chan error, 1)

	if dev.Available() {
		go func() {
			readErr <- dev.ReadLoop(ctx, chunks)
		}()
	}

	err = loop(ctx, pipelineCtx, pipeline, h, dev, chunks, readErr, serveErr)

	logger.Info(ctx, "Shutting down")

	stopGRPC(grpcServer)
	shutdownHTTP(ctx, httpServer)

	return err
}

// loop is the single event loop: every chunk is processed to completion before the next one.
func loop(
	ctx, pipelineCtx context.Context,
	pipeline *Pipeline,
	h *hub.Hub,
	dev *device.Device,
	chunks <-chan []byte,
	readErr <-chan error,
	serveErr <-chan error,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk := <-chunks:
			pipeline.HandleChunk(pipelineCtx, chunk)
		case err := <-readErr:
			if err == nil {
				continue
			}

			// No reopen: the device stays unavailable until the process restarts.
			// It is closed before the broadcast so commands sent on seeing the error fail.
			logger.ErrorKV(ctx, "Device read failed", "device", dev.Name(), "error", err)

			if closeErr := dev.Close(); closeErr != nil {
				logger.WarnKV(ctx, "Close device failed", "error", closeErr)
			}

			h.PublishError(fmt.Errorf("device read failed: %w", err))
		case err := <-serveErr:
			return err
		}
	}
}

// applyOverrides replaces config values with non-empty command line options.
func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.DevicePort != "" {
		cfg.DevicePort = opts.DevicePort
	}

	if opts.ListenAddress != "" {
		cfg.ListenAddress = opts.ListenAddress
	}
}

// startHTTP serves WebSocket subscribers, metrics and health checks.
func startHTTP(
	ctx context.Context,
	cfg *config.Config,
	h *hub.Hub,
	commander *Commander,
	registry *prometheus.Registry,
	serveErr chan<- error,
) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(ctx, h, commander, cfg.AllowedOrigins))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", cfg.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.ListenAddress, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		// Hijacked WebSocket connections are not tracked by Shutdown; they end with ctx.
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	logger.InfoKV(ctx, "HTTP server listening", "listen_address", lis.Addr().String())

	go func() {
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("serve HTTP: %w", err)
		}
	}()

	return server, nil
}

// shutdownHTTP stops the HTTP server with a bounded grace period.
func shutdownHTTP(ctx context.Context, server *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WarnKV(ctx, "HTTP shutdown incomplete", "error", err)
		_ = server.Close()
	}
}

// stopGRPC stops the gRPC server, cutting open Subscribe streams after the grace period.
func stopGRPC(server *grpc.Server) {
	if server == nil {
		return
	}

	done := make(chan struct{})

	go func() {
		server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		server.Stop()
		<-done
	}
}

// startGRPC serves the gRPC API when an address is configured.
func startGRPC(
	ctx context.Context,
	cfg *config.Config,
	h *hub.Hub,
	commander *Commander,
	serveErr chan<- error,
) (*grpc.Server, error) {
	if cfg.GRPCAddress == "" {
		return nil, nil //nolint:nilnil // A nil server means the API is disabled.
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", cfg.GRPCAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddress, err)
	}

	grpcServer := grpc.NewServer()
	grpcapi.RegisterBridgeServiceServer(grpcServer, grpcapi.NewServer(ctx, h, commander))

	logger.InfoKV(ctx, "gRPC server listening", "listen_address", lis.Addr().String())

	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("serve gRPC: %w", err)
		}
	}()

	return grpcServer, nil
}
