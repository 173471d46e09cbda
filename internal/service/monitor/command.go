package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/geofence-monitor/internal/api/grpc/monitor"
	"github.com/oshokin/geofence-monitor/internal/api/http/health"
	"github.com/oshokin/geofence-monitor/internal/config"
	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
	"github.com/oshokin/geofence-monitor/internal/logger"
	manager "github.com/oshokin/geofence-monitor/internal/monitor"
	"github.com/oshokin/geofence-monitor/internal/provider"
	"github.com/oshokin/geofence-monitor/internal/provider/mqtt"
	"github.com/oshokin/geofence-monitor/internal/publisher/rabbitmq"
	"github.com/oshokin/geofence-monitor/internal/repository/fences"
	"github.com/oshokin/geofence-monitor/internal/version"
)

// Bridge is the provider connection the daemon runs on.
type Bridge interface {
	provider.Provider
	IsConnected() bool
	Close()
}

// Connector opens the provider connection.
type Connector func(ctx context.Context, settings mqtt.Settings) (Bridge, error)

// Options controls the geofence-monitor process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the gRPC listen address from the settings.
	ListenAddress string
	// HTTPAddress overrides the health endpoint address from the settings.
	HTTPAddress string
	// FencesFile overrides the fence list file from the settings.
	FencesFile string
	// Connect opens the provider connection; nil dials the MQTT broker.
	Connect Connector
}

// Run starts the daemon and blocks until ctx is canceled or a server fails.
//
//nolint:funlen // Linear wiring of every component reads best in one place.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "geofence-monitor")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)
	applyLogLevel(ctx, settings.LogLevel)

	initial, err := loadFences(ctx, settings.FencesFile)
	if err != nil {
		return err
	}

	connect := opts.Connect
	if connect == nil {
		connect = dialBridge
	}

	bridge, err := connect(ctx, bridgeSettings(settings))
	if err != nil {
		return fmt.Errorf("connect provider: %w", err)
	}

	defer bridge.Close()

	mgr, err := manager.New(bridge, manager.WithDuplicateWindow(settings.DuplicateWindow))
	if err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}

	if _, err = mgr.SetFences(initial); err != nil {
		return fmt.Errorf("register fences: %w", err)
	}

	mgr.Subscribe(newLogSubscriber(ctx))

	var sink health.Sink

	if settings.AMQP.URL != "" {
		publisher, dialErr := rabbitmq.Dial(settings.AMQP.URL, settings.AMQP.Exchange, settings.Timeout)
		if dialErr != nil {
			return fmt.Errorf("connect event sink: %w", dialErr)
		}

		defer func() {
			_ = publisher.Close()
		}()

		mgr.Subscribe(publisher)
		sink = publisher

		logger.InfoKV(ctx, "Publishing events to RabbitMQ", "exchange", settings.AMQP.Exchange)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", settings.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.ListenAddress, err)
	}

	httpLis, err := lc.Listen(ctx, "tcp", settings.HTTPAddress)
	if err != nil {
		_ = lis.Close()

		return fmt.Errorf("listen on %s: %w", settings.HTTPAddress, err)
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(ctx)))
	api.RegisterMonitorServiceServer(grpcServer, api.NewServer(mgr))

	if logger.Level() > zapcore.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	httpServer := health.NewServer(settings.HTTPAddress, health.NewHandler(mgr, bridge, sink))

	// The loop outlives ctx so the shutdown stop request can still complete.
	loopCtx, cancelLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelLoop()

	loopDone := make(chan error, 1)

	go func() {
		loopDone <- mgr.Run(loopCtx)
	}()

	if settings.AutoStart {
		if err = mgr.Start(); err != nil {
			return fmt.Errorf("auto start: %w", err)
		}
	}

	logger.InfoKV(ctx, "Geofence monitor listening",
		"listen_address", settings.ListenAddress,
		"http_address", settings.HTTPAddress,
		"fences", len(initial),
		"auto_start", settings.AutoStart)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", serveErr)
		}

		return nil
	})

	group.Go(func() error {
		if serveErr := httpServer.Serve(httpLis); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", serveErr)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		logger.Info(ctx, "Shutting down")
		stopMonitoring(ctx, mgr, settings.Timeout)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.Timeout)
		defer cancel()

		grpcServer.GracefulStop()

		return httpServer.Shutdown(shutdownCtx)
	})

	err = group.Wait()

	cancelLoop()
	<-loopDone

	logger.Info(ctx, "Geofence monitor stopped")

	return err
}

// applyOverrides replaces settings with non-empty command line values.
func applyOverrides(settings *config.Config, opts *Options) {
	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if opts.HTTPAddress != "" {
		settings.HTTPAddress = opts.HTTPAddress
	}

	if opts.FencesFile != "" {
		settings.FencesFile = opts.FencesFile
	}
}

// applyLogLevel switches the global logger to the configured level.
func applyLogLevel(ctx context.Context, name string) {
	level, ok := logger.ParseLogLevel(name)
	if !ok {
		logger.WarnKV(ctx, "Unknown log level, keeping the current one", "log_level", name)

		return
	}

	logger.SetLevel(level)
}

// loadFences reads the startup fence list. A missing file means no fences.
func loadFences(ctx context.Context, path string) ([]domain.Fence, error) {
	list, err := fences.NewFileRepository(path).Load(ctx)

	switch {
	case err == nil:
		logger.InfoKV(ctx, "Fences loaded", "fences_file", path, "fences", len(list))

		return list, nil
	case errors.Is(err, fences.ErrNotFound):
		logger.WarnKV(ctx, "Fence file not found, starting with an empty registry", "fences_file", path)

		return nil, nil
	default:
		return nil, fmt.Errorf("load fences: %w", err)
	}
}

// bridgeSettings maps the configuration onto the MQTT bridge settings.
func bridgeSettings(settings *config.Config) mqtt.Settings {
	clientID := settings.MQTT.ClientID
	if clientID == "" {
		clientID = version.ClientID(uuid.NewString()[:8])
	}

	return mqtt.Settings{
		Broker:      settings.MQTT.Broker,
		ClientID:    clientID,
		TopicPrefix: settings.MQTT.TopicPrefix,
		QoS:         settings.MQTT.QoSLevel(),
		Timeout:     settings.Timeout,
	}
}

// dialBridge is the default Connector.
func dialBridge(ctx context.Context, settings mqtt.Settings) (Bridge, error) {
	bridge, err := mqtt.Dial(ctx, settings)
	if err != nil {
		return nil, err
	}

	return bridge, nil
}

// stopMonitoring asks the manager to stop and waits until it is idle or
// failed, or the timeout passes.
func stopMonitoring(ctx context.Context, mgr *manager.Manager, timeout time.Duration) {
	if isSettled(mgr.Status().State) {
		return
	}

	settled := make(chan struct{}, 1)

	unsubscribe := mgr.Subscribe(manager.SubscriberFuncs{
		StateChange: func(_, current domain.Status) {
			if isSettled(current.State) {
				select {
				case settled <- struct{}{}:
				default:
				}
			}
		},
	})
	defer unsubscribe()

	if isSettled(mgr.Status().State) {
		return
	}

	if err := mgr.Stop(); err != nil {
		logger.WarnKV(ctx, "Unable to stop monitoring", "error", err)

		return
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-settled:
		logger.Info(ctx, "Monitoring stopped")
	case <-timer.C:
		logger.WarnKV(ctx, "Provider did not confirm stop in time", "status", mgr.Status())
	}
}

// isSettled reports states with nothing in flight that a stop would not change.
func isSettled(state domain.State) bool {
	return state == domain.StateIdle || state == domain.StateFailed
}

// loggingInterceptor gives every call a logger named after its method.
func loggingInterceptor(base context.Context) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = logger.ToContext(ctx, logger.FromContext(base).With("method", info.FullMethod))

		resp, err := handler(ctx, req)
		if err != nil {
			logger.WarnKV(ctx, "Call failed", "error", err)
		} else {
			logger.DebugKV(ctx, "Call served")
		}

		return resp, err
	}
}
