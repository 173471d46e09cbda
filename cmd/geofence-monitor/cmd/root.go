package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/geofence-monitor/internal/config"
	"github.com/oshokin/geofence-monitor/internal/service/monitor"
	"github.com/oshokin/geofence-monitor/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// fencesFile overrides the fence list file from the settings.
	fencesFile string
	// httpAddress overrides the health endpoint address.
	httpAddress string

	// rootCmd represents the base command for running the monitor daemon.
	rootCmd = &cobra.Command{
		Use:   "geofence-monitor [listen-address]",
		Short: "Run the geofence monitoring daemon.",
		Long: `Starts the daemon that owns the geofence registry and the monitoring state machine.

The daemon talks to the geofencing provider through an MQTT broker, serves the
gRPC control API used by geofencectl and exposes /healthz and /status over HTTP.
Normalized enter/exit events can be republished to a RabbitMQ exchange.
The listen address can be provided as argument to override config (e.g., :9090).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return monitor.Run(ctx, &monitor.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HTTPAddress:   httpAddress,
				FencesFile:    fencesFile,
			})
		},
	}
)

// Execute runs the geofence-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&fencesFile, "fences-file", "f", "", "path to the fence list JSON (overrides config)")
	rootCmd.Flags().StringVar(&httpAddress, "http-addr", "", "health endpoint address (overrides config)")
}
