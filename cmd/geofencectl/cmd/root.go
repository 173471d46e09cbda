package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/geofence-monitor/internal/config"
	"github.com/oshokin/geofence-monitor/internal/service/client"
	"github.com/oshokin/geofence-monitor/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the daemon address from config.
	serverAddress string

	// rootCmd represents the base command; every action is a subcommand.
	rootCmd = &cobra.Command{
		Use:   "geofencectl",
		Short: "Control a running geofence-monitor daemon.",
		Long: `Sends control requests to the geofence-monitor daemon over gRPC.

Start and stop only submit a request: the provider confirms asynchronously,
so run "geofencectl status" to follow the state.`,
		SilenceUsage: true,
	}
)

// newActionCommand builds a subcommand running one client action.
func newActionCommand(use, short string, action client.Action, positional cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  positional,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &client.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				Action:        action,
				Out:           cmd.OutOrStdout(),
			}

			if len(args) > 0 {
				options.FencesFile = args[0]
			}

			return client.Run(ctx, options)
		},
	}
}

// Execute runs the geofencectl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", "", "daemon address (defaults to listen_addr from config)")

	rootCmd.AddCommand(
		newActionCommand("status", "Print the monitoring state.", client.ActionStatus, cobra.NoArgs),
		newActionCommand("start", "Start monitoring the registered fences.", client.ActionStart, cobra.NoArgs),
		newActionCommand("stop", "Stop monitoring.", client.ActionStop, cobra.NoArgs),
		newActionCommand("fences", "Print the registered fence list.", client.ActionFences, cobra.NoArgs),
		newActionCommand(
			"set-fences <file>",
			"Replace the fence list; applies to the next start.",
			client.ActionSetFences,
			cobra.ExactArgs(1),
		),
	)
}
