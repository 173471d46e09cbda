package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/oshokin/geofence-monitor/internal/config"
	"github.com/oshokin/geofence-monitor/internal/logger"
	"github.com/oshokin/geofence-monitor/internal/provider"
	"github.com/oshokin/geofence-monitor/internal/service/common"
	"github.com/oshokin/geofence-monitor/internal/version"
)

// Action selects what geofencectl does.
type Action int

const (
	// ActionStatus prints the monitoring state.
	ActionStatus Action = iota + 1
	// ActionStart requests monitoring.
	ActionStart
	// ActionStop requests that monitoring ends.
	ActionStop
	// ActionFences prints the registered fence list.
	ActionFences
	// ActionSetFences replaces the fence list from a file.
	ActionSetFences
)

// binaryName is reported as the gRPC user agent.
const binaryName = "geofencectl"

// errUnknownAction is returned for an Action outside the defined set.
var errUnknownAction = errors.New("unknown action")

// Options configures one geofencectl invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the daemon address from config when specified.
	ServerAddress string
	// Action is the operation to perform.
	Action Action
	// FencesFile is the fence list JSON read by ActionSetFences.
	FencesFile string
	// Out receives the result; os.Stdout when nil.
	Out io.Writer
}

// Run connects to the daemon and executes the requested action.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, binaryName)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := dialAddress(cfg.ListenAddress)
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect the current user", "error", err)

		actor = "unknown"
	}

	client, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithActor(actor),
		common.WithUserAgent(version.UserAgent(binaryName)))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Connected to geofence monitor", "server_address", serverAddress)

	return execute(ctx, client, opts)
}

// execute performs opts.Action with client and prints the result.
func execute(ctx context.Context, client *common.Client, opts *Options) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	switch opts.Action {
	case ActionStatus:
		view, err := client.GetStatus(ctx)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(out, "state: %s\nfences: %d\n", view, view.Fences)

		return err
	case ActionStart, ActionStop:
		call := client.Start
		if opts.Action == ActionStop {
			call = client.Stop
		}

		view, err := call(ctx)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(out, "requested, state: %s\n", view)

		return err
	case ActionFences:
		fences, err := client.ListFences(ctx)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(out, fences)

		return err
	case ActionSetFences:
		return setFences(ctx, client, opts.FencesFile, out)
	default:
		return fmt.Errorf("%w: %d", errUnknownAction, opts.Action)
	}
}

// setFences validates the file locally before sending it.
func setFences(ctx context.Context, client *common.Client, path string, out io.Writer) error {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read fences: %w", err)
	}

	list, err := provider.DecodeFences(string(contents))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	previous, err := client.SetFences(ctx, string(contents))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "registered %d fences, previous list: %s\n", len(list), previous)

	return err
}

// dialAddress turns a listen address into one a client can dial:
// an empty or wildcard host becomes localhost.
func dialAddress(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}

	return net.JoinHostPort(host, port)
}
