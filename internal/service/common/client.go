//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/geofence-monitor/internal/api/grpc/monitor"
	"github.com/oshokin/geofence-monitor/internal/config"
)

// Client wraps the gRPC MonitorService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the daemon.
	conn *grpc.ClientConn
	// api is the MonitorService client.
	api api.MonitorServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor is sent with every call for the daemon audit log.
	actor string
	// userAgent is the gRPC user agent used by Dial.
	userAgent string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor sets the user@host label sent with every call.
func WithActor(actor string) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// WithUserAgent sets the gRPC user agent of connections opened by Dial.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the geofence monitor daemon.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := NewClient(nil, opts...)

	dialOptions := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if client.userAgent != "" {
		dialOptions = append(dialOptions, grpc.WithUserAgent(client.userAgent))
	}

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial geofence monitor: %w", err)
	}

	client.conn = conn
	client.api = api.NewMonitorServiceClient(conn)

	return client, nil
}

// NewClient wraps an existing MonitorService client.
func NewClient(monitor api.MonitorServiceClient, opts ...Option) *Client {
	client := &Client{
		api:         monitor,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetStatus retrieves the monitoring state.
func (c *Client) GetStatus(ctx context.Context) (api.StatusView, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return api.StatusView{}, fmt.Errorf("get status: %w", err)
	}

	return api.StatusFromStruct(resp), nil
}

// Start asks the daemon to start monitoring.
func (c *Client) Start(ctx context.Context) (api.StatusView, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Start(callCtx, new(emptypb.Empty))
	if err != nil {
		return api.StatusView{}, fmt.Errorf("start monitoring: %w", err)
	}

	return api.StatusFromStruct(resp), nil
}

// Stop asks the daemon to stop monitoring.
func (c *Client) Stop(ctx context.Context) (api.StatusView, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Stop(callCtx, new(emptypb.Empty))
	if err != nil {
		return api.StatusView{}, fmt.Errorf("stop monitoring: %w", err)
	}

	return api.StatusFromStruct(resp), nil
}

// ListFences returns the registered fence list as JSON.
func (c *Client) ListFences(ctx context.Context) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListFences(callCtx, new(emptypb.Empty))
	if err != nil {
		return "", fmt.Errorf("list fences: %w", err)
	}

	return resp.GetValue(), nil
}

// SetFences replaces the fence list and returns the previous one as JSON.
func (c *Client) SetFences(ctx context.Context, fences string) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SetFences(callCtx, wrapperspb.String(fences))
	if err != nil {
		return "", fmt.Errorf("set fences: %w", err)
	}

	return resp.GetValue(), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The actor label
// is attached as outgoing metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.actor != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, api.MetadataActor, c.actor)
	}

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
