//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/geofence-monitor/internal/api/grpc/monitor"
	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

// fakeMonitorClient records calls made through the wrapper.
type fakeMonitorClient struct {
	// err fails every call when set.
	err error
	// actors collects the actor metadata of every call.
	actors []string
	// deadlines records whether each call carried a deadline.
	deadlines []bool
	// fences is the last value passed to SetFences.
	fences string
}

func (f *fakeMonitorClient) record(ctx context.Context) {
	md, _ := metadata.FromOutgoingContext(ctx)
	f.actors = append(f.actors, md.Get(api.MetadataActor)...)

	_, ok := ctx.Deadline()
	f.deadlines = append(f.deadlines, ok)
}

func (f *fakeMonitorClient) reply(state domain.State) (*structpb.Struct, error) {
	if f.err != nil {
		return nil, f.err
	}

	return api.StatusToStruct(domain.Status{State: state}, 2)
}

func (f *fakeMonitorClient) GetStatus(ctx context.Context, _ *emptypb.Empty, _ ...grpc.CallOption) (*structpb.Struct, error) {
	f.record(ctx)

	return f.reply(domain.StateActive)
}

func (f *fakeMonitorClient) Start(ctx context.Context, _ *emptypb.Empty, _ ...grpc.CallOption) (*structpb.Struct, error) {
	f.record(ctx)

	return f.reply(domain.StateStarting)
}

func (f *fakeMonitorClient) Stop(ctx context.Context, _ *emptypb.Empty, _ ...grpc.CallOption) (*structpb.Struct, error) {
	f.record(ctx)

	return f.reply(domain.StateStopping)
}

func (f *fakeMonitorClient) ListFences(
	ctx context.Context,
	_ *emptypb.Empty,
	_ ...grpc.CallOption,
) (*wrapperspb.StringValue, error) {
	f.record(ctx)

	if f.err != nil {
		return nil, f.err
	}

	return wrapperspb.String("[]"), nil
}

func (f *fakeMonitorClient) SetFences(
	ctx context.Context,
	in *wrapperspb.StringValue,
	_ ...grpc.CallOption,
) (*wrapperspb.StringValue, error) {
	f.record(ctx)

	if f.err != nil {
		return nil, f.err
	}

	f.fences = in.GetValue()

	return wrapperspb.String("[]"), nil
}

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestClient_Calls verifies every wrapper decodes replies and sends the actor.
func TestClient_Calls(t *testing.T) {
	t.Parallel()

	fake := new(fakeMonitorClient)
	c := NewClient(fake, WithActor("alice@laptop"), WithCallTimeout(time.Second))
	ctx := context.Background()

	view, err := c.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, api.StatusView{State: "active", Fences: 2}, view)

	view, err = c.Start(ctx)
	require.NoError(t, err)
	require.Equal(t, "starting", view.State)

	view, err = c.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, "stopping", view.State)

	listed, err := c.ListFences(ctx)
	require.NoError(t, err)
	require.Equal(t, "[]", listed)

	previous, err := c.SetFences(ctx, `[{"identifier":"home"}]`)
	require.NoError(t, err)
	require.Equal(t, "[]", previous)
	require.Equal(t, `[{"identifier":"home"}]`, fake.fences)

	require.Equal(t, []string{"alice@laptop", "alice@laptop", "alice@laptop", "alice@laptop", "alice@laptop"}, fake.actors)
	require.Equal(t, []bool{true, true, true, true, true}, fake.deadlines)
}

// TestClient_WrapsErrors verifies call failures keep their cause.
func TestClient_WrapsErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	c := NewClient(&fakeMonitorClient{err: cause})
	ctx := context.Background()

	_, err := c.GetStatus(ctx)
	require.ErrorIs(t, err, cause)
	require.ErrorContains(t, err, "get status")

	_, err = c.Start(ctx)
	require.ErrorIs(t, err, cause)

	_, err = c.Stop(ctx)
	require.ErrorIs(t, err, cause)

	_, err = c.ListFences(ctx)
	require.ErrorIs(t, err, cause)

	_, err = c.SetFences(ctx, "[]")
	require.ErrorIs(t, err, cause)
}

// TestClient_CloseWithoutConnection verifies Close tolerates wrapped clients.
func TestClient_CloseWithoutConnection(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewClient(new(fakeMonitorClient)).Close())

	var c *Client
	require.NoError(t, c.Close())
}
